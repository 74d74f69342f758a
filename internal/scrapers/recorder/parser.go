package recorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// a header with at least this many columns is the wide layout
const wideColumns = 9

// column positions, the first column holds the view link in both layouts
const (
	colNumber       = 1
	colDateRecorded = 2
	colDateExecuted = 3
	colType         = 4
	colGrantor      = 5
	colGrantee      = 6
	colAssociated   = 7
	colCrossRef     = 8
)

// findResultTable returns the first table whose header names a document
// number column.
func findResultTable(doc *goquery.Document) (*goquery.Selection, bool) {
	var found *goquery.Selection
	doc.Find(selDocTables).EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := strings.ToLower(htmlutil.Text(table.Find("th")))
		if strings.Contains(header, "doc") && (strings.Contains(header, "number") || strings.Contains(header, "#")) {
			found = table
			return false
		}
		return true
	})
	return found, found != nil
}

// DetectLayout decides the layout from the number of header columns.
func DetectLayout(headerColumns int) property.RecorderLayout {
	if headerColumns >= wideColumns {
		return property.LayoutWide
	}
	return property.LayoutNarrow
}

// Parse extracts the document list of a result page.
func Parse(html string, p pin.PIN) (record property.Record) {
	record = property.NewRecord(property.Recorder, p.String(), time.Time{})
	defer func() {
		r := recover()
		if r != nil {
			record.Payload = nil
			record.Error = fmt.Sprintf("parse recorder page: %v", r)
			record.ErrorCode = property.CodeParseError
		}
	}()

	doc, err := htmlutil.Document(html)
	if err != nil {
		record.Error = err.Error()
		record.ErrorCode = property.CodeParseError
		return record
	}

	table, ok := findResultTable(doc)
	if !ok {
		record.Error = fmt.Sprintf("no recorded documents for %s", p.String())
		record.ErrorCode = property.CodeNotFound
		return record
	}

	headerRow := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Find("th").Length() > 0
	}).First()
	layout := DetectLayout(headerRow.Find("th").Length())

	data := &property.RecorderData{
		Layout:    layout,
		Documents: []property.Document{},
	}
	var fields htmlutil.Fields

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		fields.Extract(fmt.Sprintf("row %d", i), func() {
			document, ok := parseRow(tds, layout)
			if ok {
				data.Documents = append(data.Documents, document)
			}
		})
	})

	record.Payload = data
	if err := fields.Err(); err != nil {
		record.Error = err.Error()
		record.ErrorCode = property.CodeParseError
	}
	return record
}

func parseRow(tds *goquery.Selection, layout property.RecorderLayout) (property.Document, bool) {
	text := func(i int) string {
		if i >= tds.Length() {
			return ""
		}
		return htmlutil.Text(tds.Eq(i))
	}

	doc := property.Document{
		Number:       text(colNumber),
		DateRecorded: text(colDateRecorded),
		DateExecuted: text(colDateExecuted),
		Type:         text(colType),
	}
	if doc.Number == "" || doc.Type == "" {
		return property.Document{}, false
	}
	if layout == property.LayoutWide {
		doc.Grantor = text(colGrantor)
		doc.Grantee = text(colGrantee)
		doc.AssociatedDoc = text(colAssociated)
		doc.CrossReference = text(colCrossRef)
	}
	doc.URL = strings.TrimSpace(tds.Find("a[href]").First().AttrOr("href", ""))
	return doc, true
}
