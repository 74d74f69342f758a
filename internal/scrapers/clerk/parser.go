package clerk

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	headingSoldTaxes       = "sold taxes"
	headingDelinquentTaxes = "delinquent taxes"
	// headings are retyped by hand on the clerk's site and drift
	headingThreshold = 0.88

	selHeading = "h1, h2, h3, h4, h5, h6, .panel-heading, .card-header"
)

var dataAsOfRegex = regexp.MustCompile(`(?i)data\s+as\s+of:?\s*(\d{1,2}/\d{1,2}/\d{4})`)
var amountRegex = regexp.MustCompile(`^\$?-?[\d,]+(\.\d+)?$`)

var notFoundPhrases = []string{
	"no records were found",
	"pin was not found",
	"invalid pin",
}

// Parse extracts the sold and delinquent tax tables of a search result page.
func Parse(html string, p pin.PIN) (record property.Record) {
	record = property.NewRecord(property.Clerk, p.String(), time.Time{})
	defer func() {
		r := recover()
		if r != nil {
			record.Payload = nil
			record.Error = fmt.Sprintf("parse clerk page: %v", r)
			record.ErrorCode = property.CodeParseError
		}
	}()

	doc, err := htmlutil.Document(html)
	if err != nil {
		record.Error = err.Error()
		record.ErrorCode = property.CodeParseError
		return record
	}

	body := htmlutil.Text(doc.Find("body"))

	data := &property.ClerkData{
		SoldTaxes:       []property.SoldTax{},
		DelinquentTaxes: []property.DelinquentTax{},
	}
	var fields htmlutil.Fields
	found := false

	fields.Extract("data as of", func() {
		groups := dataAsOfRegex.FindStringSubmatch(body)
		if len(groups) == 2 {
			data.DataAsOf = groups[1]
			found = true
		}
	})

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		heading := tableHeading(table)
		switch {
		case textutil.MatchHeading(heading, headingDelinquentTaxes, headingThreshold):
			found = true
			fields.Extract("delinquent taxes", func() {
				rows, totals := tableRows(table)
				for _, cells := range rows {
					data.DelinquentTaxes = append(data.DelinquentTaxes, delinquentTax(cells))
				}
				applyTotals(data, totals)
			})
		case textutil.MatchHeading(heading, headingSoldTaxes, headingThreshold):
			found = true
			fields.Extract("sold taxes", func() {
				rows, _ := tableRows(table)
				for _, cells := range rows {
					data.SoldTaxes = append(data.SoldTaxes, soldTax(cells))
				}
			})
		}
	})

	if !found {
		if reportsNotFound(body) {
			record.Error = fmt.Sprintf("no clerk record for %s", p.String())
			record.ErrorCode = property.CodeNotFound
			return record
		}
		record.Error = "no tax tables found on clerk page"
		record.ErrorCode = property.CodeParseError
		return record
	}

	record.Payload = data
	if err := fields.Err(); err != nil {
		record.Error = err.Error()
		record.ErrorCode = property.CodeParseError
	}
	return record
}

func reportsNotFound(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range notFoundPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// tableHeading is the caption of table or the nearest heading before it,
// looking through a few levels of wrappers.
func tableHeading(table *goquery.Selection) string {
	caption := htmlutil.Text(table.Find("caption").First())
	if caption != "" {
		return caption
	}
	current := table
	for range 3 {
		heading := current.PrevAllFiltered(selHeading).First()
		if heading.Length() > 0 {
			return htmlutil.Text(heading)
		}
		current = current.Parent()
		if current.Length() == 0 || current.Is("body") {
			break
		}
	}
	return ""
}

// tableRows returns the text of every data row's cells, and the cells of the
// totals row if one exists.
func tableRows(table *goquery.Selection) (rows [][]string, totals []string) {
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		cells := make([]string, tds.Length())
		tds.Each(func(i int, td *goquery.Selection) {
			cells[i] = htmlutil.Text(td)
		})
		if strings.HasPrefix(strings.ToLower(cells[0]), "total") {
			totals = cells
			return
		}
		if cells[0] == "" {
			return
		}
		rows = append(rows, cells)
	})
	return rows, totals
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func soldTax(cells []string) property.SoldTax {
	row := property.SoldTax{
		TaxYear:  cell(cells, 0),
		SaleDate: cell(cells, 1),
		SaleType: cell(cells, 2),
		Status:   cell(cells, 3),
	}
	if len(cells) >= 5 {
		row.Comment = cells[4]
	}
	if len(cells) >= 6 {
		row.WarrantYear = cells[5]
	}
	return row
}

func delinquentTax(cells []string) property.DelinquentTax {
	row := property.DelinquentTax{
		TaxYear:   cell(cells, 0),
		TaxType:   cell(cells, 1),
		AmountDue: cell(cells, 2),
		Status:    cell(cells, 3),
	}
	if len(cells) >= 5 {
		row.Comment = cells[4]
	}
	if len(cells) >= 6 {
		row.WarrantYear = cells[5]
	}
	return row
}

// applyTotals takes the first two amounts of the delinquent totals row as
// the balance due and the balance with interest.
func applyTotals(data *property.ClerkData, totals []string) {
	var amounts []string
	for _, c := range totals {
		if amountRegex.MatchString(c) {
			amounts = append(amounts, c)
		}
	}
	if len(amounts) > 0 {
		data.TotalAmountDue = amounts[0]
	}
	if len(amounts) > 1 {
		data.TotalWithInterest = amounts[1]
	}
}
