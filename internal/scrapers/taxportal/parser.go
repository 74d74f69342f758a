package taxportal

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// element ids only keep their suffix stable across markup revisions, the
// ASP.NET naming container prefix changes
const (
	selAddress        = `[id$="_propertyAddress"]`
	selCity           = `[id$="_propertyCity"]`
	selZip            = `[id$="_propertyZip"]`
	selTownship       = `[id$="_propertyTownship"]`
	selMailingName    = `[id$="_propertyMailingName"]`
	selMailingAddress = `[id$="_propertyMailingAddress"]`
	selAssessedValue  = `[id$="_propertyAssessedValue"]`
	selEstimatedValue = `[id$="_propertyEstimatedValue"]`
	selLotSize        = `[id$="_propertyLotSize"]`
	selBuildingSize   = `[id$="_propertyBuildingSize"]`
	selClass          = `[id$="_propertyClass"]`
	selTaxRate        = `[id$="_propertyTaxRate"]`
	selTaxCode        = `[id$="_propertyTaxCode"]`
	selPhoto          = `img[id$="_imgPropertyPhoto"]`

	selBillYear    = `[id$="_rptTaxBills_lblTaxYear_%d"]`
	selBillAmount  = `[id$="_rptTaxBills_lblBillAmount_%d"]`
	selBillDue     = `[id$="_rptTaxBills_lblAmountDue_%d"]`
	selBillPay     = `[id$="_rptTaxBills_lnkPayOnline_%d"]`
	selBillPaid    = `[id$="_rptTaxBills_lblPaid_%d"]`
	selBillHistory = `[id$="_rptTaxBills_lnkPaymentHistory_%d"]`

	selSaleYear       = `[id$="_rptTaxSale_lblTaxSaleYear_%d"]`
	selSaleNone       = `[id$="_rptTaxSale_lnkNoTaxSale_%d"]`
	selSaleDelinquent = `[id$="_rptTaxSale_lnkDelinquent_%d"]`
	selSaleSold       = `[id$="_rptTaxSale_lnkTaxSold_%d"]`
)

// the repeaters render at most this many rows
const repeaterSize = 10

// phrases the portal uses when a PIN has no record
var notFoundPhrases = []string{
	"no records found",
	"pin not found",
	"not a valid pin",
}

// Parse extracts the treasurer's data from a result page. It never fails,
// problems are reported through the record's error.
func Parse(html string, p pin.PIN) (record property.Record) {
	record = property.NewRecord(property.TaxPortal, p.String(), time.Time{})
	defer func() {
		r := recover()
		if r != nil {
			record.Payload = nil
			record.Error = fmt.Sprintf("parse tax portal page: %v", r)
			record.ErrorCode = property.CodeParseError
		}
	}()

	doc, err := htmlutil.Document(html)
	if err != nil {
		record.Error = err.Error()
		record.ErrorCode = property.CodeParseError
		return record
	}

	data := &property.TaxPortalData{
		TaxBills: []property.TaxBill{},
		TaxSales: []property.TaxSale{},
	}
	var fields htmlutil.Fields

	text := func(sel string) string {
		return htmlutil.Text(doc.Find(sel).First())
	}
	fields.Extract("address", func() {
		data.Address = property.Address{
			Street:   text(selAddress),
			City:     text(selCity),
			Zip:      text(selZip),
			Township: text(selTownship),
		}
	})
	fields.Extract("mailing", func() {
		data.MailingName = text(selMailingName)
		data.MailingAddress = text(selMailingAddress)
	})
	fields.Extract("values", func() {
		data.AssessedValue = text(selAssessedValue)
		data.EstimatedValue = text(selEstimatedValue)
	})
	fields.Extract("characteristics", func() {
		data.LotSize = text(selLotSize)
		data.BuildingSize = text(selBuildingSize)
		data.PropertyClass = text(selClass)
	})
	fields.Extract("tax rate", func() {
		data.TaxRate = text(selTaxRate)
		data.TaxCode = text(selTaxCode)
	})
	fields.Extract("tax bills", func() {
		data.TaxBills = parseTaxBills(doc)
	})
	fields.Extract("tax sales", func() {
		data.TaxSales = parseTaxSales(doc)
	})
	fields.Extract("photo", func() {
		src := strings.TrimSpace(doc.Find(selPhoto).First().AttrOr("src", ""))
		if strings.HasPrefix(src, "data:image/") {
			data.Photo = src
		}
	})

	if isEmpty(data) {
		if reportsNotFound(doc) {
			record.Error = fmt.Sprintf("no tax portal record for %s", p.String())
			record.ErrorCode = property.CodeNotFound
			return record
		}
		record.Error = "no property data found on tax portal page"
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

// reportsNotFound is consulted only when nothing was extracted.
func reportsNotFound(doc *goquery.Document) bool {
	lower := strings.ToLower(htmlutil.Text(doc.Find("body")))
	for _, phrase := range notFoundPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func isEmpty(data *property.TaxPortalData) bool {
	return data.Address == (property.Address{}) &&
		data.MailingName == "" &&
		data.AssessedValue == "" &&
		data.PropertyClass == "" &&
		len(data.TaxBills) == 0
}

func href(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.AttrOr("href", ""))
}

func parseTaxBills(doc *goquery.Document) []property.TaxBill {
	bills := []property.TaxBill{}
	for i := 0; i < repeaterSize; i++ {
		year := htmlutil.Text(doc.Find(fmt.Sprintf(selBillYear, i)).First())
		if year == "" {
			break
		}

		bill := property.TaxBill{
			Year:       year,
			BillAmount: htmlutil.Text(doc.Find(fmt.Sprintf(selBillAmount, i)).First()),
			AmountDue:  htmlutil.Text(doc.Find(fmt.Sprintf(selBillDue, i)).First()),
			Status:     property.PaymentUnknown,
		}

		pay := doc.Find(fmt.Sprintf(selBillPay, i)).First()
		paid := doc.Find(fmt.Sprintf(selBillPaid, i)).First()
		history := doc.Find(fmt.Sprintf(selBillHistory, i)).First()
		switch {
		case pay.Length() > 0:
			bill.Status = property.PaymentDue
			bill.PayURL = href(pay)
		case paid.Length() > 0:
			bill.Status = property.PaymentPaid
		case history.Length() > 0:
			bill.Status = property.PaymentHistory
		}
		if history.Length() > 0 {
			bill.HistoryURL = href(history)
		}

		bills = append(bills, bill)
	}
	return bills
}

func parseTaxSales(doc *goquery.Document) []property.TaxSale {
	sales := []property.TaxSale{}
	for i := 0; i < repeaterSize; i++ {
		year := htmlutil.Text(doc.Find(fmt.Sprintf(selSaleYear, i)).First())
		if year == "" {
			break
		}

		sale := property.TaxSale{Year: year, Status: property.TaxSaleUnknown}
		markers := []struct {
			sel    string
			status property.TaxSaleStatus
		}{
			{sel: selSaleNone, status: property.TaxSaleNone},
			{sel: selSaleDelinquent, status: property.TaxSaleDelinquent},
			{sel: selSaleSold, status: property.TaxSaleSold},
		}
		for _, m := range markers {
			link := doc.Find(fmt.Sprintf(m.sel, i)).First()
			if link.Length() == 0 {
				continue
			}
			sale.Status = m.status
			sale.URL = href(link)
			break
		}

		sales = append(sales, sale)
	}
	return sales
}

// siteOf is the host a page was served from.
func siteOf(pageUrl string) string {
	parsed, err := url.Parse(pageUrl)
	if err != nil {
		return ""
	}
	return parsed.Host
}
