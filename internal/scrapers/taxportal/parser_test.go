package taxportal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testPin = pin.MustParse("01-01-120-006-0000")

func readTestdata(t testing.TB, name string) string {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(contents)
}

func TestParseResultPage(t *testing.T) {
	record := Parse(readTestdata(t, "result.html"), testPin)
	require.Empty(t, record.Error)
	require.Equal(t, property.TaxPortal, record.Source)
	require.Equal(t, "01-01-120-006-0000", record.PIN)

	data, ok := record.Payload.(*property.TaxPortalData)
	require.True(t, ok)

	expected := &property.TaxPortalData{
		Address: property.Address{
			Street:   "1234 N MAIN ST",
			City:     "WILMETTE",
			Zip:      "60091",
			Township: "NEW TRIER",
		},
		MailingName:    "SMITH & JONES",
		MailingAddress: "PO BOX 12 CHICAGO IL 60601",
		AssessedValue:  "$45,210",
		EstimatedValue: "$452,100",
		LotSize:        "6,250",
		BuildingSize:   "2,100",
		PropertyClass:  "2-03",
		TaxRate:        "6.953%",
		TaxCode:        "18001",
		TaxBills: []property.TaxBill{
			{
				Year:       "2023",
				BillAmount: "$9,812.44",
				AmountDue:  "$4,906.22",
				Status:     property.PaymentDue,
				PayURL:     "/payment.aspx?year=2023",
			},
			{
				Year:       "2022",
				BillAmount: "$9,401.10",
				AmountDue:  "$0.00",
				Status:     property.PaymentPaid,
				HistoryURL: "/history.aspx?year=2022",
			},
			{
				Year:       "2021",
				BillAmount: "$9,100.00",
				Status:     property.PaymentHistory,
				HistoryURL: "/history.aspx?year=2021",
			},
			{
				Year:   "2020",
				Status: property.PaymentUnknown,
			},
		},
		TaxSales: []property.TaxSale{
			{Year: "2022", Status: property.TaxSaleNone, URL: "/taxsale.aspx?y=2022"},
			{Year: "2021", Status: property.TaxSaleDelinquent, URL: "/taxsale.aspx?y=2021"},
			{Year: "2020", Status: property.TaxSaleSold, URL: "/taxsale.aspx?y=2020"},
		},
		Photo: "data:image/jpeg;base64,/9j/4AAQ",
	}
	diff := cmp.Diff(expected, data)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseFallbackPage(t *testing.T) {
	record := Parse(readTestdata(t, "fallback.html"), testPin)
	require.Empty(t, record.Error)

	data := record.Payload.(*property.TaxPortalData)
	require.Equal(t, "1234 N MAIN ST", data.Address.Street)
	require.Equal(t, "2-03", data.PropertyClass)
	require.Empty(t, data.TaxBills)
	require.NotNil(t, data.TaxBills)
}

func TestParseNotFound(t *testing.T) {
	record := Parse(readTestdata(t, "not_found.html"), testPin)
	require.Nil(t, record.Payload)
	require.Equal(t, property.CodeNotFound, record.ErrorCode)
	require.True(t, record.Failed())
}

func TestParseNotFoundPhraseOnPopulatedPage(t *testing.T) {
	html := strings.Replace(readTestdata(t, "result.html"), "</body>",
		"<div>Exemptions: No records found</div></body>", 1)

	record := Parse(html, testPin)
	require.NotEqual(t, property.CodeNotFound, record.ErrorCode)
	require.Empty(t, record.Error)
	data, ok := record.Payload.(*property.TaxPortalData)
	require.True(t, ok)
	require.Equal(t, "1234 N MAIN ST", data.Address.Street)
}

func TestParseEmptyPage(t *testing.T) {
	record := Parse("<html><body><p>maintenance</p></body></html>", testPin)
	require.Nil(t, record.Payload)
	require.Equal(t, property.CodeParseError, record.ErrorCode)
}

func TestExtractTokens(t *testing.T) {
	tokens, err := ExtractTokens(readTestdata(t, "search.html"))
	require.NoError(t, err)
	require.Equal(t, Tokens{
		ViewState:          "dDwtMTA4MzE0MjEwNTs7Pg==",
		ViewStateGenerator: "A1B2C3D4",
		EventValidation:    "/wEdAAeV+validation",
	}, tokens)

	_, err = ExtractTokens(readTestdata(t, "search_no_tokens.html"))
	require.ErrorContains(t, err, "__VIEWSTATEGENERATOR")
	require.ErrorContains(t, err, "__EVENTVALIDATION")
}

func TestSearchForm(t *testing.T) {
	form := SearchForm(Tokens{ViewState: "a", ViewStateGenerator: "b", EventValidation: "c"}, testPin)
	require.Equal(t, "01", form[fieldPinPrefix+"1"])
	require.Equal(t, "01", form[fieldPinPrefix+"2"])
	require.Equal(t, "120", form[fieldPinPrefix+"3"])
	require.Equal(t, "006", form[fieldPinPrefix+"4"])
	require.Equal(t, "0000", form[fieldPinPrefix+"5"])

	recaptcha, ok := form[fieldRecaptcha]
	require.True(t, ok)
	require.Empty(t, recaptcha)
}
