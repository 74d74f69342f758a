package property

// Address is the situs address of a property.
type Address struct {
	Street   string `json:"street,omitempty"`
	City     string `json:"city,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Township string `json:"township,omitempty"`
}

// PaymentStatus classifies a tax bill row.
type PaymentStatus string

const (
	PaymentDue     PaymentStatus = "DUE"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentHistory PaymentStatus = "PAYMENT_HISTORY"
	PaymentUnknown PaymentStatus = "UNKNOWN"
)

// TaxBill is one year of the tax bill repeater.
type TaxBill struct {
	Year       string        `json:"year"`
	BillAmount string        `json:"billAmount,omitempty"`
	AmountDue  string        `json:"amountDue,omitempty"`
	Status     PaymentStatus `json:"status"`
	PayURL     string        `json:"payUrl,omitempty"`
	HistoryURL string        `json:"historyUrl,omitempty"`
}

// TaxSaleStatus classifies a tax sale delinquency row.
type TaxSaleStatus string

const (
	TaxSaleNone       TaxSaleStatus = "NONE"
	TaxSaleDelinquent TaxSaleStatus = "DELINQUENT"
	TaxSaleSold       TaxSaleStatus = "SOLD"
	TaxSaleUnknown    TaxSaleStatus = "UNKNOWN"
)

// TaxSale is one year of the tax sale delinquency repeater.
type TaxSale struct {
	Year   string        `json:"year"`
	Status TaxSaleStatus `json:"status"`
	URL    string        `json:"url,omitempty"`
}

// TaxPortalData is the treasurer's view of a property.
type TaxPortalData struct {
	Address        Address   `json:"address"`
	MailingName    string    `json:"mailingName,omitempty"`
	MailingAddress string    `json:"mailingAddress,omitempty"`
	AssessedValue  string    `json:"assessedValue,omitempty"`
	EstimatedValue string    `json:"estimatedValue,omitempty"`
	LotSize        string    `json:"lotSize,omitempty"`
	BuildingSize   string    `json:"buildingSize,omitempty"`
	PropertyClass  string    `json:"propertyClass,omitempty"`
	TaxRate        string    `json:"taxRate,omitempty"`
	TaxCode        string    `json:"taxCode,omitempty"`
	TaxBills       []TaxBill `json:"taxBills"`
	TaxSales       []TaxSale `json:"taxSales"`
	Photo          string    `json:"photo,omitempty"`
	// Site is the host the markup came from, it differs from the primary
	// portal when the fallback site was used.
	Site string `json:"site,omitempty"`
}

func (*TaxPortalData) Kind() SourceKind { return TaxPortal }

// SoldTax is a row of the clerk's sold tax history.
type SoldTax struct {
	TaxYear     string `json:"taxYear"`
	SaleDate    string `json:"saleDate,omitempty"`
	SaleType    string `json:"saleType,omitempty"`
	Status      string `json:"status,omitempty"`
	Comment     string `json:"comment,omitempty"`
	WarrantYear string `json:"warrantYear,omitempty"`
}

// DelinquentTax is a row of the clerk's open delinquent tax list.
type DelinquentTax struct {
	TaxYear     string `json:"taxYear"`
	TaxType     string `json:"taxType,omitempty"`
	AmountDue   string `json:"amountDue,omitempty"`
	Status      string `json:"status,omitempty"`
	Comment     string `json:"comment,omitempty"`
	WarrantYear string `json:"warrantYear,omitempty"`
}

// ClerkData is the county clerk's tax delinquency view of a property.
type ClerkData struct {
	DataAsOf          string          `json:"dataAsOf,omitempty"`
	SoldTaxes         []SoldTax       `json:"soldTaxes"`
	DelinquentTaxes   []DelinquentTax `json:"delinquentTaxes"`
	TotalAmountDue    string          `json:"totalAmountDue,omitempty"`
	TotalWithInterest string          `json:"totalWithInterest,omitempty"`
}

func (*ClerkData) Kind() SourceKind { return Clerk }

// RecorderLayout names the shape of the recorder's result table.
type RecorderLayout string

const (
	LayoutWide   RecorderLayout = "wide"
	LayoutNarrow RecorderLayout = "narrow"
)

// Document is a recorded document.
type Document struct {
	Number         string `json:"number"`
	DateRecorded   string `json:"dateRecorded,omitempty"`
	DateExecuted   string `json:"dateExecuted,omitempty"`
	Type           string `json:"type"`
	Grantor        string `json:"grantor,omitempty"`
	Grantee        string `json:"grantee,omitempty"`
	AssociatedDoc  string `json:"associatedDoc,omitempty"`
	CrossReference string `json:"crossReference,omitempty"`
	URL            string `json:"url,omitempty"`
}

// RecorderData is the recorder of deeds' document list for a property.
type RecorderData struct {
	Layout    RecorderLayout `json:"layout,omitempty"`
	Documents []Document     `json:"documents"`
	ResultURL string         `json:"resultUrl,omitempty"`
}

func (*RecorderData) Kind() SourceKind { return Recorder }

// Point is a coordinate in Web Mercator (EPSG:3857) meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox is an extent in Web Mercator meters.
type BBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

func (b BBox) Width() float64  { return b.XMax - b.XMin }
func (b BBox) Height() float64 { return b.YMax - b.YMin }

// MapImages holds map imagery as data URIs.
type MapImages struct {
	Base       string `json:"base,omitempty"`
	Parcel     string `json:"parcel,omitempty"`
	Satellite  string `json:"satellite,omitempty"`
	StreetView string `json:"streetView,omitempty"`
}

// GISData is the parcel geometry and imagery of a property.
type GISData struct {
	Attributes      map[string]any `json:"attributes,omitempty"`
	Rings           [][]Point      `json:"rings"`
	GeographicRings [][]LatLng     `json:"geographicRings"`
	Centroid        LatLng         `json:"centroid"`
	BBox            BBox           `json:"bbox"`
	Images          MapImages      `json:"images"`
	// Warnings lists imagery that could not be fetched.
	Warnings []string `json:"warnings,omitempty"`
}

func (*GISData) Kind() SourceKind { return GIS }
