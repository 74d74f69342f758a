// Package taxportal scrapes the county treasurer's property tax portal.
package taxportal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/taxportal")

const (
	report_client_extract_tokens = "client.extract-tokens"
	report_client_fallback       = "client.fallback"
)

const (
	DefaultBaseUrl     = "https://www.cookcountytreasurer.com"
	DefaultSearchPath  = "/setsearchparameters.aspx"
	DefaultFallbackUrl = "https://www.cookcountypropertyinfo.com/cookviewerpinresults.aspx"
)

// DefaultMarkers are substrings only present on a real result page, any one
// of them validates a response.
var DefaultMarkers = []string{
	"Property Location",
	"Mailing Information",
	"TaxYearInfo",
	"rptTaxBills",
	"Property Index Number (PIN)",
}

const (
	fieldViewState          = "__VIEWSTATE"
	fieldViewStateGenerator = "__VIEWSTATEGENERATOR"
	fieldEventValidation    = "__EVENTVALIDATION"
	fieldRecaptcha          = "g-recaptcha-response"

	fieldPinPrefix = "ctl00$ContentPlaceHolder1$ASPxPanel1$SearchByPIN1$txtPIN"
	fieldContinue  = "ctl00$ContentPlaceHolder1$ASPxPanel1$SearchByPIN1$cmdContinue"
)

const (
	StateInit              session.State = "init"
	StateTokensExtracted   session.State = "tokens-extracted"
	StateSubmitted         session.State = "submitted"
	StateValidated         session.State = "validated"
	StateFallbackTriggered session.State = "fallback-triggered"
	StateDone              session.State = "done"
)

var transitions = map[session.State][]session.State{
	StateInit:              {StateTokensExtracted},
	StateTokensExtracted:   {StateSubmitted},
	StateSubmitted:         {StateValidated, StateFallbackTriggered},
	StateValidated:         {StateDone},
	StateFallbackTriggered: {StateDone},
}

type Options struct {
	BaseUrl     string
	SearchPath  string
	FallbackUrl string
	// Markers replaces DefaultMarkers when non-empty.
	Markers []string
	Session session.Options
	Cache   *fetchcache.Cache
}

type Client struct {
	opts    Options
	markers []string
	tel     telemetry.API
}

func NewClient(opts Options) *Client {
	assert.NotNil(opts.Session.Tel, "session.Tel")

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.SearchPath == "" {
		opts.SearchPath = DefaultSearchPath
	}
	if opts.FallbackUrl == "" {
		opts.FallbackUrl = DefaultFallbackUrl
	}
	markers := opts.Markers
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	opts.Session.BaseUrl = opts.BaseUrl

	return &Client{
		opts:    opts,
		markers: markers,
		tel:     telemetry.NewScopedAPI("taxportal", opts.Session.Tel),
	}
}

// Result is the markup of a result page.
type Result struct {
	session.Page
	UsedFallback bool
	States       []session.State
}

// Tokens are the ASP.NET hidden fields the search form must echo back.
type Tokens struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
}

// ExtractTokens reads the hidden form fields of the search page.
func ExtractTokens(html string) (Tokens, error) {
	doc, err := htmlutil.Document(html)
	if err != nil {
		return Tokens{}, err
	}
	read := func(name string) string {
		return doc.Find(fmt.Sprintf(`input[name="%s"]`, name)).AttrOr("value", "")
	}
	tokens := Tokens{
		ViewState:          read(fieldViewState),
		ViewStateGenerator: read(fieldViewStateGenerator),
		EventValidation:    read(fieldEventValidation),
	}

	var missing []string
	if tokens.ViewState == "" {
		missing = append(missing, fieldViewState)
	}
	if tokens.ViewStateGenerator == "" {
		missing = append(missing, fieldViewStateGenerator)
	}
	if tokens.EventValidation == "" {
		missing = append(missing, fieldEventValidation)
	}
	if len(missing) > 0 {
		return tokens, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return tokens, nil
}

// SearchForm builds the POST body of a PIN search.
func SearchForm(tokens Tokens, p pin.PIN) map[string]string {
	form := map[string]string{
		fieldViewState:          tokens.ViewState,
		fieldViewStateGenerator: tokens.ViewStateGenerator,
		fieldEventValidation:    tokens.EventValidation,
		fieldRecaptcha:          "",
		fieldContinue:           "Continue",
	}
	for i, part := range p.Parts() {
		form[fmt.Sprintf("%s%d", fieldPinPrefix, i+1)] = part
	}
	return form
}

func (c *Client) validate(html string) bool {
	for _, marker := range c.markers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// Fetch returns the result page of p, from the in-process cache when
// possible.
func (c *Client) Fetch(ctx context.Context, p pin.PIN) (Result, error) {
	return session.Cached(ctx, c.opts.Cache, property.TaxPortal, p, func(ctx context.Context) (Result, error) {
		return c.fetch(ctx, p)
	})
}

func (c *Client) fetch(ctx context.Context, p pin.PIN) (Result, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("pin", p.String()))

	machine := session.NewMachine("taxportal", StateInit, transitions)
	http, err := session.NewHttpClient(c.opts.Session)
	if err != nil {
		return Result{}, err
	}

	res, err := http.R().
		SetContext(ctx).
		Get(c.opts.SearchPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch search page")
		return Result{}, session.FetchError(ctx, property.TaxPortal, "get search page", err)
	}
	err = session.CheckResponse(property.TaxPortal, res)
	if err != nil {
		span.SetStatus(codes.Error, "search page status")
		return Result{}, err
	}

	tokens, err := ExtractTokens(res.String())
	if err != nil {
		c.tel.ReportBroken(report_client_extract_tokens, err, p.String())
		span.SetStatus(codes.Error, "failed to extract tokens")
		return Result{}, property.NewError(property.CodeParseError, property.TaxPortal, err)
	}
	if err = machine.Advance(StateTokensExtracted); err != nil {
		return Result{}, err
	}

	res, err = http.R().
		SetContext(ctx).
		SetFormData(SearchForm(tokens, p)).
		Post(c.opts.SearchPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit search")
		return Result{}, session.FetchError(ctx, property.TaxPortal, "submit search", err)
	}
	err = session.CheckResponse(property.TaxPortal, res)
	if err != nil {
		return Result{}, err
	}
	if err = machine.Advance(StateSubmitted); err != nil {
		return Result{}, err
	}

	usedFallback := false
	if c.validate(res.String()) {
		if err = machine.Advance(StateValidated); err != nil {
			return Result{}, err
		}
	} else {
		if err = machine.Advance(StateFallbackTriggered); err != nil {
			return Result{}, err
		}
		c.tel.ReportWarning(report_client_fallback, p.String())
		usedFallback = true

		res, err = http.R().
			SetContext(ctx).
			SetQueryParam("pin", p.Digits()).
			Get(c.opts.FallbackUrl)
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch fallback")
			return Result{}, session.FetchError(ctx, property.TaxPortal, "get fallback page", err)
		}
		err = session.CheckResponse(property.TaxPortal, res)
		if err != nil {
			return Result{}, err
		}
	}

	page, err := session.ReadPage(property.TaxPortal, res)
	if err != nil {
		return Result{}, err
	}
	if err = machine.Advance(StateDone); err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.Bool("fallback", usedFallback))

	return Result{
		Page:         page,
		UsedFallback: usedFallback,
		States:       machine.History(),
	}, nil
}
