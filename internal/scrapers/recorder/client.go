// Package recorder scrapes the recorder of deeds' document search.
package recorder

import (
	"context"
	"strings"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/recorder")

const (
	report_client_search = "client.search"
	report_client_direct = "client.direct-fallback"
)

const (
	DefaultBaseUrl    = "https://crs.cookcountyclerkil.gov"
	DefaultSearchPath = "/Search"
	DefaultPostPath   = "/Search/SearchByAddress"
	DirectPath        = "/Search/ResultByPin"

	fieldToken  = "__RequestVerificationToken"
	fieldSearch = "SearchText"

	selToken     = `input[name="__RequestVerificationToken"]`
	selPinLink   = `a[href*="ResultByPin"]`
	selDocTables = "table"
)

const (
	StateInit             session.State = "init"
	StateTokenExtracted   session.State = "token-extracted"
	StateSearched         session.State = "searched"
	StateLinkResolved     session.State = "link-resolved"
	StateDirectFallback   session.State = "direct-fallback"
	StateDocumentsFetched session.State = "documents-fetched"
	StateDone             session.State = "done"
)

var transitions = map[session.State][]session.State{
	StateInit:             {StateTokenExtracted, StateDirectFallback},
	StateTokenExtracted:   {StateSearched, StateDirectFallback},
	StateSearched:         {StateLinkResolved, StateDirectFallback},
	StateLinkResolved:     {StateDocumentsFetched},
	StateDirectFallback:   {StateDocumentsFetched},
	StateDocumentsFetched: {StateDone},
}

type Options struct {
	BaseUrl    string
	SearchPath string
	PostPath   string
	Session    session.Options
	Cache      *fetchcache.Cache
}

type Client struct {
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	assert.NotNil(opts.Session.Tel, "session.Tel")

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.SearchPath == "" {
		opts.SearchPath = DefaultSearchPath
	}
	if opts.PostPath == "" {
		opts.PostPath = DefaultPostPath
	}
	opts.Session.BaseUrl = opts.BaseUrl

	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("recorder", opts.Session.Tel),
	}
}

type Result struct {
	session.Page
	UsedDirect bool
	States     []session.State
}

// DirectURL is the document list of p, reachable without a search.
func DirectURL(p pin.PIN) string {
	return DirectPath + "?id1=" + p.Digits()
}

func (c *Client) Fetch(ctx context.Context, p pin.PIN) (Result, error) {
	return session.Cached(ctx, c.opts.Cache, property.Recorder, p, func(ctx context.Context) (Result, error) {
		return c.fetch(ctx, p)
	})
}

// search runs the token and search steps, it returns the link to the
// document list or "" when the search did not produce one. Only a
// cancelled context is reported as an error, every other failure moves the
// machine to the direct fallback.
func (c *Client) search(ctx context.Context, client *resty.Client, machine *session.Machine, p pin.PIN) (string, error) {
	res, err := client.R().
		SetContext(ctx).
		Get(c.opts.SearchPath)
	if err == nil {
		err = session.CheckResponse(property.Recorder, res)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", session.FetchError(ctx, property.Recorder, "get search page", err)
		}
		c.tel.ReportWarning(report_client_search, "search page", err)
		return "", nil
	}

	doc, err := htmlutil.Document(res.String())
	if err != nil {
		return "", nil
	}
	token := doc.Find(selToken).First().AttrOr("value", "")
	if token == "" {
		c.tel.ReportWarning(report_client_search, "missing token", p.String())
		return "", nil
	}
	if err = machine.Advance(StateTokenExtracted); err != nil {
		return "", err
	}

	res, err = client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			fieldToken:  token,
			fieldSearch: p.String(),
		}).
		Post(c.opts.PostPath)
	if err == nil {
		err = session.CheckResponse(property.Recorder, res)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", session.FetchError(ctx, property.Recorder, "submit search", err)
		}
		c.tel.ReportWarning(report_client_search, "submit search", err)
		return "", nil
	}
	if err = machine.Advance(StateSearched); err != nil {
		return "", err
	}

	results, err := htmlutil.Document(res.String())
	if err != nil {
		return "", nil
	}
	link := strings.TrimSpace(results.Find(selPinLink).First().AttrOr("href", ""))
	if link == "" {
		return "", nil
	}
	return htmlutil.AbsolutizeURL(session.FinalURL(res), link), nil
}

func (c *Client) fetch(ctx context.Context, p pin.PIN) (Result, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("pin", p.String()))

	machine := session.NewMachine("recorder", StateInit, transitions)
	client, err := session.NewHttpClient(c.opts.Session)
	if err != nil {
		return Result{}, err
	}

	link, err := c.search(ctx, client, machine, p)
	if err != nil {
		span.SetStatus(codes.Error, "search failed")
		return Result{}, err
	}

	usedDirect := link == ""
	if usedDirect {
		if err = machine.Advance(StateDirectFallback); err != nil {
			return Result{}, err
		}
		c.tel.ReportDebug(report_client_direct, p.String())
		link = DirectURL(p)
	} else {
		if err = machine.Advance(StateLinkResolved); err != nil {
			return Result{}, err
		}
	}

	res, err := client.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch documents")
		return Result{}, session.FetchError(ctx, property.Recorder, "get documents", err)
	}
	err = session.CheckResponse(property.Recorder, res)
	if err != nil {
		return Result{}, err
	}

	page, err := session.ReadPage(property.Recorder, res)
	if err != nil {
		return Result{}, err
	}
	if usedDirect && !hasResultTable(page.HTML) {
		return Result{}, property.Errorf(
			property.CodeNotFound, property.Recorder,
			"no recorded documents for %s", p.String(),
		)
	}
	if err = machine.Advance(StateDocumentsFetched); err != nil {
		return Result{}, err
	}
	if err = machine.Advance(StateDone); err != nil {
		return Result{}, err
	}

	return Result{
		Page:       page,
		UsedDirect: usedDirect,
		States:     machine.History(),
	}, nil
}

func hasResultTable(html string) bool {
	doc, err := htmlutil.Document(html)
	if err != nil {
		return false
	}
	_, ok := findResultTable(doc)
	return ok
}
