// Package clerk scrapes the county clerk's tax delinquency search.
package clerk

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/clerk")

const report_client_extract_token = "client.extract-token"

const (
	DefaultBaseUrl = "https://taxdelinquent.cookcountyclerkil.gov"
	DefaultPath    = "/"

	fieldToken = "__RequestVerificationToken"
	fieldPin   = "Pin"
)

// the hidden input's attributes come in either order
var tokenRegexes = []*regexp.Regexp{
	regexp.MustCompile(`<input[^>]*name="__RequestVerificationToken"[^>]*value="([^"]+)"`),
	regexp.MustCompile(`<input[^>]*value="([^"]+)"[^>]*name="__RequestVerificationToken"`),
}

const (
	StateInit           session.State = "init"
	StateTokenExtracted session.State = "token-extracted"
	StateSubmitted      session.State = "submitted"
	StateDone           session.State = "done"
)

var transitions = map[session.State][]session.State{
	StateInit:           {StateTokenExtracted},
	StateTokenExtracted: {StateSubmitted},
	StateSubmitted:      {StateDone},
}

type Options struct {
	BaseUrl string
	Path    string
	Session session.Options
	Cache   *fetchcache.Cache
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
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	opts.Session.BaseUrl = opts.BaseUrl
	// cookies are carried by hand from the token page to the search
	opts.Session.NoCookieJar = true

	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("clerk", opts.Session.Tel),
	}
}

type Result struct {
	session.Page
	States []session.State
}

// ExtractToken finds the anti-forgery token of the search form.
func ExtractToken(html string) (string, error) {
	for _, re := range tokenRegexes {
		groups := re.FindStringSubmatch(html)
		if len(groups) == 2 && groups[1] != "" {
			return groups[1], nil
		}
	}
	return "", fmt.Errorf("could not find %s", fieldToken)
}

func (c *Client) Fetch(ctx context.Context, p pin.PIN) (Result, error) {
	return session.Cached(ctx, c.opts.Cache, property.Clerk, p, func(ctx context.Context) (Result, error) {
		return c.fetch(ctx, p)
	})
}

func (c *Client) fetch(ctx context.Context, p pin.PIN) (Result, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("pin", p.String()))

	machine := session.NewMachine("clerk", StateInit, transitions)
	client, err := session.NewHttpClient(c.opts.Session)
	if err != nil {
		return Result{}, err
	}

	res, err := client.R().
		SetContext(ctx).
		Get(c.opts.Path)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch root page")
		return Result{}, session.FetchError(ctx, property.Clerk, "get root page", err)
	}
	err = session.CheckResponse(property.Clerk, res)
	if err != nil {
		return Result{}, err
	}

	token, err := ExtractToken(res.String())
	if err != nil {
		c.tel.ReportBroken(report_client_extract_token, err, p.String())
		span.SetStatus(codes.Error, "failed to extract token")
		return Result{}, property.NewError(property.CodeParseError, property.Clerk, err)
	}
	cookies := captureCookies(res.Cookies())
	if err = machine.Advance(StateTokenExtracted); err != nil {
		return Result{}, err
	}

	res, err = client.R().
		SetContext(ctx).
		SetCookies(cookies).
		SetFormData(map[string]string{
			fieldToken: token,
			fieldPin:   p.String(),
		}).
		Post(c.opts.Path)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit search")
		return Result{}, session.FetchError(ctx, property.Clerk, "submit search", err)
	}
	err = session.CheckResponse(property.Clerk, res)
	if err != nil {
		return Result{}, err
	}
	if err = machine.Advance(StateSubmitted); err != nil {
		return Result{}, err
	}

	page, err := session.ReadPage(property.Clerk, res)
	if err != nil {
		return Result{}, err
	}
	if err = machine.Advance(StateDone); err != nil {
		return Result{}, err
	}
	return Result{Page: page, States: machine.History()}, nil
}

// captureCookies keeps only the name and value of each Set-Cookie, which is
// all a request cookie carries.
func captureCookies(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		out = append(out, &http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return out
}
