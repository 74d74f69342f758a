// Package session builds the http clients every county scraper talks through
// and holds the pieces their protocol state machines share.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/htmlutil"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	Accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	AcceptLanguage = "en-US,en;q=0.9"

	DefaultTimeout = 30 * time.Second
	DefaultRate    = 2
	DefaultBurst   = 2
)

// Options configures NewHttpClient. Only BaseUrl and Tel are required.
type Options struct {
	BaseUrl string
	Timeout time.Duration
	// Limiter is shared by every session of one source so concurrent lookups
	// cannot exceed the source's rate, nil creates a private one.
	Limiter *rate.Limiter
	Tel     telemetry.API
	// Transport replaces the default round tripper.
	Transport http.RoundTripper
	// NoCookieJar leaves cookie handling to the caller.
	NoCookieJar bool
	// BrowserTLS wraps the transport so its TLS handshake looks like a
	// browser's.
	BrowserTLS bool
	// Output receives a dump of every exchange when non-nil.
	Output restyutil.InstrumentOutput
}

// NewLimiter creates the rate limiter of one source, rps <= 0 uses the
// default.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewHttpClient creates a fresh session, every fetch should use its own so
// cookies and cancellation never leak between lookups.
func NewHttpClient(opts Options) (*resty.Client, error) {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}
	if opts.BrowserTLS {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if !opts.NoCookieJar {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		client.SetCookieJar(jar)
	} else {
		client.SetCookieJar(nil)
	}

	client.SetHeader("User-Agent", UserAgent)
	client.SetHeader("Accept", Accept)
	client.SetHeader("Accept-Language", AcceptLanguage)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}
	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	if opts.Tel != nil {
		telemetry.InstrumentResty(client, opts.Tel)
	}
	restyutil.InstrumentClient(client, otel.Tracer("scrapers/session"), opts.Output)

	return client, nil
}

// CheckResponse converts a non 2xx response into a FETCH_ERROR.
func CheckResponse(source property.SourceKind, res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return property.Errorf(
		property.CodeFetchError, source,
		"%s %s: unexpected status %s",
		res.Request.Method, res.Request.URL, res.Status(),
	)
}

// FetchError wraps a transport error as a FETCH_ERROR, when ctx is done the
// context's error is returned instead so callers can tell a cancelled lookup
// from a broken source.
func FetchError(ctx context.Context, source property.SourceKind, step string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", step, ctx.Err())
	}
	return property.NewError(property.CodeFetchError, source, fmt.Errorf("%s: %w", step, err))
}

// FinalURL is the url a response was served from after redirects.
func FinalURL(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	parsed, err := url.Parse(res.Request.URL)
	if err != nil {
		return &url.URL{}
	}
	return parsed
}

// Page is a fetched document with its relative urls made absolute.
type Page struct {
	HTML string
	URL  string
}

// ReadPage absolutizes the body of res against the url it was served from.
func ReadPage(source property.SourceKind, res *resty.Response) (Page, error) {
	base := FinalURL(res)
	html, err := htmlutil.AbsolutizeHTML(res.String(), base)
	if err != nil {
		return Page{}, property.NewError(property.CodeParseError, source, fmt.Errorf("read page: %w", err))
	}
	return Page{HTML: html, URL: base.String()}, nil
}
