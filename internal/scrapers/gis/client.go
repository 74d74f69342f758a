// Package gis queries the county's parcel map service and renders imagery of
// a parcel.
package gis

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("scrapers/gis")

const report_client_image = "client.image"

const (
	DefaultQueryUrl   = "https://gis.cookcountyil.gov/traditional/rest/services/cookVwrDynmc/MapServer/44/query"
	DefaultImageryUrl = "https://gis.cookcountyil.gov/imagery/rest/services/CookOrtho2023/MapServer/export"
	DefaultParcelUrl  = "https://gis.cookcountyil.gov/traditional/rest/services/cookVwrDynmc/MapServer/export"
	DefaultGoogleUrl  = "https://maps.googleapis.com/maps/api"

	satelliteZoom = "19"
)

type Options struct {
	QueryUrl   string
	ImageryUrl string
	ParcelUrl  string
	GoogleUrl  string
	// MapsApiKey enables the satellite and street view images.
	MapsApiKey string
	Session    session.Options
	Cache      *fetchcache.Cache
}

type Client struct {
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	assert.NotNil(opts.Session.Tel, "session.Tel")

	if opts.QueryUrl == "" {
		opts.QueryUrl = DefaultQueryUrl
	}
	if opts.ImageryUrl == "" {
		opts.ImageryUrl = DefaultImageryUrl
	}
	if opts.ParcelUrl == "" {
		opts.ParcelUrl = DefaultParcelUrl
	}
	if opts.GoogleUrl == "" {
		opts.GoogleUrl = DefaultGoogleUrl
	}
	opts.Session.BaseUrl = ""

	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("gis", opts.Session.Tel),
	}
}

// Result is the raw feature query and the imagery rendered for it.
type Result struct {
	Query    string
	Images   property.MapImages
	Warnings []string
}

func (c *Client) Fetch(ctx context.Context, p pin.PIN) (Result, error) {
	return session.Cached(ctx, c.opts.Cache, property.GIS, p, func(ctx context.Context) (Result, error) {
		return c.fetch(ctx, p)
	})
}

func (c *Client) fetch(ctx context.Context, p pin.PIN) (Result, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("pin", p.String()))

	client, err := session.NewHttpClient(c.opts.Session)
	if err != nil {
		return Result{}, err
	}

	res, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"where":          fmt.Sprintf("PIN14='%s'", p.Digits()),
			"outFields":      "*",
			"returnGeometry": "true",
			"outSR":          "3857",
			"f":              "json",
		}).
		Get(c.opts.QueryUrl)
	if err != nil {
		span.SetStatus(codes.Error, "feature query failed")
		return Result{}, session.FetchError(ctx, property.GIS, "query features", err)
	}
	err = session.CheckResponse(property.GIS, res)
	if err != nil {
		return Result{}, err
	}

	body := res.String()
	decoded, err := decodeQuery(body)
	if err != nil {
		return Result{}, property.NewError(property.CodeParseError, property.GIS, fmt.Errorf("decode feature query: %w", err))
	}
	if decoded.Error != nil {
		return Result{}, property.Errorf(
			property.CodeFetchError, property.GIS,
			"feature query failed (%d): %s", decoded.Error.Code, decoded.Error.Message,
		)
	}
	if len(decoded.Features) == 0 {
		return Result{}, property.Errorf(property.CodeNotFound, property.GIS, "no parcel for %s", p.String())
	}

	result := Result{Query: body}
	record := Parse(body, p)
	data, ok := record.Payload.(*property.GISData)
	if !ok || record.Error != "" {
		return result, nil
	}
	result.Images, result.Warnings = c.fetchImages(ctx, client, data)
	return result, nil
}

type imageRequest struct {
	name   string
	url    string
	params map[string]string
	target *string
}

func (c *Client) imageRequests(data *property.GISData, images *property.MapImages) []imageRequest {
	bbox := fmt.Sprintf("%f,%f,%f,%f", data.BBox.XMin, data.BBox.YMin, data.BBox.XMax, data.BBox.YMax)
	size := fmt.Sprintf("%d,%d", ImageWidth, ImageHeight)
	exportParams := func(transparent string) map[string]string {
		return map[string]string{
			"bbox":        bbox,
			"bboxSR":      "3857",
			"imageSR":     "3857",
			"size":        size,
			"format":      "png",
			"transparent": transparent,
			"f":           "image",
		}
	}

	requests := []imageRequest{
		{name: "base", url: c.opts.ImageryUrl, params: exportParams("false"), target: &images.Base},
		{name: "parcel", url: c.opts.ParcelUrl, params: exportParams("true"), target: &images.Parcel},
	}
	if c.opts.MapsApiKey == "" {
		return requests
	}

	center := fmt.Sprintf("%f,%f", data.Centroid.Lat, data.Centroid.Lng)
	googleSize := fmt.Sprintf("%dx%d", ImageWidth, ImageHeight)
	return append(
		requests,
		imageRequest{
			name: "satellite",
			url:  strings.TrimSuffix(c.opts.GoogleUrl, "/") + "/staticmap",
			params: map[string]string{
				"center":  center,
				"zoom":    satelliteZoom,
				"size":    googleSize,
				"maptype": "satellite",
				"key":     c.opts.MapsApiKey,
			},
			target: &images.Satellite,
		},
		imageRequest{
			name: "street view",
			url:  strings.TrimSuffix(c.opts.GoogleUrl, "/") + "/streetview",
			params: map[string]string{
				"location": center,
				"size":     googleSize,
				"key":      c.opts.MapsApiKey,
			},
			target: &images.StreetView,
		},
	)
}

// fetchImages never fails, images that cannot be fetched become warnings.
func (c *Client) fetchImages(ctx context.Context, client *resty.Client, data *property.GISData) (property.MapImages, []string) {
	var images property.MapImages
	var mutex sync.Mutex
	warnings := []string{}

	group := errgroup.Group{}
	group.SetLimit(2)
	for _, req := range c.imageRequests(data, &images) {
		group.Go(func() error {
			uri, err := fetchImage(ctx, client, req.url, req.params)
			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				c.tel.ReportWarning(report_client_image, req.name, err)
				warnings = append(warnings, fmt.Sprintf("%s image: %s", req.name, err.Error()))
				return nil
			}
			*req.target = uri
			return nil
		})
	}
	group.Wait()

	if len(warnings) == 0 {
		warnings = nil
	}
	return images, warnings
}

func fetchImage(ctx context.Context, client *resty.Client, url string, params map[string]string) (string, error) {
	res, err := client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return "", err
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("unexpected status %s", res.Status())
	}
	mediaType, _, err := mime.ParseMediaType(res.Header().Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("unexpected content type '%s'", res.Header().Get("Content-Type"))
	}
	return DataURI(mediaType, res.Body()), nil
}

// DataURI embeds contents as a base64 data uri.
func DataURI(mediaType string, contents []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(contents))
}
