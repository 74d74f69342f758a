package gis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPin = pin.MustParse("01-01-120-006-0000")

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func readTestdata(t testing.TB, name string) string {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(contents)
}

type mapServer struct {
	query       string
	parcelFails bool
	googleHits  atomic.Int32
}

func (m *mapServer) handler(t *testing.T) http.Handler {
	image := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PIN14='01011200060000'", r.URL.Query().Get("where"))
		assert.Equal(t, "3857", r.URL.Query().Get("outSR"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(m.query))
	})
	mux.HandleFunc("/imagery/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "400,300", r.URL.Query().Get("size"))
		assert.Len(t, strings.Split(r.URL.Query().Get("bbox"), ","), 4)
		image(w)
	})
	mux.HandleFunc("/parcel/export", func(w http.ResponseWriter, r *http.Request) {
		if m.parcelFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("transparent"))
		image(w)
	})
	mux.HandleFunc("/maps/staticmap", func(w http.ResponseWriter, r *http.Request) {
		m.googleHits.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "satellite", r.URL.Query().Get("maptype"))
		image(w)
	})
	mux.HandleFunc("/maps/streetview", func(w http.ResponseWriter, r *http.Request) {
		m.googleHits.Add(1)
		image(w)
	})
	return mux
}

func newTestClient(server *httptest.Server, key string) *Client {
	return NewClient(Options{
		QueryUrl:   server.URL + "/query",
		ImageryUrl: server.URL + "/imagery/export",
		ParcelUrl:  server.URL + "/parcel/export",
		GoogleUrl:  server.URL + "/maps",
		MapsApiKey: key,
		Session: session.Options{
			Tel:     &telemetry.RecorderAPI{},
			Limiter: session.NewLimiter(1000, 1000),
		},
	})
}

func TestParse(t *testing.T) {
	record := Parse(readTestdata(t, "query.json"), testPin)
	require.Empty(t, record.Error)

	data := record.Payload.(*property.GISData)
	require.Len(t, data.Rings, 1)
	require.Len(t, data.Rings[0], 5)
	require.Len(t, data.GeographicRings[0], 5)
	require.Equal(t, "01011200060000", data.Attributes["PIN14"])

	require.InDelta(t, 42.14070014566207, data.Centroid.Lat, 1e-9)
	require.InDelta(t, -87.62146620050278, data.Centroid.Lng, 1e-9)

	requireBBox(t, property.BBox{
		XMin: -9754037, YMin: 5182034,
		XMax: -9753917, YMax: 5182124,
	}, data.BBox)
}

func TestParseEmptyAndError(t *testing.T) {
	record := Parse(readTestdata(t, "empty.json"), testPin)
	require.Equal(t, property.CodeNotFound, record.ErrorCode)

	record = Parse(readTestdata(t, "error.json"), testPin)
	require.Equal(t, property.CodeFetchError, record.ErrorCode)

	record = Parse("not json", testPin)
	require.Equal(t, property.CodeParseError, record.ErrorCode)
}

func TestFetchWithoutKey(t *testing.T) {
	m := &mapServer{query: readTestdata(t, "query.json")}
	server := httptest.NewServer(m.handler(t))
	defer server.Close()

	result, err := newTestClient(server, "").Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.Equal(t, DataURI("image/png", pngBytes), result.Images.Base)
	require.Equal(t, DataURI("image/png", pngBytes), result.Images.Parcel)
	require.Empty(t, result.Images.Satellite)
	require.Empty(t, result.Images.StreetView)
	require.Empty(t, result.Warnings)
	require.Zero(t, m.googleHits.Load())
}

func TestFetchWithKey(t *testing.T) {
	m := &mapServer{query: readTestdata(t, "query.json")}
	server := httptest.NewServer(m.handler(t))
	defer server.Close()

	result, err := newTestClient(server, "test-key").Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.NotEmpty(t, result.Images.Satellite)
	require.NotEmpty(t, result.Images.StreetView)
	require.EqualValues(t, 2, m.googleHits.Load())
}

func TestImageFailureIsWarning(t *testing.T) {
	m := &mapServer{query: readTestdata(t, "query.json"), parcelFails: true}
	server := httptest.NewServer(m.handler(t))
	defer server.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	source := NewSource(newTestClient(server, ""), chrono.NewFakeTime(now))
	record, err := source.Lookup(context.Background(), testPin)
	require.NoError(t, err)
	require.Empty(t, record.Error)

	data := record.Payload.(*property.GISData)
	require.NotEmpty(t, data.Images.Base)
	require.Empty(t, data.Images.Parcel)
	require.Len(t, data.Warnings, 1)
	require.Contains(t, data.Warnings[0], "parcel image")
}

func TestFetchNotFound(t *testing.T) {
	m := &mapServer{query: readTestdata(t, "empty.json")}
	server := httptest.NewServer(m.handler(t))
	defer server.Close()

	client := newTestClient(server, "")
	_, err := client.Fetch(context.Background(), testPin)
	require.Equal(t, property.CodeNotFound, property.CodeOf(err))

	record, err := NewSource(client, chrono.NewStandardTime()).Lookup(context.Background(), testPin)
	require.NoError(t, err)
	require.Equal(t, property.CodeNotFound, record.ErrorCode)
}

func TestFetchServiceError(t *testing.T) {
	m := &mapServer{query: readTestdata(t, "error.json")}
	server := httptest.NewServer(m.handler(t))
	defer server.Close()

	_, err := newTestClient(server, "").Fetch(context.Background(), testPin)
	require.Equal(t, property.CodeFetchError, property.CodeOf(err))
}
