// Package api exposes the property services over a JSON REST interface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/bids"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	report_api_request = "api.request"
	report_api_health  = "api.health"
)

// maximum size of an import upload
const maxImportBody = 8 << 20

type Lookup interface {
	FetchSource(ctx context.Context, pinStr string, source property.SourceKind) (lookup.Result, error)
	ClearCache(ctx context.Context, pinStr string) (int64, error)
}

type Aggregator interface {
	FetchAggregated(ctx context.Context, pinStr string) (aggregate.Aggregate, error)
}

type Bids interface {
	Get(ctx context.Context, pinStr string) (bids.Bid, error)
	Upsert(ctx context.Context, pinStr string, bid, overbid *string) (bids.Bid, error)
	List(ctx context.Context) ([]bids.Bid, error)
}

type Importer interface {
	Submit(ctx context.Context, pins []string) (importer.Job, error)
	Get(ctx context.Context, id string) (importer.Job, error)
}

type CacheStats interface {
	Count(ctx context.Context) (int64, error)
}

type Options struct {
	Lookup    Lookup
	Aggregate Aggregator
	Bids      Bids
	Importer  Importer
	Cache     CacheStats
	Version   string
	Time      chrono.TimeAPI
	Tel       telemetry.API
}

type Server struct {
	opts Options
	tel  telemetry.API
}

func NewServer(opts Options) *Server {
	assert.NotNil(opts.Lookup, "lookup")
	assert.NotNil(opts.Aggregate, "aggregate")
	assert.NotNil(opts.Bids, "bids")
	assert.NotNil(opts.Importer, "importer")
	assert.NotNil(opts.Cache, "cache")
	assert.NotNil(opts.Time, "time")
	assert.NotNil(opts.Tel, "tel")
	return &Server{opts: opts, tel: telemetry.NewScopedAPI("api", opts.Tel)}
}

// Router returns the handler serving every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/property/{pin}", s.handleAggregated)
		r.Get("/property/{pin}/{source}", s.handleSource)

		r.Delete("/cache", s.handleClearCache)
		r.Delete("/cache/{pin}", s.handleClearCache)

		r.Get("/bids", s.handleListBids)
		r.Get("/bids/{pin}", s.handleGetBid)
		r.Put("/bids/{pin}", s.handlePutBid)

		r.Post("/import", s.handleSubmitImport)
		r.Get("/import/{id}", s.handleGetImport)
	})
	return r
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, env := errorEnvelope(err)
	if status >= 500 {
		s.tel.ReportWarning(report_api_request, r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, env)
}

// SourceSlot is one source of an aggregated response.
type SourceSlot = Envelope

// AggregatedView is the data of GET /api/property/{pin}.
type AggregatedView struct {
	PIN     string                             `json:"pin"`
	Sources map[property.SourceKind]SourceSlot `json:"sources"`
}

func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	agg, err := s.opts.Aggregate.FetchAggregated(r.Context(), chi.URLParam(r, "pin"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := AggregatedView{
		PIN:     agg.PIN.String(),
		Sources: make(map[property.SourceKind]SourceSlot, len(agg.Slots)),
	}
	for _, slot := range agg.Slots {
		_, env := sourceEnvelope(slot.Result)
		view.Sources[slot.Source] = env
	}
	writeJSON(w, http.StatusOK, ok(view))
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	source, err := property.ParseSourceKind(chi.URLParam(r, "source"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(CodeInvalidSource, err.Error()))
		return
	}
	res, err := s.opts.Lookup.FetchSource(r.Context(), chi.URLParam(r, "pin"), source)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status, env := sourceEnvelope(res)
	writeJSON(w, status, env)
}

type clearView struct {
	Removed int64 `json:"removed"`
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	removed, err := s.opts.Lookup.ClearCache(r.Context(), chi.URLParam(r, "pin"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(clearView{Removed: removed}))
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Bids.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []bids.Bid{}
	}
	writeJSON(w, http.StatusOK, ok(list))
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	bid, err := s.opts.Bids.Get(r.Context(), chi.URLParam(r, "pin"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(bid))
}

// BidRequest is the body of PUT /api/bids/{pin}, a null or empty amount
// clears it.
type BidRequest struct {
	Bid     *string `json:"bid"`
	Overbid *string `json:"overbid"`
}

func (s *Server) handlePutBid(w http.ResponseWriter, r *http.Request) {
	var req BidRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(CodeInvalidRequest, fmt.Sprintf("decode body: %s", err)))
		return
	}
	bid, err := s.opts.Bids.Upsert(r.Context(), chi.URLParam(r, "pin"), req.Bid, req.Overbid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(bid))
}

// ImportRequest is the JSON body of POST /api/import.
type ImportRequest struct {
	Pins []string `json:"pins"`
}

func (s *Server) readImport(r *http.Request) ([]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	if mediaType == "text/csv" {
		return importer.ParsePinsCSV(r.Body)
	}
	var req ImportRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, err
	}
	return req.Pins, nil
}

func (s *Server) handleSubmitImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
	pins, err := s.readImport(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(CodeInvalidRequest, fmt.Sprintf("read pins: %s", err)))
		return
	}
	job, err := s.opts.Importer.Submit(r.Context(), pins)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ok(job))
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	job, err := s.opts.Importer.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(job))
}

// HealthView is the data of GET /api/health.
type HealthView struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Time         time.Time `json:"time"`
	CacheEntries int64     `json:"cacheEntries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.opts.Cache.Count(r.Context())
	if err != nil {
		s.tel.ReportBroken(report_api_health, err)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(HealthView{
		Status:       "ok",
		Version:      s.opts.Version,
		Time:         s.opts.Time.Now(),
		CacheEntries: count,
	}))
}
