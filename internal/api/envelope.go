package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/bids"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

// codes that only exist at the HTTP boundary
const (
	CodeInvalidSource  property.ErrorCode = "INVALID_SOURCE"
	CodeInvalidAmount  property.ErrorCode = "INVALID_AMOUNT"
	CodeInvalidRequest property.ErrorCode = "INVALID_REQUEST"
)

// Envelope wraps every response body.
type Envelope struct {
	Success  bool               `json:"success"`
	Data     any                `json:"data,omitempty"`
	Error    string             `json:"error,omitempty"`
	Code     property.ErrorCode `json:"code,omitempty"`
	Cached   bool               `json:"cached,omitempty"`
	CachedAt *time.Time         `json:"cachedAt,omitempty"`
	Stale    bool               `json:"stale,omitempty"`
}

func ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func failure(code property.ErrorCode, message string) Envelope {
	return Envelope{Success: false, Error: message, Code: code}
}

// sourceEnvelope describes a lookup result. A record that carries nothing
// but an error is reported as a failure with the record's code.
func sourceEnvelope(res lookup.Result) (int, Envelope) {
	status := http.StatusOK
	env := ok(res.Record)
	if res.Record.Failed() {
		status = property.HTTPStatus(res.Record.ErrorCode)
		env = failure(res.Record.ErrorCode, res.Record.Error)
	}
	if res.Cached {
		cachedAt := res.CachedAt.UTC()
		env.Cached = true
		env.CachedAt = &cachedAt
		env.Stale = res.Stale
	}
	return status, env
}

// errorEnvelope maps err to a status and failure envelope.
func errorEnvelope(err error) (int, Envelope) {
	switch {
	case errors.Is(err, bids.ErrInvalidAmount):
		return http.StatusBadRequest, failure(CodeInvalidAmount, err.Error())
	case errors.Is(err, importer.ErrNoPins):
		return http.StatusBadRequest, failure(CodeInvalidRequest, err.Error())
	case errors.Is(err, importer.ErrJobNotFound):
		return http.StatusNotFound, failure(property.CodeNotFound, err.Error())
	}
	code := property.CodeOf(err)
	return property.HTTPStatus(code), failure(code, property.MessageOf(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
