package property

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the source specific part of a Record. It is implemented by
// exactly one type per SourceKind so callers can switch on the concrete type.
type Payload interface {
	Kind() SourceKind
}

// NewPayload returns an empty payload of the variant belonging to kind.
func NewPayload(kind SourceKind) (Payload, error) {
	switch kind {
	case TaxPortal:
		return &TaxPortalData{}, nil
	case Clerk:
		return &ClerkData{}, nil
	case Recorder:
		return &RecorderData{}, nil
	case GIS:
		return &GISData{}, nil
	}
	return nil, fmt.Errorf("no payload for source '%s'", kind)
}

// Record is one parsed result for a (PIN, source) pair. Payload and Error may
// both be set, which means the record was only partially extracted.
type Record struct {
	Source    SourceKind
	PIN       string
	Payload   Payload
	Error     string
	ErrorCode ErrorCode
	FetchedAt time.Time
}

// NewRecord creates a record with no payload.
func NewRecord(source SourceKind, pin string, fetchedAt time.Time) Record {
	return Record{Source: source, PIN: pin, FetchedAt: fetchedAt}
}

// ErrorRecord creates a record carrying only err.
func ErrorRecord(source SourceKind, pin string, fetchedAt time.Time, err error) Record {
	return Record{
		Source:    source,
		PIN:       pin,
		Error:     MessageOf(err),
		ErrorCode: CodeOf(err),
		FetchedAt: fetchedAt,
	}
}

// HasData reports whether any payload was extracted.
func (r Record) HasData() bool {
	return r.Payload != nil
}

// Failed reports whether the record carries an error and nothing else.
func (r Record) Failed() bool {
	return r.Error != "" && r.Payload == nil
}

type recordJSON struct {
	Source    SourceKind      `json:"source"`
	PIN       string          `json:"pin"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      ErrorCode       `json:"code,omitempty"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Source:    r.Source,
		PIN:       r.PIN,
		Error:     r.Error,
		Code:      r.ErrorCode,
		FetchedAt: r.FetchedAt,
	}
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, err
		}
		out.Data = data
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	err := json.Unmarshal(data, &in)
	if err != nil {
		return err
	}
	*r = Record{
		Source:    in.Source,
		PIN:       in.PIN,
		Error:     in.Error,
		ErrorCode: in.Code,
		FetchedAt: in.FetchedAt,
	}
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return nil
	}
	payload, err := DecodePayload(in.Source, in.Data)
	if err != nil {
		return err
	}
	r.Payload = payload
	return nil
}

// DecodePayload decodes data into the payload variant of kind.
func DecodePayload(kind SourceKind, data []byte) (Payload, error) {
	payload, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(data, payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return payload, nil
}
