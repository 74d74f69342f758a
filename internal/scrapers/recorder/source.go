package recorder

import (
	"context"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

// Source turns the recorder search into property records.
type Source struct {
	client *Client
	time   chrono.TimeAPI
}

func NewSource(client *Client, time chrono.TimeAPI) Source {
	assert.NotNil(client, "client")
	assert.NotNil(time, "time")
	return Source{client: client, time: time}
}

func (Source) Kind() property.SourceKind {
	return property.Recorder
}

// Lookup fetches and parses the record of p. Infrastructure failures are
// returned as errors, anything the recorder itself reports ends up in the
// record.
func (s Source) Lookup(ctx context.Context, p pin.PIN) (property.Record, error) {
	result, err := s.client.Fetch(ctx, p)
	if err != nil {
		if property.CodeOf(err) == property.CodeNotFound {
			return property.ErrorRecord(property.Recorder, p.String(), s.time.Now(), err), nil
		}
		return property.Record{}, err
	}

	record := Parse(result.HTML, p)
	record.FetchedAt = s.time.Now()
	if data, ok := record.Payload.(*property.RecorderData); ok {
		data.ResultURL = result.URL
	}
	return record, nil
}
