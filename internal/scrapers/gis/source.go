package gis

import (
	"context"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

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
	return property.GIS
}

// Lookup returns the parcel geometry of p together with its imagery.
func (s Source) Lookup(ctx context.Context, p pin.PIN) (property.Record, error) {
	result, err := s.client.Fetch(ctx, p)
	if err != nil {
		if property.CodeOf(err) == property.CodeNotFound {
			return property.ErrorRecord(property.GIS, p.String(), s.time.Now(), err), nil
		}
		return property.Record{}, err
	}
	return BuildRecord(result, p, s.time.Now()), nil
}

// BuildRecord parses the feature query of result and attaches its imagery.
func BuildRecord(result Result, p pin.PIN, fetchedAt time.Time) property.Record {
	record := Parse(result.Query, p)
	record.FetchedAt = fetchedAt
	if data, ok := record.Payload.(*property.GISData); ok {
		data.Images = result.Images
		data.Warnings = result.Warnings
	}
	return record
}
