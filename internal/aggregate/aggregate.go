// Package aggregate fans a single PIN out to every county source.
package aggregate

import (
	"context"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("aggregate")

const report_coordinator_source = "coordinator.fetch-source"

// Fetcher returns the record of one source for a validated PIN.
type Fetcher interface {
	Kinds() []property.SourceKind
	Fetch(ctx context.Context, p pin.PIN, source property.SourceKind) (lookup.Result, error)
}

// Slot is the outcome of one source. A failed source still has a slot, its
// record then only carries the error.
type Slot struct {
	Source property.SourceKind
	lookup.Result
}

// Aggregate is every source's view of a PIN, in source order.
type Aggregate struct {
	PIN   pin.PIN
	Slots []Slot
}

// Slot returns the slot of source.
func (a Aggregate) Slot(source property.SourceKind) (Slot, bool) {
	for _, s := range a.Slots {
		if s.Source == source {
			return s, true
		}
	}
	return Slot{}, false
}

// Failed lists the sources whose record carries nothing but an error.
func (a Aggregate) Failed() []property.SourceKind {
	var out []property.SourceKind
	for _, s := range a.Slots {
		if s.Record.Failed() {
			out = append(out, s.Source)
		}
	}
	return out
}

type Coordinator struct {
	fetcher Fetcher
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewCoordinator(fetcher Fetcher, time chrono.TimeAPI, tel telemetry.API) Coordinator {
	assert.NotNil(fetcher, "fetcher")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")
	return Coordinator{
		fetcher: fetcher,
		time:    time,
		tel:     telemetry.NewScopedAPI("aggregate", tel),
	}
}

// FetchAggregated queries every source concurrently. Only an invalid PIN is
// returned as an error, a source that fails gets an error record in its slot
// and never affects its siblings.
func (c Coordinator) FetchAggregated(ctx context.Context, pinStr string) (Aggregate, error) {
	p, err := pin.Parse(pinStr)
	if err != nil {
		return Aggregate{}, err
	}

	ctx, span := tracer.Start(ctx, "coordinator:FetchAggregated")
	defer span.End()
	span.SetAttributes(attribute.String("pin", p.String()))

	kinds := c.fetcher.Kinds()
	slots := make([]Slot, len(kinds))

	// plain group, one source failing must not cancel the others
	var group errgroup.Group
	for i, kind := range kinds {
		group.Go(func() error {
			slots[i] = c.fetchSlot(ctx, p, kind)
			return nil
		})
	}
	group.Wait()

	return Aggregate{PIN: p, Slots: slots}, nil
}

func (c Coordinator) fetchSlot(ctx context.Context, p pin.PIN, kind property.SourceKind) Slot {
	res, err := c.fetcher.Fetch(ctx, p, kind)
	if err != nil {
		c.tel.ReportWarning(report_coordinator_source, p.String(), string(kind), err)
		return Slot{
			Source: kind,
			Result: lookup.Result{
				Record: property.ErrorRecord(kind, p.String(), c.time.Now(), err),
			},
		}
	}
	return Slot{Source: kind, Result: res}
}
