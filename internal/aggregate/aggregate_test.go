package aggregate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mutex sync.Mutex
	calls []property.SourceKind
	// ok lists the sources that succeed, everything else fails
	ok map[property.SourceKind]bool
	// release, when set, blocks every fetch until it is closed
	release chan struct{}
}

func (f *fakeFetcher) Kinds() []property.SourceKind {
	return property.Sources()
}

func (f *fakeFetcher) Fetch(ctx context.Context, p pin.PIN, source property.SourceKind) (lookup.Result, error) {
	f.mutex.Lock()
	f.calls = append(f.calls, source)
	f.mutex.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return lookup.Result{}, ctx.Err()
		}
	}
	if !f.ok[source] {
		return lookup.Result{}, property.Errorf(property.CodeFetchError, source, "upstream returned 502")
	}
	record := property.NewRecord(source, p.String(), time.Now())
	record.Payload = &property.RecorderData{Documents: []property.Document{}}
	return lookup.Result{Record: record}, nil
}

func newCoordinator(fetcher Fetcher) Coordinator {
	return NewCoordinator(fetcher, chrono.NewStandardTime(), &telemetry.RecorderAPI{})
}

func TestInvalidPinAbortsBeforeFanOut(t *testing.T) {
	fetcher := &fakeFetcher{}
	_, err := newCoordinator(fetcher).FetchAggregated(context.Background(), "01-01-120-006")
	require.Equal(t, property.CodeInvalidPin, property.CodeOf(err))
	require.Empty(t, fetcher.calls)
}

func TestPartialFailureIsContained(t *testing.T) {
	fetcher := &fakeFetcher{ok: map[property.SourceKind]bool{property.Recorder: true}}
	agg, err := newCoordinator(fetcher).FetchAggregated(context.Background(), "01-01-120-006-0000")
	require.NoError(t, err)
	require.Len(t, agg.Slots, 4)

	for i, kind := range property.Sources() {
		require.Equal(t, kind, agg.Slots[i].Source)
	}

	recorder, ok := agg.Slot(property.Recorder)
	require.True(t, ok)
	require.True(t, recorder.Record.HasData())
	require.Empty(t, recorder.Record.Error)

	require.ElementsMatch(t, []property.SourceKind{property.TaxPortal, property.Clerk, property.GIS}, agg.Failed())
	for _, kind := range agg.Failed() {
		slot, _ := agg.Slot(kind)
		require.Equal(t, property.CodeFetchError, slot.Record.ErrorCode)
		require.Equal(t, kind, slot.Record.Source)
	}
}

func TestEverySourceDownStillAnswers(t *testing.T) {
	fetcher := &fakeFetcher{}
	agg, err := newCoordinator(fetcher).FetchAggregated(context.Background(), "01-01-120-006-0000")
	require.NoError(t, err)
	require.Len(t, agg.Failed(), 4)
}

func TestSourcesRunConcurrently(t *testing.T) {
	fetcher := &fakeFetcher{
		ok:      map[property.SourceKind]bool{property.TaxPortal: true, property.Clerk: true, property.Recorder: true, property.GIS: true},
		release: make(chan struct{}),
	}

	done := make(chan Aggregate)
	go func() {
		agg, err := newCoordinator(fetcher).FetchAggregated(context.Background(), "01-01-120-006-0000")
		if err != nil {
			panic(fmt.Sprint(err))
		}
		done <- agg
	}()

	// every fetch must have started before any of them is released
	require.Eventually(t, func() bool {
		fetcher.mutex.Lock()
		defer fetcher.mutex.Unlock()
		return len(fetcher.calls) == 4
	}, time.Second, 5*time.Millisecond)
	close(fetcher.release)

	agg := <-done
	require.Empty(t, agg.Failed())
}

func TestCancellationFailsSlots(t *testing.T) {
	fetcher := &fakeFetcher{release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg, err := newCoordinator(fetcher).FetchAggregated(ctx, "01-01-120-006-0000")
	require.NoError(t, err)
	require.Len(t, agg.Failed(), 4)
}
