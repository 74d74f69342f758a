package importer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/sqliteutil"

	"github.com/stretchr/testify/require"
)

type fakeAggregator struct {
	mutex    sync.Mutex
	inflight int
	peak     int
	order    []string
	// down lists PINs whose every source fails
	down map[string]bool
}

func (f *fakeAggregator) FetchAggregated(ctx context.Context, pinStr string) (aggregate.Aggregate, error) {
	f.mutex.Lock()
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	f.order = append(f.order, pinStr)
	f.mutex.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mutex.Lock()
	f.inflight--
	f.mutex.Unlock()

	p, err := pin.Parse(pinStr)
	if err != nil {
		return aggregate.Aggregate{}, err
	}
	agg := aggregate.Aggregate{PIN: p}
	for _, kind := range property.Sources() {
		record := property.NewRecord(kind, pinStr, time.Now())
		if f.down[pinStr] {
			record = property.ErrorRecord(kind, pinStr, time.Now(), property.Errorf(property.CodeFetchError, kind, "timeout"))
		} else {
			record.Payload = &property.RecorderData{Documents: []property.Document{}}
		}
		agg.Slots = append(agg.Slots, aggregate.Slot{Source: kind, Result: lookup.Result{Record: record}})
	}
	return agg, nil
}

func newRunner(t *testing.T, ctx context.Context, agg Aggregator, opts Options) *Runner {
	database := sqliteutil.OpenMemory(t, sqliteutil.WithSchema(db.Schema))
	return NewRunner(ctx, database, agg, chrono.NewStandardTime(), &telemetry.RecorderAPI{}, opts)
}

func TestRunnerProcessesEveryPin(t *testing.T) {
	ctx := context.Background()
	agg := &fakeAggregator{down: map[string]bool{"16-10-421-053-0000": true}}
	runner := newRunner(t, ctx, agg, Options{BatchSize: 2})

	pins := []string{
		"01-01-120-006-0000",
		"16104210530000",
		"not a pin",
		"01-01-120-006-0000",
		"17-16-400-018-0000",
		"20-22-111-012-0000",
	}
	job, err := runner.Submit(ctx, pins)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, 5, job.Total)
	require.Equal(t, 1, job.Failed)

	runner.Wait()

	job, err = runner.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, JobComplete, job.Status)
	require.True(t, job.Done())
	require.Equal(t, 3, job.Completed)
	require.Equal(t, 2, job.Failed)

	expected := []Entry{
		{PIN: "01-01-120-006-0000", Position: 0, Status: EntryComplete},
		{PIN: "16-10-421-053-0000", Position: 1, Status: EntryError},
		{PIN: "not a pin", Position: 2, Status: EntryError},
		{PIN: "17-16-400-018-0000", Position: 3, Status: EntryComplete},
		{PIN: "20-22-111-012-0000", Position: 4, Status: EntryComplete},
	}
	require.Len(t, job.Entries, len(expected))
	for i, e := range expected {
		require.Equal(t, e.PIN, job.Entries[i].PIN)
		require.Equal(t, e.Position, job.Entries[i].Position)
		require.Equal(t, e.Status, job.Entries[i].Status, e.PIN)
	}
	require.Contains(t, job.Entries[1].Error, "tax-portal: timeout")
	require.Contains(t, job.Entries[2].Error, "invalid PIN")

	require.LessOrEqual(t, agg.peak, 2)
	require.Len(t, agg.order, 4)
}

func TestBatchesRunInSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	agg := &fakeAggregator{}
	runner := newRunner(t, ctx, agg, Options{BatchSize: 1, Pause: time.Millisecond})

	pins := []string{"01-01-120-006-0000", "16-10-421-053-0000", "17-16-400-018-0000"}
	_, err := runner.Submit(ctx, pins)
	require.NoError(t, err)
	runner.Wait()

	require.Equal(t, pins, agg.order)
	require.Equal(t, 1, agg.peak)
}

func TestInterruptedJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := &fakeAggregator{}
	runner := newRunner(t, ctx, agg, Options{BatchSize: 1, Pause: time.Hour})

	job, err := runner.Submit(ctx, []string{"01-01-120-006-0000", "16-10-421-053-0000"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := runner.Get(context.Background(), job.ID)
		return err == nil && current.Completed == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	runner.Wait()

	job, err = runner.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, JobInterrupted, job.Status)
	require.Equal(t, EntryPending, job.Entries[1].Status)
}

// blockingAggregator holds every fetch until the runner context is done.
type blockingAggregator struct {
	started chan struct{}
}

func (b *blockingAggregator) FetchAggregated(ctx context.Context, pinStr string) (aggregate.Aggregate, error) {
	close(b.started)
	<-ctx.Done()
	return aggregate.Aggregate{}, ctx.Err()
}

func TestInterruptedMidFetchSettlesEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := &blockingAggregator{started: make(chan struct{})}
	runner := newRunner(t, ctx, agg, Options{BatchSize: 1})

	job, err := runner.Submit(ctx, []string{"01-01-120-006-0000"})
	require.NoError(t, err)

	<-agg.started
	cancel()
	runner.Wait()

	job, err = runner.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, JobInterrupted, job.Status)
	require.Len(t, job.Entries, 1)
	require.Equal(t, EntryError, job.Entries[0].Status)
	require.NotEmpty(t, job.Entries[0].Error)
	require.Equal(t, 1, job.Failed)
}

func TestSubmitRejectsEmpty(t *testing.T) {
	runner := newRunner(t, context.Background(), &fakeAggregator{}, Options{})
	_, err := runner.Submit(context.Background(), []string{" ", ""})
	require.ErrorIs(t, err, ErrNoPins)

	_, err = runner.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestOnlyInvalidPinsCompleteImmediately(t *testing.T) {
	runner := newRunner(t, context.Background(), &fakeAggregator{}, Options{})
	job, err := runner.Submit(context.Background(), []string{"123"})
	require.NoError(t, err)
	require.Equal(t, JobComplete, job.Status)
	require.True(t, job.Done())
}

func TestParsePinsCSV(t *testing.T) {
	input := strings.Join([]string{
		"\ufeffPIN,Address",
		"01-01-120-006-0000,123 Main St",
		"16104210530000",
		"",
		" 17-16-400-018-0000 ,x,y",
		"garbage",
	}, "\n")

	pins, err := ParsePinsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{
		"01-01-120-006-0000",
		"16-10-421-053-0000",
		"17-16-400-018-0000",
		"garbage",
	}, pins)

	pins, err = ParsePinsCSV(strings.NewReader("01-01-120-006-0000\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"01-01-120-006-0000"}, pins)
}
