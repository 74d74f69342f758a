// Package importer runs bulk lookups of many PINs in paced batches and
// persists their progress.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	report_runner_update   = "runner.update-progress"
	report_runner_finish   = "runner.finish-job"
	report_runner_progress = "runner.pins-processed"
)

const (
	DefaultBatchSize = 5
	DefaultPause     = 2 * time.Second
)

var (
	ErrNoPins      = errors.New("no PINs to import")
	ErrJobNotFound = errors.New("import job not found")
)

// JobStatus is the state of a whole import.
type JobStatus string

const (
	JobRunning     JobStatus = "running"
	JobComplete    JobStatus = "complete"
	JobInterrupted JobStatus = "interrupted"
)

// EntryStatus is the state of one PIN of an import, it only moves forward:
// pending -> fetching -> complete | error.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryFetching EntryStatus = "fetching"
	EntryComplete EntryStatus = "complete"
	EntryError    EntryStatus = "error"
)

type Entry struct {
	PIN      string      `json:"pin"`
	Position int         `json:"position"`
	Status   EntryStatus `json:"status"`
	Error    string      `json:"error,omitempty"`
}

type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Entries   []Entry   `json:"entries"`
}

// Done reports whether every entry has been processed.
func (j Job) Done() bool {
	return j.Completed+j.Failed >= j.Total
}

// Aggregator looks up every source of a PIN.
type Aggregator interface {
	FetchAggregated(ctx context.Context, pinStr string) (aggregate.Aggregate, error)
}

type Options struct {
	// BatchSize is both how many PINs make up a batch and how many of them
	// are fetched at once.
	BatchSize int
	// Pause is the wait between two batches.
	Pause time.Duration
}

type Runner struct {
	ctx    context.Context
	qry    *db.Queries
	makeTx db.MakeTx
	agg    Aggregator
	time   chrono.TimeAPI
	tel    telemetry.API
	opts   Options

	wg sync.WaitGroup
}

// NewRunner creates a runner whose background jobs live as long as ctx.
func NewRunner(ctx context.Context, database *sql.DB, agg Aggregator, time chrono.TimeAPI, tel telemetry.API, opts Options) *Runner {
	assert.NotNil(ctx, "ctx")
	assert.NotNil(database, "database")
	assert.NotNil(agg, "agg")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	}

	return &Runner{
		ctx:    ctx,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		agg:    agg,
		time:   time,
		tel:    telemetry.NewScopedAPI("importer", tel),
		opts:   opts,
	}
}

func unavailable(op string, err error) error {
	return property.NewError(property.CodeBackendUnavailable, "", fmt.Errorf("%s: %w", op, err))
}

type submission struct {
	pin   string
	valid bool
	err   string
}

// dedupe canonicalizes pins and drops repeats, keeping submission order.
func dedupe(pins []string) []submission {
	seen := make(map[string]bool, len(pins))
	out := make([]submission, 0, len(pins))
	for _, raw := range pins {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		entry := submission{pin: raw}
		p, err := pin.ParseLoose(raw)
		if err != nil {
			entry.err = property.MessageOf(err)
		} else {
			entry.pin = p.String()
			entry.valid = true
		}
		if seen[entry.pin] {
			continue
		}
		seen[entry.pin] = true
		out = append(out, entry)
	}
	return out
}

// Submit persists a job for pins and starts processing it in the
// background. Invalid PINs are recorded as failed right away.
func (r *Runner) Submit(ctx context.Context, pins []string) (Job, error) {
	entries := dedupe(pins)
	if len(entries) == 0 {
		return Job{}, ErrNoPins
	}

	id := uuid.NewString()
	now := r.time.Now().UnixMilli()

	var valid []string
	failed := 0
	for _, e := range entries {
		if e.valid {
			valid = append(valid, e.pin)
		} else {
			failed++
		}
	}
	status := JobRunning
	if len(valid) == 0 {
		status = JobComplete
	}

	tx, discard, commit, err := r.makeTx(ctx)
	if err != nil {
		return Job{}, unavailable("begin import", err)
	}
	defer discard()

	err = tx.CreateImportJob(ctx, db.ImportJob{
		ID:        id,
		Status:    string(status),
		Total:     int64(len(entries)),
		Failed:    int64(failed),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Job{}, unavailable("create import job", err)
	}
	for i, e := range entries {
		row := db.ImportPin{
			JobID:     id,
			Pin:       e.pin,
			Position:  int64(i),
			Status:    string(EntryPending),
			UpdatedAt: now,
		}
		if !e.valid {
			row.Status = string(EntryError)
			row.Error = e.err
		}
		err = tx.CreateImportPin(ctx, row)
		if err != nil {
			return Job{}, unavailable("create import pin", err)
		}
	}
	err = commit()
	if err != nil {
		return Job{}, unavailable("commit import", err)
	}

	if len(valid) > 0 {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run(id, valid)
		}()
	}

	return r.Get(ctx, id)
}

// Wait blocks until every submitted job has stopped.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) setEntry(ctx context.Context, jobId, p string, status EntryStatus, message string) {
	err := r.qry.SetImportPinStatus(ctx, db.SetImportPinStatusParams{
		Status:    string(status),
		Error:     message,
		UpdatedAt: r.time.Now().UnixMilli(),
		JobID:     jobId,
		Pin:       p,
	})
	if err != nil {
		r.tel.ReportBroken(report_runner_update, jobId, p, err)
	}
}

func (r *Runner) processPin(jobId, p string) {
	r.setEntry(r.ctx, jobId, p, EntryFetching, "")

	status := EntryComplete
	message := ""
	agg, err := r.agg.FetchAggregated(r.ctx, p)
	switch {
	case err != nil:
		status = EntryError
		message = property.MessageOf(err)
	case len(agg.Failed()) == len(agg.Slots):
		status = EntryError
		message = failureSummary(agg)
	}
	// a pin that reached fetching must not be left there when the runner stops
	done := context.WithoutCancel(r.ctx)
	r.setEntry(done, jobId, p, status, message)

	var completed, failed int64
	if status == EntryComplete {
		completed = 1
	} else {
		failed = 1
	}
	err = r.qry.IncrementImportJob(done, db.IncrementImportJobParams{
		Completed: completed,
		Failed:    failed,
		UpdatedAt: r.time.Now().UnixMilli(),
		ID:        jobId,
	})
	if err != nil {
		r.tel.ReportBroken(report_runner_update, jobId, p, err)
	}
}

func failureSummary(agg aggregate.Aggregate) string {
	parts := make([]string, 0, len(agg.Slots))
	for _, slot := range agg.Slots {
		parts = append(parts, fmt.Sprintf("%s: %s", slot.Source, slot.Record.Error))
	}
	return strings.Join(parts, "; ")
}

func (r *Runner) pause() bool {
	if r.opts.Pause == 0 {
		return r.ctx.Err() == nil
	}
	timer := time.NewTimer(r.opts.Pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Runner) run(jobId string, pins []string) {
	processed := int64(0)
	for start := 0; start < len(pins); start += r.opts.BatchSize {
		if start > 0 && !r.pause() {
			break
		}
		if r.ctx.Err() != nil {
			break
		}

		end := min(start+r.opts.BatchSize, len(pins))
		var group errgroup.Group
		group.SetLimit(r.opts.BatchSize)
		for _, p := range pins[start:end] {
			group.Go(func() error {
				r.processPin(jobId, p)
				return nil
			})
		}
		group.Wait()

		processed += int64(end - start)
		r.tel.ReportCount(report_runner_progress, processed)
	}

	status := JobComplete
	if r.ctx.Err() != nil {
		status = JobInterrupted
	}
	// the runner context may be done, the final status must still land
	err := r.qry.SetImportJobStatus(context.WithoutCancel(r.ctx), db.SetImportJobStatusParams{
		Status:    string(status),
		UpdatedAt: r.time.Now().UnixMilli(),
		ID:        jobId,
	})
	if err != nil {
		r.tel.ReportBroken(report_runner_finish, jobId, err)
	}
}

// Get returns a job with its entries in submission order.
func (r *Runner) Get(ctx context.Context, id string) (Job, error) {
	row, err := r.qry.GetImportJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: '%s'", ErrJobNotFound, id)
	}
	if err != nil {
		return Job{}, unavailable("get import job", err)
	}
	pins, err := r.qry.ListImportPins(ctx, id)
	if err != nil {
		return Job{}, unavailable("list import pins", err)
	}

	job := Job{
		ID:        row.ID,
		Status:    JobStatus(row.Status),
		Total:     int(row.Total),
		Completed: int(row.Completed),
		Failed:    int(row.Failed),
		CreatedAt: time.UnixMilli(row.CreatedAt).In(chrono.Chicago()),
		UpdatedAt: time.UnixMilli(row.UpdatedAt).In(chrono.Chicago()),
		Entries:   make([]Entry, len(pins)),
	}
	for i, p := range pins {
		job.Entries[i] = Entry{
			PIN:      p.Pin,
			Position: int(p.Position),
			Status:   EntryStatus(p.Status),
			Error:    p.Error,
		}
	}
	return job, nil
}
