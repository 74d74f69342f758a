package chrono

import (
	"fmt"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

const report_cron_job = "cron.run-job"

// CronAPI schedules callbacks with standard 5 field cron expressions,
// evaluated in Chicago time.
type CronAPI interface {
	Cron(schedule string, callback func()) error
}

// StandardCron runs jobs with github.com/robfig/cron/v3. A job that is still
// running when its next tick arrives is skipped, a panicking job is reported
// and does not stop the scheduler.
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron starts the scheduler immediately, call Stop to release it.
func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(chicago),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	cronner.Start()
	return StandardCron{cron: cronner}
}

func (s StandardCron) Cron(schedule string, callback func()) error {
	_, err := s.cron.AddFunc(schedule, callback)
	if err != nil {
		return fmt.Errorf("cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Stop stops scheduling new jobs, it does not wait for running jobs.
func (s StandardCron) Stop() {
	s.cron.Stop()
}

// cronLogger forwards the scheduler's logs to telemetry, its key value pairs
// become "key: value" params.
type cronLogger struct {
	tel telemetry.API
}

func pairs(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, pairs(keysAndValues)...)
	l.tel.ReportBroken(report_cron_job, params...)
}
