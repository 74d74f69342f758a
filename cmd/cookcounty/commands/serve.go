package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/api"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/cachestore"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/serviceutil"
	libtelemetry "github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/telemetry"

	"github.com/spf13/cobra"
)

const perfStatsInterval = 30 * time.Second

const (
	report_refresh_list   = "refresh.list-stale"
	report_refresh_submit = "refresh.submit-job"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	otel, err := libtelemetry.Setup(ctx, "cookcounty", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer otel.Shutdown(context.WithoutCancel(ctx))
	libtelemetry.InstrumentPerfStats(ctx, perfStatsInterval)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := a.newRunner(ctx)
	defer runner.Wait()

	if cfg.Refresh.Schedule != "" {
		cron := chrono.NewStandardCron(a.tel)
		refreshTel := telemetry.NewScopedAPI("refresh", a.tel)
		err = cron.Cron(cfg.Refresh.Schedule, func() {
			refreshStale(ctx, a.store, runner, cfg.Refresh.Limit, refreshTel)
		})
		if err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
		defer cron.Stop()
	}

	server := api.NewServer(api.Options{
		Lookup:    a.lookup,
		Aggregate: a.coordinator,
		Bids:      a.bids,
		Importer:  runner,
		Cache:     a.store,
		Version:   Version,
		Time:      a.time,
		Tel:       a.tel,
	})
	return serviceutil.StartHttpServer(ctx, cfg.Listen, server.Router())
}

type staleLister interface {
	ListStale(ctx context.Context, limit int) ([]cachestore.Entry, error)
}

type submitter interface {
	Submit(ctx context.Context, pins []string) (importer.Job, error)
}

// refreshStale submits the PINs of up to limit stale entries as one import
// job, the job's lookups then write fresh records through the cache.
func refreshStale(ctx context.Context, store staleLister, runner submitter, limit int, tel telemetry.API) {
	entries, err := store.ListStale(ctx, limit)
	if err != nil {
		tel.ReportBroken(report_refresh_list, err)
		return
	}
	if len(entries) == 0 {
		return
	}

	pins := make([]string, len(entries))
	for i, e := range entries {
		pins[i] = e.Record.PIN
	}
	job, err := runner.Submit(ctx, pins)
	if err != nil {
		tel.ReportBroken(report_refresh_submit, err)
		return
	}
	tel.ReportDebug("submitted stale refresh", "job", job.ID, "pins", job.Total)
}
