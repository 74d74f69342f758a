package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("go.perf_stats")

// PerfStats is one sample of process statistics.
type PerfStats struct {
	CPUPercent  float64
	AllocatedMB int64
	LiveObjects int64
	Goroutines  int64
}

// SamplePerfStats measures cpu usage over window along with the runtime's
// memory and goroutine counts.
func SamplePerfStats(ctx context.Context, window time.Duration) (PerfStats, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := PerfStats{
		AllocatedMB: int64(memStats.Alloc / 1_000_000),
		LiveObjects: int64(memStats.Mallocs) - int64(memStats.Frees),
		Goroutines:  int64(runtime.NumGoroutine()),
	}
	usage, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return stats, err
	}
	if len(usage) > 0 {
		stats.CPUPercent = usage[0]
	}
	return stats, nil
}

// InstrumentPerfStats records process statistics as gauges every interval
// until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	// the gauges are created here so they bind to the provider installed
	// by Setup
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	liveObjectsGauge, _ := meter.Int64Gauge("live_objects")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := SamplePerfStats(ctx, time.Second)
				if err != nil {
					slog.Warn("failed to read cpu usage", "err", err)
				} else {
					cpuGauge.Record(ctx, stats.CPUPercent)
				}
				memoryGauge.Record(ctx, stats.AllocatedMB)
				liveObjectsGauge.Record(ctx, stats.LiveObjects)
				goroutineGauge.Record(ctx, stats.Goroutines)
			case <-ctx.Done():
				return
			}
		}
	}()
}
