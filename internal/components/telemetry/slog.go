package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var countGauge, _ = otel.Meter("telemetry").Int64Gauge(
	"telemetry.count",
	metric.WithDescription("latest value of every ReportCount call, keyed by id"),
)

// SlogAPI implements API on top of log/slog. Counts are also recorded on the
// telemetry.count gauge.
type SlogAPI struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// attrs turns params into key value pairs, errors are keyed "err".
func attrs(out []any, params []any) []any {
	for i, p := range params {
		if err, ok := p.(error); ok {
			out = append(out, "err", err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken component", attrs([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", attrs([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, attrs(nil, params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	if countGauge != nil {
		countGauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
	s.logger().Debug("count", "id", id, "n", count)
}
