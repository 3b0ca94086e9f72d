package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// otelMetrics is the OpenTelemetry implementation of ClientMetrics
type otelMetrics struct {
	reader        *sdkmetric.ManualReader
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	stageDuration metric.Float64Histogram
	runDuration   metric.Float64Histogram
}

func newOtelMetrics() metricsImplementation {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	meter := meterProvider.Meter("berry.launcher")

	stageDuration, err := meter.Float64Histogram(
		"berry.install.stage.duration",
		metric.WithDescription("Duration of a single install pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Warnf("failed to create stage histogram: %v", err)
		return &noopMetrics{}
	}

	runDuration, err := meter.Float64Histogram(
		"berry.install.run.duration",
		metric.WithDescription("Duration of a whole install run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Warnf("failed to create run histogram: %v", err)
		return &noopMetrics{}
	}

	return &otelMetrics{
		reader:        reader,
		meterProvider: meterProvider,
		meter:         meter,
		stageDuration: stageDuration,
		runDuration:   runDuration,
	}
}

func (m *otelMetrics) RecordStage(ctx context.Context, stage Stage, outcome Outcome, d time.Duration) {
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("outcome", string(outcome)),
	))
}

func (m *otelMetrics) RecordRun(ctx context.Context, outcome Outcome, d time.Duration) {
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
	))
}

// Export writes metrics in Prometheus text format
func (m *otelMetrics) Export(w io.Writer) error {
	if m.reader == nil {
		return fmt.Errorf("metrics reader not initialized")
	}

	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(context.Background(), &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			hist, ok := md.Data.(metricdata.Histogram[float64])
			if !ok {
				continue
			}

			name := promName(md.Name)
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", name, md.Description, name); err != nil {
				return err
			}

			for _, dp := range hist.DataPoints {
				if err := writeHistogramPoint(w, name, dp); err != nil {
					return err
				}
			}

			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeHistogramPoint(w io.Writer, name string, dp metricdata.HistogramDataPoint[float64]) error {
	labels := make([]string, 0, dp.Attributes.Len())
	for _, attr := range dp.Attributes.ToSlice() {
		labels = append(labels, fmt.Sprintf("%s=%q", attr.Key, attr.Value.AsString()))
	}
	labelStr := strings.Join(labels, ",")

	withLabel := func(extra string) string {
		if labelStr == "" {
			return extra
		}
		if extra == "" {
			return labelStr
		}
		return labelStr + "," + extra
	}

	cumulative := uint64(0)
	for i, bound := range dp.Bounds {
		cumulative += dp.BucketCounts[i]
		if _, err := fmt.Fprintf(w, "%s_bucket{%s} %d\n", name, withLabel(fmt.Sprintf("le=\"%g\"", bound)), cumulative); err != nil {
			return err
		}
	}
	if len(dp.BucketCounts) > len(dp.Bounds) {
		cumulative += dp.BucketCounts[len(dp.BucketCounts)-1]
	}
	if _, err := fmt.Fprintf(w, "%s_bucket{%s} %d\n", name, withLabel(`le="+Inf"`), cumulative); err != nil {
		return err
	}

	suffix := ""
	if labelStr != "" {
		suffix = "{" + labelStr + "}"
	}
	if _, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n", name, suffix, dp.Sum, name, suffix, dp.Count); err != nil {
		return err
	}
	return nil
}

func promName(name string) string {
	return strings.ReplaceAll(name, ".", "_") + "_seconds"
}
