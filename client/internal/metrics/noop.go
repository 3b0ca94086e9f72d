package metrics

import (
	"context"
	"io"
	"time"
)

// noopMetrics is a no-op implementation of metricsImplementation
type noopMetrics struct{}

func (s *noopMetrics) RecordStage(_ context.Context, _ Stage, _ Outcome, _ time.Duration) {
	// No-op
}

func (s *noopMetrics) RecordRun(_ context.Context, _ Outcome, _ time.Duration) {
	// No-op
}

func (s *noopMetrics) Export(_ io.Writer) error {
	return nil
}
