package metrics

import (
	"context"
	"io"
	"time"
)

// Stage is a timed step of an install run.
type Stage string

const (
	StageFetch       Stage = "fetch"
	StageVerify      Stage = "verify"
	StageExtract     Stage = "extract"
	StagePermissions Stage = "permissions"
)

// Outcome is how a stage or a whole run ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
)

type metricsImplementation interface {
	RecordStage(ctx context.Context, stage Stage, outcome Outcome, d time.Duration)
	RecordRun(ctx context.Context, outcome Outcome, d time.Duration)
	Export(w io.Writer) error
}

// ClientMetrics records install pipeline timings.
type ClientMetrics struct {
	impl metricsImplementation
}

// NewClientMetrics returns an OpenTelemetry backed recorder, or a no-op one when disabled.
func NewClientMetrics(enabled bool) *ClientMetrics {
	if !enabled {
		return &ClientMetrics{impl: &noopMetrics{}}
	}
	return &ClientMetrics{impl: newOtelMetrics()}
}

// RecordStage records the duration of one pipeline stage.
func (c *ClientMetrics) RecordStage(ctx context.Context, stage Stage, outcome Outcome, d time.Duration) {
	if c == nil {
		return
	}
	c.impl.RecordStage(ctx, stage, outcome, d)
}

// RecordRun records the duration of a whole install run.
func (c *ClientMetrics) RecordRun(ctx context.Context, outcome Outcome, d time.Duration) {
	if c == nil {
		return
	}
	c.impl.RecordRun(ctx, outcome, d)
}

// Export writes the collected metrics in Prometheus text format.
func (c *ClientMetrics) Export(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.impl.Export(w)
}
