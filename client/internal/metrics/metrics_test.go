package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMetrics_Export(t *testing.T) {
	m := NewClientMetrics(true)
	ctx := context.Background()

	m.RecordStage(ctx, StageFetch, OutcomeSuccess, 1500*time.Millisecond)
	m.RecordStage(ctx, StageExtract, OutcomeFailure, 200*time.Millisecond)
	m.RecordRun(ctx, OutcomeFailure, 2*time.Second)

	var buf bytes.Buffer
	require.NoError(t, m.Export(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE berry_install_stage_duration_seconds histogram")
	assert.Contains(t, out, `berry_install_stage_duration_seconds_count{outcome="success",stage="fetch"} 1`)
	assert.Contains(t, out, `berry_install_stage_duration_seconds_sum{outcome="failure",stage="extract"} 0.2`)
	assert.Contains(t, out, `berry_install_run_duration_seconds_bucket{outcome="failure",le="+Inf"} 1`)
}

func TestClientMetrics_Disabled(t *testing.T) {
	m := NewClientMetrics(false)
	m.RecordRun(context.Background(), OutcomeSuccess, time.Second)

	var buf bytes.Buffer
	require.NoError(t, m.Export(&buf))
	assert.Empty(t, buf.String())

	var nilMetrics *ClientMetrics
	nilMetrics.RecordStage(context.Background(), StageFetch, OutcomeSuccess, time.Second)
	assert.NoError(t, nilMetrics.Export(&buf))
}
