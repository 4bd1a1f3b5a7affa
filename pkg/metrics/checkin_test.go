package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNilMetricsAreNoop(t *testing.T) {
	var m *CheckInMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordGenerated(ctx, "weekly", 3)
		m.RecordMissed(ctx, 1)
		m.RecordUrgency(ctx, "overdue")
		m.RecordSubmission(ctx, true)
		m.RecordSweep(ctx, 0.2)
	})
}

func TestNew(t *testing.T) {
	m, err := New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordGenerated(context.Background(), "monthly", 6)
		m.RecordSubmission(context.Background(), false)
	})
}
