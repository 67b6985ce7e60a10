package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestRecordScanCountsByOutcome(t *testing.T) {
	RegisterMetrics()
	counter := scanOutcomesTotal.WithLabelValues("already_marked")

	before := counterValue(t, counter)
	RecordScan("already_marked")
	RecordScan("already_marked")
	require.Equal(t, before+2, counterValue(t, counter))
}

func TestRecordSweepIgnoresEmptyRuns(t *testing.T) {
	RegisterMetrics()
	counter := sweepDeletedRowsTotal.WithLabelValues("qr_tokens")

	before := counterValue(t, counter)
	RecordSweep("qr_tokens", 0)
	RecordSweep("qr_tokens", 3)
	require.Equal(t, before+3, counterValue(t, counter))
}
