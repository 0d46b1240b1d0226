package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMarketMetricsAccumulate(t *testing.T) {
	m := Market()
	if Market() != m {
		t.Fatalf("registry should be a singleton")
	}
	before := testutil.ToFloat64(m.baseVolume.WithLabelValues("buy"))
	m.RecordSwap("buy", 1_000_000, 42)
	if got := testutil.ToFloat64(m.baseVolume.WithLabelValues("buy")) - before; got != 1_000_000 {
		t.Fatalf("base volume delta = %v", got)
	}
	m.RecordRoundingDust("trade_fee", 0)
	m.RecordRoundingDust("trade_fee", 3)
	if got := testutil.ToFloat64(m.roundingDust.WithLabelValues("trade_fee")); got != 3 {
		t.Fatalf("rounding dust = %v", got)
	}
	m.ObserveOperation("", time.Millisecond, nil)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("unknown", "success")); got < 1 {
		t.Fatalf("operation not recorded")
	}
	var nilMetrics *MarketMetrics
	nilMetrics.RecordBuyback(1)
}
