package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics tracks idea and token market activity derived from committed
// events.
type MarketMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	swaps        *prometheus.CounterVec
	baseVolume   *prometheus.CounterVec
	tokenVolume  *prometheus.CounterVec
	buybacks     prometheus.Counter
	tokensBurned prometheus.Counter
	settlements  *prometheus.CounterVec
	votes        *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
	roundingDust *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the lazily registered market metrics.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Name:      "operations_total",
				Help:      "Count of node operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tastefun",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution of node operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "market",
				Name:      "swaps_total",
				Help:      "Count of executed swaps by side.",
			}, []string{"side"}),
			baseVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "market",
				Name:      "base_volume_total",
				Help:      "Base currency traded by side.",
			}, []string{"side"}),
			tokenVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "market",
				Name:      "token_volume_total",
				Help:      "Theme tokens traded by side.",
			}, []string{"side"}),
			buybacks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "market",
				Name:      "buybacks_total",
				Help:      "Count of executed buybacks.",
			}),
			tokensBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "market",
				Name:      "tokens_burned_total",
				Help:      "Theme tokens destroyed by buybacks.",
			}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "ideas",
				Name:      "settlements_total",
				Help:      "Idea settlements by outcome.",
			}, []string{"outcome"}),
			votes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "ideas",
				Name:      "votes_total",
				Help:      "Votes cast by choice.",
			}, []string{"choice"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Subsystem: "ideas",
				Name:      "withdrawals_total",
				Help:      "Withdrawals from idea vaults by kind.",
			}, []string{"kind"}),
			roundingDust: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tastefun",
				Name:      "rounding_dust_total",
				Help:      "Truncation remainders moved to the dust sink by source.",
			}, []string{"source"}),
		}
		prometheus.MustRegister(
			marketRegistry.operations,
			marketRegistry.latency,
			marketRegistry.swaps,
			marketRegistry.baseVolume,
			marketRegistry.tokenVolume,
			marketRegistry.buybacks,
			marketRegistry.tokensBurned,
			marketRegistry.settlements,
			marketRegistry.votes,
			marketRegistry.withdrawals,
			marketRegistry.roundingDust,
		)
	})
	return marketRegistry
}

func label(raw string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return "unknown"
}

// ObserveOperation records the outcome and latency of a node operation.
func (m *MarketMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(label(operation), outcome).Inc()
	m.latency.WithLabelValues(label(operation)).Observe(duration.Seconds())
}

// RecordSwap records one executed trade.
func (m *MarketMetrics) RecordSwap(side string, base, tokens uint64) {
	if m == nil {
		return
	}
	side = label(side)
	m.swaps.WithLabelValues(side).Inc()
	m.baseVolume.WithLabelValues(side).Add(float64(base))
	m.tokenVolume.WithLabelValues(side).Add(float64(tokens))
}

// RecordBuyback records one executed buyback.
func (m *MarketMetrics) RecordBuyback(burned uint64) {
	if m == nil {
		return
	}
	m.buybacks.Inc()
	m.tokensBurned.Add(float64(burned))
}

// RecordSettlement records a settlement outcome, either "completed" or the
// cancellation reason.
func (m *MarketMetrics) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(label(outcome)).Inc()
}

// RecordVote records a vote on a variant or reject-all.
func (m *MarketMetrics) RecordVote(choice string) {
	if m == nil {
		return
	}
	m.votes.WithLabelValues(label(choice)).Inc()
}

// RecordWithdrawal records a payout from an idea vault.
func (m *MarketMetrics) RecordWithdrawal(kind string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(label(kind)).Inc()
}

// RecordRoundingDust adds a truncation remainder for the given source.
func (m *MarketMetrics) RecordRoundingDust(source string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.roundingDust.WithLabelValues(label(source)).Add(float64(amount))
}
