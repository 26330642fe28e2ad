package state

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockminer",
		Subsystem: "pipeline",
		Name:      "transactions_total",
		Help:      "Count of candidate transactions by outcome.",
	}, []string{"outcome"})
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockminer",
		Subsystem: "pipeline",
		Name:      "rejections_total",
		Help:      "Count of rejected transactions by reason.",
	}, []string{"reason"})
	blockWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockminer",
		Subsystem: "block",
		Name:      "weight",
		Help:      "Weight of the selected transactions of the last sealed block.",
	})
	blockFees = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockminer",
		Subsystem: "block",
		Name:      "fees",
		Help:      "Fees collected by the last sealed block.",
	})
	sealDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockminer",
		Subsystem: "block",
		Name:      "seal_duration_seconds",
		Help:      "Duration of the proof of work search.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
)

func observeReport(r Report) {
	transactionsTotal.WithLabelValues("accepted").Add(float64(r.Accepted))
	transactionsTotal.WithLabelValues("rejected").Add(float64(len(r.Rejected)))
	transactionsTotal.WithLabelValues("cascaded").Add(float64(len(r.Cascaded)))
	transactionsTotal.WithLabelValues("selected").Add(float64(r.Selected))

	for reason, count := range r.RejectedByReason() {
		rejectionsTotal.WithLabelValues(reason).Add(float64(count))
	}

	blockWeight.Set(float64(r.Weight))
	blockFees.Set(float64(r.Fees))
}

func observeSeal(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	sealDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}
