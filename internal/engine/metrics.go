package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tartampluch/go-addressbook/internal/config"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: config.MetricRefreshTotal,
		Help: "Refresh cycles by outcome (success, failed, discarded).",
	}, []string{config.MetricLabelResult})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    config.MetricRefreshDuration,
		Help:    "Duration of published refresh cycles.",
		Buckets: prometheus.DefBuckets,
	})

	peopleCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: config.MetricPeopleCached,
		Help: "People in the last derived dataset.",
	})
)
