package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellcast_ndfd_probes_total",
			Help: "Total NDFD existence probes by HTTP status",
		},
		[]string{"status"},
	)

	TidyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellcast_tidy_outcomes_total",
			Help: "Tidy pass outcomes by variable and reason",
		},
		[]string{"variable", "reason"},
	)

	RowsTidied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellcast_rows_tidied_total",
			Help: "Total tidy forecast rows produced",
		},
		[]string{"variable"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shellcast_ingest_duration_seconds",
			Help:    "End-to-end duration of one pipeline run",
			Buckets: prometheus.DefBuckets,
		},
	)
)
