package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipd_jobs_started_total",
		Help: "Pipeline runs that reached record creation.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipd_jobs_completed_total",
		Help: "Pipeline runs that finished, thumbnailed and notified.",
	})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipd_jobs_failed_total",
		Help: "Pipeline runs that failed after record creation, by stage.",
	}, []string{"stage"})

	LiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipd_jobs_live",
		Help: "Pipeline runs currently between admission and a terminal state.",
	})
)
