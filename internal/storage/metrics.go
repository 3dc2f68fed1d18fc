package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_storage_files_stored_total",
		Help: "Files persisted, by placement (database or storage).",
	}, []string{"placement"})

	bytesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_storage_bytes_stored_total",
		Help: "Uncompressed bytes persisted, by placement.",
	}, []string{"placement"})

	storeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wizard_storage_store_failures_total",
		Help: "Files dropped from a batch because persisting them failed.",
	})

	fetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wizard_storage_fetch_failures_total",
		Help: "Reads that degraded to the error placeholder.",
	})

	expiredDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wizard_storage_expired_deleted_total",
		Help: "Records removed by expiry sweeps.",
	})

	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wizard_storage_sweep_runs_total",
		Help: "Expiry sweeps executed.",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wizard_storage_sweep_duration_seconds",
		Help:    "Duration of expiry sweeps.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)
