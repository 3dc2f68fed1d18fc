package filegen

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"wizard/internal/extract"
)

var (
	generationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wizard_filegen_duration_seconds",
		Help:    "Time to extract, expand and store one response.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent"})

	filesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_filegen_files_total",
		Help: "Files produced by generation requests, by type.",
	}, []string{"type"})

	degradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wizard_filegen_degraded_total",
		Help: "Requests whose extraction or expansion failed and returned no files.",
	})
)

// agentLabel bounds label cardinality to the known agents.
func agentLabel(agentID string) string {
	if extract.KnownAgent(agentID) {
		return agentID
	}
	return "other"
}
