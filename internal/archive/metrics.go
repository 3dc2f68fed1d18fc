package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	archivesBuiltTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_archives_built_total",
		Help: "Archive descriptors built, by kind",
	}, []string{"kind"})

	archiveBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wizard_archive_bytes",
		Help:    "Uncompressed size of packed archives",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})
)
