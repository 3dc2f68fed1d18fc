package filegen

import (
	"time"

	"wizard/internal/artifact"
)

type Bucket struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// StorageUsage estimates the inline/blob split by re-partitioning stored files
// on UsageThreshold.
type StorageUsage struct {
	Inline Bucket `json:"inline"`
	Blob   Bucket `json:"blob"`
}

type Stats struct {
	TotalFiles     int                          `json:"total_files"`
	TotalSize      int64                        `json:"total_size"`
	ByType         map[artifact.FileType]Bucket `json:"by_type"`
	ByPhase        map[int]Bucket               `json:"by_phase"`
	ProcessingTime time.Duration                `json:"processing_time"`
	StorageUsage   StorageUsage                 `json:"storage_usage"`
	Confidence     float64                      `json:"confidence"`
	Dropped        int                          `json:"dropped"`
}

func computeStats(files []artifact.GeneratedFile, confidence float64) Stats {
	st := Stats{
		ByType:     make(map[artifact.FileType]Bucket),
		ByPhase:    make(map[int]Bucket),
		Confidence: confidence,
	}
	for _, f := range files {
		st.TotalFiles++
		st.TotalSize += f.Size
		st.ByType[f.Type] = st.ByType[f.Type].add(f.Size)
		st.ByPhase[f.Phase] = st.ByPhase[f.Phase].add(f.Size)
		if f.Size <= UsageThreshold {
			st.StorageUsage.Inline = st.StorageUsage.Inline.add(f.Size)
		} else {
			st.StorageUsage.Blob = st.StorageUsage.Blob.add(f.Size)
		}
	}
	return st
}

func (b Bucket) add(size int64) Bucket {
	return Bucket{Count: b.Count + 1, Size: b.Size + size}
}
