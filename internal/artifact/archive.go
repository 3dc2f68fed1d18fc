package artifact

import (
	"fmt"
	"time"
)

// ZipArchive describes a downloadable bundle of a project's files. It is built
// on demand and never cached.
type ZipArchive struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ProjectID   string          `json:"project_id"`
	Files       []GeneratedFile `json:"files"`
	TotalSize   int64           `json:"total_size"`
	CreatedAt   time.Time       `json:"created_at"`
	DownloadURL string          `json:"download_url,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// StorageStrategy selects where file content lives.
type StorageStrategy string

const (
	StrategyDatabase StorageStrategy = "database"
	StrategyStorage  StorageStrategy = "storage"
	StrategyHybrid   StorageStrategy = "hybrid"
)

// StorageOptions is the placement policy applied by the storage manager.
type StorageOptions struct {
	Strategy           StorageStrategy `json:"strategy"`
	MaxSizeForDB       int64           `json:"max_size_for_db"`
	CompressionEnabled bool            `json:"compression_enabled"`
	RetentionDays      int             `json:"retention_days,omitempty"` // 0 keeps files forever
}

func (o StorageOptions) Validate() error {
	switch o.Strategy {
	case StrategyDatabase, StrategyStorage:
	case StrategyHybrid:
		if o.MaxSizeForDB < 0 {
			return fmt.Errorf("max_size_for_db must be >= 0, got %d", o.MaxSizeForDB)
		}
	default:
		return fmt.Errorf("unknown storage strategy %q", o.Strategy)
	}
	if o.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be >= 0, got %d", o.RetentionDays)
	}
	return nil
}

// InlineFor reports whether a file of the given size is kept in the metadata row.
func (o StorageOptions) InlineFor(size int64) bool {
	switch o.Strategy {
	case StrategyDatabase:
		return true
	case StrategyStorage:
		return false
	default:
		return size <= o.MaxSizeForDB
	}
}

// ZipEntry is one flattened archive member ready for packing.
type ZipEntry struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// ZipStructure is the flattened listing of an archive.
type ZipStructure struct {
	Name      string     `json:"name"`
	Files     []ZipEntry `json:"files"`
	TotalSize int64      `json:"total_size"`
}
