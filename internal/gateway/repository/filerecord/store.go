package filerecord

import (
	"context"
	"errors"
	"time"
)

// Storage placement discriminator persisted with every record.
const (
	StorageTypeDatabase = "database"
	StorageTypeStorage  = "storage"
)

// Record is the persisted shape of a generated file. Exactly one of Content and
// StorageURL is set, depending on StorageType.
type Record struct {
	ID          string
	ProjectID   string
	Name        string
	Path        string
	Type        string
	Content     []byte
	Size        int64
	AgentID     string
	Phase       int
	Metadata    map[string]any
	StorageType string
	StorageURL  *string
	Compressed  bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists file metadata rows.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	// List returns a project's records newest first, optionally for one phase.
	List(ctx context.Context, projectID string, phase *int) ([]Record, error)
	GetByIDs(ctx context.Context, ids []string) ([]Record, error)
	// ListExpired returns records whose expiry is before now.
	ListExpired(ctx context.Context, now time.Time) ([]Record, error)
	Delete(ctx context.Context, ids []string) error
}

var ErrNotFound = errors.New("file record not found")
