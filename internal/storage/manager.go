// Package storage places generated files inline or in blob storage and reads
// them back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"wizard/internal/artifact"
	"wizard/internal/gateway/repository/blob"
	"wizard/internal/gateway/repository/filerecord"
)

// ErrorPlaceholder replaces content that could not be loaded.
const ErrorPlaceholder = "[Error loading file content]"

// Manager applies a StorageOptions placement policy on write and reassembles
// GeneratedFile values on read.
type Manager struct {
	records filerecord.Store
	blobs   blob.Store
	logger  *slog.Logger
	now     func() time.Time
	codec   *codec
}

type Option func(*Manager)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(records filerecord.Store, blobs blob.Store, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		records: records,
		blobs:   blobs,
		logger:  logger.With(slog.String("component", "storage")),
		now:     time.Now,
		codec:   c,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close releases the compression codec.
func (m *Manager) Close() {
	if m != nil && m.codec != nil {
		m.codec.close()
	}
}

// BlobPath is the object key for a file placed in blob storage.
func BlobPath(projectID, fileID, filePath string) string {
	return path.Join("projects", projectID, fileID, path.Clean("/"+filePath))
}

// StoreFiles persists files one by one. A file that fails is logged and left
// out of the result; callers compare lengths to detect drops. An invalid
// policy, a cancelled context, or a non-empty batch where every file failed
// is returned as an error.
func (m *Manager) StoreFiles(ctx context.Context, files []artifact.GeneratedFile, opts artifact.StorageOptions) ([]artifact.GeneratedFile, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("storage options: %w", err)
	}
	stored := make([]artifact.GeneratedFile, 0, len(files))
	var failures []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		out, err := m.storeOne(ctx, f, opts)
		if err != nil {
			storeFailuresTotal.Inc()
			failures = append(failures, fmt.Errorf("%s: %w", f.Path, err))
			m.logger.Warn("store file failed",
				slog.String("file_id", f.ID),
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		stored = append(stored, out)
	}
	if len(files) > 0 && len(stored) == 0 {
		return nil, fmt.Errorf("no files stored: %w", errors.Join(failures...))
	}
	return stored, nil
}

func (m *Manager) storeOne(ctx context.Context, f artifact.GeneratedFile, opts artifact.StorageOptions) (artifact.GeneratedFile, error) {
	out := f.Clone()
	payload := []byte(f.Content)
	compressed := opts.CompressionEnabled && f.Size > CompressionThreshold
	if compressed {
		payload = m.codec.compress(payload)
	}

	now := m.now().UTC()
	var expiresAt *time.Time
	if opts.RetentionDays > 0 {
		t := now.AddDate(0, 0, opts.RetentionDays)
		expiresAt = &t
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = now
	}

	rec := filerecord.Record{
		ID:         f.ID,
		ProjectID:  f.ProjectID,
		Name:       f.Name,
		Path:       f.Path,
		Type:       string(f.Type),
		Size:       f.Size,
		AgentID:    f.AgentID,
		Phase:      f.Phase,
		Compressed: compressed,
		ExpiresAt:  expiresAt,
		CreatedAt:  created,
		UpdatedAt:  now,
	}

	out.SetMeta(artifact.MetaCompressed, compressed)
	var blobKey string
	if opts.InlineFor(f.Size) {
		rec.StorageType = filerecord.StorageTypeDatabase
		rec.Content = payload
		out.SetMeta(artifact.MetaStorageType, filerecord.StorageTypeDatabase)
	} else {
		blobKey = BlobPath(f.ProjectID, f.ID, f.Path)
		url, err := m.blobs.Upload(ctx, blobKey, payload, ContentType(f.Name))
		if err != nil {
			return artifact.GeneratedFile{}, fmt.Errorf("upload blob: %w", err)
		}
		rec.StorageType = filerecord.StorageTypeStorage
		rec.StorageURL = &url
		out.SetMeta(artifact.MetaStorageType, filerecord.StorageTypeStorage)
		out.SetMeta(artifact.MetaStorageURL, url)
		out.SetMeta(artifact.MetaStoragePath, blobKey)
		out.Content = ""
	}
	rec.Metadata = out.Clone().Metadata

	if err := m.records.Insert(ctx, rec); err != nil {
		if blobKey != "" {
			if derr := m.blobs.Delete(ctx, blobKey); derr != nil {
				m.logger.Warn("orphaned blob after failed insert",
					slog.String("path", blobKey),
					slog.String("error", derr.Error()),
				)
			}
		}
		return artifact.GeneratedFile{}, fmt.Errorf("insert record: %w", err)
	}

	filesStoredTotal.WithLabelValues(rec.StorageType).Inc()
	bytesStoredTotal.WithLabelValues(rec.StorageType).Add(float64(f.Size))
	return out, nil
}

// GetProjectFiles returns a project's files newest first, optionally for one
// phase. Blob fetch or decompression failures degrade to ErrorPlaceholder.
func (m *Manager) GetProjectFiles(ctx context.Context, projectID string, phase *int) ([]artifact.GeneratedFile, error) {
	recs, err := m.records.List(ctx, projectID, phase)
	if err != nil {
		return nil, fmt.Errorf("list files for %s: %w", projectID, err)
	}
	signer, _ := m.blobs.(blob.Signer)
	out := make([]artifact.GeneratedFile, 0, len(recs))
	for _, rec := range recs {
		typ, err := artifact.ParseFileType(rec.Type)
		if err != nil {
			m.logger.Warn("stored file has unknown type",
				slog.String("file_id", rec.ID),
				slog.String("type", rec.Type),
			)
			typ = artifact.FileTypeDocumentation
		}
		f := artifact.GeneratedFile{
			ID:        rec.ID,
			Name:      rec.Name,
			Path:      rec.Path,
			Content:   m.loadContent(ctx, rec),
			Type:      typ,
			Size:      rec.Size,
			AgentID:   rec.AgentID,
			ProjectID: rec.ProjectID,
			Phase:     rec.Phase,
			CreatedAt: rec.CreatedAt,
		}
		for k, v := range rec.Metadata {
			f.SetMeta(k, v)
		}
		f.SetMeta(artifact.MetaStorageType, rec.StorageType)
		f.SetMeta(artifact.MetaCompressed, rec.Compressed)
		if rec.StorageURL != nil {
			f.SetMeta(artifact.MetaStorageURL, *rec.StorageURL)
			if signer != nil {
				if signed, err := signer.SignedURL(ctx, blobKeyFor(rec)); err == nil {
					f.SetMeta(artifact.MetaDownloadURL, signed)
				}
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *Manager) loadContent(ctx context.Context, rec filerecord.Record) string {
	raw := rec.Content
	if rec.StorageType == filerecord.StorageTypeStorage {
		if rec.StorageURL == nil {
			return m.placeholder(rec, errors.New("missing storage url"))
		}
		fetched, err := m.blobs.Fetch(ctx, *rec.StorageURL)
		if err != nil {
			return m.placeholder(rec, err)
		}
		raw = fetched
	}
	if rec.Compressed {
		plain, err := m.codec.decompress(raw)
		if err != nil {
			return m.placeholder(rec, fmt.Errorf("decompress: %w", err))
		}
		raw = plain
	}
	return string(raw)
}

func (m *Manager) placeholder(rec filerecord.Record, err error) string {
	fetchFailuresTotal.Inc()
	m.logger.Warn("load file content failed",
		slog.String("file_id", rec.ID),
		slog.String("error", err.Error()),
	)
	return ErrorPlaceholder
}

// DeleteFiles removes blobs best effort, then the metadata rows. Ids with no
// record are ignored unless none of them exist, which is ErrNotFound. A
// failing metadata delete is returned.
func (m *Manager) DeleteFiles(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	recs, err := m.records.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up files: %w", err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("delete files: %w", filerecord.ErrNotFound)
	}
	return m.deleteRecords(ctx, recs)
}

func (m *Manager) deleteRecords(ctx context.Context, recs []filerecord.Record) error {
	if len(recs) == 0 {
		return nil
	}
	for _, rec := range recs {
		if rec.StorageType != filerecord.StorageTypeStorage {
			continue
		}
		key := blobKeyFor(rec)
		if err := m.blobs.Delete(ctx, key); err != nil {
			m.logger.Warn("delete blob failed",
				slog.String("file_id", rec.ID),
				slog.String("path", key),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := m.records.Delete(ctx, recordIDs(recs)); err != nil {
		return fmt.Errorf("delete file records: %w", err)
	}
	return nil
}

// DeletePhaseFiles removes every file of one project phase and returns how
// many were removed.
func (m *Manager) DeletePhaseFiles(ctx context.Context, projectID string, phase int) (int, error) {
	recs, err := m.records.List(ctx, projectID, &phase)
	if err != nil {
		return 0, fmt.Errorf("list phase %d files: %w", phase, err)
	}
	if err := m.deleteRecords(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// CleanupExpiredFiles deletes records whose expiry has passed.
func (m *Manager) CleanupExpiredFiles(ctx context.Context) (int, error) {
	recs, err := m.records.ListExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("list expired files: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if err := m.deleteRecords(ctx, recs); err != nil {
		return 0, err
	}
	expiredDeletedTotal.Add(float64(len(recs)))
	return len(recs), nil
}

func blobKeyFor(rec filerecord.Record) string {
	if key, ok := rec.Metadata[artifact.MetaStoragePath].(string); ok && key != "" {
		return key
	}
	return BlobPath(rec.ProjectID, rec.ID, rec.Path)
}

func recordIDs(recs []filerecord.Record) []string {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids
}
