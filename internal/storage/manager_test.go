package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizard/internal/artifact"
	"wizard/internal/gateway/repository/blob"
	"wizard/internal/gateway/repository/filerecord"
)

type fixture struct {
	records *filerecord.MemoryStore
	blobs   *blob.MemoryStore
	manager *Manager
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records: filerecord.NewMemoryStore(),
		blobs:   blob.NewMemoryStore(),
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(f.records, f.blobs, logger, WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func sizedFile(id string, size, phase int) artifact.GeneratedFile {
	content := strings.Repeat("x", size)
	return artifact.GeneratedFile{
		ID:        id,
		Name:      id + ".md",
		Path:      "docs/" + id + ".md",
		Content:   content,
		Type:      artifact.FileTypeDocumentation,
		Size:      int64(len(content)),
		ProjectID: "p1",
		AgentID:   "business-analyst",
		Phase:     phase,
	}
}

func hybrid(threshold int64) artifact.StorageOptions {
	return artifact.StorageOptions{Strategy: artifact.StrategyHybrid, MaxSizeForDB: threshold}
}

func TestStoreFilesHybridPlacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{
		sizedFile("small", 500, 2),
		sizedFile("large", 2000, 2),
	}, hybrid(1024))
	require.NoError(t, err)
	require.Len(t, stored, 2)

	recs, err := f.records.GetByIDs(ctx, []string{"small", "large"})
	require.NoError(t, err)
	byID := map[string]filerecord.Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}

	small := byID["small"]
	assert.Equal(t, filerecord.StorageTypeDatabase, small.StorageType)
	assert.NotNil(t, small.Content)
	assert.Nil(t, small.StorageURL)

	large := byID["large"]
	assert.Equal(t, filerecord.StorageTypeStorage, large.StorageType)
	assert.Nil(t, large.Content)
	require.NotNil(t, large.StorageURL)
	assert.Equal(t, 1, f.blobs.Keys())

	assert.Equal(t, filerecord.StorageTypeStorage, stored[1].MetaString(artifact.MetaStorageType))
	assert.Empty(t, stored[1].Content)
	assert.Equal(t, int64(2000), stored[1].Size)
}

func TestStoreFilesStrategies(t *testing.T) {
	tests := []struct {
		strategy artifact.StorageStrategy
		want     string
	}{
		{artifact.StrategyDatabase, filerecord.StorageTypeDatabase},
		{artifact.StrategyStorage, filerecord.StorageTypeStorage},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			f := newFixture(t)
			stored, err := f.manager.StoreFiles(context.Background(),
				[]artifact.GeneratedFile{sizedFile("a", 10, 1), sizedFile("b", 5000, 1)},
				artifact.StorageOptions{Strategy: tt.strategy})
			require.NoError(t, err)
			for _, s := range stored {
				assert.Equal(t, tt.want, s.MetaString(artifact.MetaStorageType))
			}
		})
	}
}

func TestStoreFilesRejectsInvalidOptions(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.StoreFiles(context.Background(), nil, artifact.StorageOptions{Strategy: "cloud"})
	assert.Error(t, err)
}

func TestStoreFilesSkipsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files := []artifact.GeneratedFile{sizedFile("a", 10, 1), sizedFile("a", 10, 1), sizedFile("b", 10, 1)}
	stored, err := f.manager.StoreFiles(ctx, files, hybrid(1024))

	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, 2, f.records.Len())
}

type unreachableRecords struct {
	*filerecord.MemoryStore
}

func (unreachableRecords) Insert(context.Context, filerecord.Record) error {
	return errors.New("connection refused")
}

func TestStoreFilesFailsWhenNothingIsStored(t *testing.T) {
	blobs := blob.NewMemoryStore()
	m, err := NewManager(unreachableRecords{filerecord.NewMemoryStore()}, blobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer m.Close()

	stored, err := m.StoreFiles(context.Background(),
		[]artifact.GeneratedFile{sizedFile("a", 10, 1), sizedFile("b", 2000, 1)}, hybrid(1024))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, stored)
	assert.Equal(t, 0, blobs.Keys())
}

func TestStoreFilesEmptyBatch(t *testing.T) {
	f := newFixture(t)
	stored, err := f.manager.StoreFiles(context.Background(), nil, hybrid(1024))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStoreFilesStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stored, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("a", 10, 1)}, hybrid(1024))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, stored)
}

func TestRoundTripWithCompression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := artifact.StorageOptions{Strategy: artifact.StrategyHybrid, MaxSizeForDB: 3000, CompressionEnabled: true}

	files := []artifact.GeneratedFile{
		sizedFile("tiny", 100, 3),
		sizedFile("inline", 2000, 3),
		sizedFile("blob", 5000, 3),
	}
	_, err := f.manager.StoreFiles(ctx, files, opts)
	require.NoError(t, err)

	recs, err := f.records.GetByIDs(ctx, []string{"tiny", "inline"})
	require.NoError(t, err)
	for _, r := range recs {
		if r.ID == "tiny" {
			assert.False(t, r.Compressed)
		} else {
			assert.True(t, r.Compressed)
			assert.Less(t, len(r.Content), 2000)
		}
	}

	phase := 3
	got, err := f.manager.GetProjectFiles(ctx, "p1", &phase)
	require.NoError(t, err)
	require.Len(t, got, 3)
	byID := map[string]artifact.GeneratedFile{}
	for _, g := range got {
		byID[g.ID] = g
	}
	for _, want := range files {
		g := byID[want.ID]
		assert.Equal(t, want.Content, g.Content, want.ID)
		assert.Equal(t, want.Size, g.Size, want.ID)
		assert.Equal(t, want.Type, g.Type)
	}
}

func TestGetProjectFilesPlaceholderOnFetchFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("big", 2000, 1), sizedFile("small", 10, 1)}, hybrid(1024))
	require.NoError(t, err)
	f.blobs.FailFetch = true

	got, err := f.manager.GetProjectFiles(ctx, "p1", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, g := range got {
		if g.ID == "big" {
			assert.Equal(t, ErrorPlaceholder, g.Content)
			assert.Equal(t, int64(2000), g.Size)
		} else {
			assert.Equal(t, strings.Repeat("x", 10), g.Content)
		}
	}
}

func TestDeleteFilesRemovesBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("big", 2000, 1), sizedFile("small", 10, 1)}, hybrid(1024))
	require.NoError(t, err)

	require.NoError(t, f.manager.DeleteFiles(ctx, []string{"big"}))
	assert.Equal(t, 0, f.blobs.Keys())
	assert.Equal(t, 1, f.records.Len())
}

func TestDeleteFilesUnknownIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.manager.DeleteFiles(ctx, []string{"missing"})
	assert.ErrorIs(t, err, filerecord.ErrNotFound)

	_, err = f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("a", 10, 1)}, hybrid(1024))
	require.NoError(t, err)
	require.NoError(t, f.manager.DeleteFiles(ctx, []string{"a", "missing"}))
	assert.Equal(t, 0, f.records.Len())
}

func TestGetProjectFilesUnknownStoredType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.records.Insert(ctx, filerecord.Record{
		ID:          "odd",
		ProjectID:   "p1",
		Name:        "odd.md",
		Path:        "docs/odd.md",
		Type:        "spreadsheet",
		Content:     []byte("x"),
		Size:        1,
		Phase:       1,
		StorageType: filerecord.StorageTypeDatabase,
		CreatedAt:   f.now,
	}))
	require.NoError(t, f.records.Insert(ctx, filerecord.Record{
		ID:          "upper",
		ProjectID:   "p1",
		Name:        "plan.md",
		Path:        "03-masterplan/plan.md",
		Type:        "MASTERPLAN",
		Content:     []byte("y"),
		Size:        1,
		Phase:       3,
		StorageType: filerecord.StorageTypeDatabase,
		CreatedAt:   f.now,
	}))

	got, err := f.manager.GetProjectFiles(ctx, "p1", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := map[string]artifact.GeneratedFile{}
	for _, g := range got {
		byID[g.ID] = g
	}
	assert.Equal(t, artifact.FileTypeDocumentation, byID["odd"].Type)
	assert.Equal(t, "x", byID["odd"].Content)
	assert.Equal(t, artifact.FileTypeMasterplan, byID["upper"].Type)
}

type failingDeleteStore struct {
	*filerecord.MemoryStore
}

func (failingDeleteStore) Delete(context.Context, []string) error {
	return errors.New("database unavailable")
}

func TestDeleteFilesSurfacesMetadataFailure(t *testing.T) {
	records := failingDeleteStore{filerecord.NewMemoryStore()}
	m, err := NewManager(records, blob.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.StoreFiles(context.Background(), []artifact.GeneratedFile{sizedFile("a", 10, 1)}, hybrid(1024))
	require.NoError(t, err)

	err = m.DeleteFiles(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestDeletePhaseFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{
		sizedFile("a", 10, 1), sizedFile("b", 10, 2), sizedFile("c", 2000, 2),
	}, hybrid(1024))
	require.NoError(t, err)

	n, err := f.manager.DeletePhaseFiles(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.records.Len())
	assert.Equal(t, 0, f.blobs.Keys())
}

func TestCleanupExpiredFilesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := hybrid(1024)
	opts.RetentionDays = 7

	_, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("a", 10, 1), sizedFile("b", 2000, 1)}, opts)
	require.NoError(t, err)
	_, err = f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("keep", 10, 1)}, hybrid(1024))
	require.NoError(t, err)

	n, err := f.manager.CleanupExpiredFiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.AddDate(0, 0, 8)

	n, err = f.manager.CleanupExpiredFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.manager.CleanupExpiredFiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.records.Len())
}

func TestSweeperRunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := hybrid(1024)
	opts.RetentionDays = 1

	_, err := f.manager.StoreFiles(ctx, []artifact.GeneratedFile{sizedFile("a", 10, 1)}, opts)
	require.NoError(t, err)
	f.now = f.now.Add(48 * time.Hour)

	s := NewSweeper(f.manager, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 1, s.RunOnce(ctx))
	assert.Equal(t, 0, s.RunOnce(ctx))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown", ContentType("README.md"))
	assert.Equal(t, "application/json", ContentType("package.json"))
	assert.Equal(t, "text/yaml", ContentType("a.YML"))
	assert.Equal(t, "text/plain", ContentType("schema.sql"))
	assert.Equal(t, "text/plain", ContentType("index.ts"))
	assert.Equal(t, "text/plain", ContentType("Dockerfile"))
}

func TestBlobPath(t *testing.T) {
	assert.Equal(t, "projects/p1/f1/04-project-structure/project-docs/PRD.md",
		BlobPath("p1", "f1", "04-project-structure/project-docs/PRD.md"))
	assert.Equal(t, "projects/p1/f1/x.md", BlobPath("p1", "f1", "../../x.md"))
}
