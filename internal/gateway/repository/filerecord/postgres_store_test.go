package filerecord

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresInsert(t *testing.T) {
	store, mock := newMockStore(t)
	url := "s3://bucket/projects/p1/f1/big.md"

	mock.ExpectExec(`INSERT INTO "generated_files"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(context.Background(), Record{
		ID:          "f1",
		ProjectID:   "p1",
		Name:        "big.md",
		Path:        "docs/big.md",
		Type:        "documentation",
		Size:        2000,
		StorageType: StorageTypeStorage,
		StorageURL:  &url,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertSurfacesError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`INSERT INTO "generated_files"`).WillReturnError(boom)

	err := store.Insert(context.Background(), Record{ID: "f1", ProjectID: "p1", StorageType: StorageTypeDatabase})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByPhase(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(7 * 24 * time.Hour)

	rows := sqlmock.NewRows(columns).
		AddRow("f2", "p1", "b.md", "02-business-analysis/b.md", "business_overview", nil, int64(2000), "business-analyst", int64(2),
			[]byte(`{"source":"llm-generated"}`), StorageTypeStorage, "mem://b", true, expires, now, now).
		AddRow("f1", "p1", "a.md", "02-business-analysis/a.md", "business_overview", []byte("hello"), int64(5), "business-analyst", int64(2),
			[]byte(`{}`), StorageTypeDatabase, nil, false, nil, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM "generated_files" WHERE (.+) ORDER BY`).
		WithArgs("p1", 2).
		WillReturnRows(rows)

	phase := 2
	got, err := store.List(context.Background(), "p1", &phase)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "f2", got[0].ID)
	assert.Nil(t, got[0].Content)
	require.NotNil(t, got[0].StorageURL)
	assert.Equal(t, "mem://b", *got[0].StorageURL)
	require.NotNil(t, got[0].ExpiresAt)
	assert.True(t, got[0].Compressed)
	assert.Equal(t, "llm-generated", got[0].Metadata["source"])

	assert.Equal(t, []byte("hello"), got[1].Content)
	assert.Nil(t, got[1].StorageURL)
	assert.Nil(t, got[1].ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "generated_files" WHERE`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.Delete(context.Background(), []string{"a", "b"}))
	require.NoError(t, store.Delete(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDsEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	got, err := store.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/wizard?sslmode=disable", migrateURL("postgres://u:p@db:5432/wizard?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/wizard", migrateURL("postgresql://u@db/wizard"))
	assert.Equal(t, "pgx5://x", migrateURL("pgx5://x"))
}
