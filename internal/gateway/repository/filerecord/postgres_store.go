package filerecord

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const table = "generated_files"

var columns = []string{
	"id", "project_id", "name", "path", "type", "content", "size", "agent_id", "phase",
	"metadata", "storage_type", "storage_url", "compressed", "expires_at", "created_at", "updated_at",
}

// PostgresStore keeps records in the generated_files table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and pings once.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded migrations to the database at dsn.
func Migrate(dsn string, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	if logger != nil {
		logger.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	return nil
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme golang-migrate
// registers for the pgx v5 driver.
func migrateURL(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(rec.ProjectID) == "" {
		return fmt.Errorf("project_id is required")
	}
	meta, err := json.Marshal(nonNilMeta(rec.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	var content any
	if rec.Content != nil {
		content = rec.Content
	}
	var storageURL any
	if rec.StorageURL != nil {
		storageURL = *rec.StorageURL
	}
	var expiresAt any
	if rec.ExpiresAt != nil {
		expiresAt = rec.ExpiresAt.UTC()
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	query, args := builder().Insert(table).
		Columns(columns...).
		Values(
			rec.ID, rec.ProjectID, rec.Name, rec.Path, rec.Type, content, rec.Size, rec.AgentID, rec.Phase,
			meta, rec.StorageType, storageURL, rec.Compressed, expiresAt, created.UTC(), updated.UTC(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, projectID string, phase *int) ([]Record, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	pred := entsql.EQ("project_id", projectID)
	if phase != nil {
		pred = entsql.And(pred, entsql.EQ("phase", *phase))
	}
	return s.query(ctx, pred)
}

func (s *PostgresStore) GetByIDs(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}
	return s.query(ctx, entsql.In("id", toArgs(ids)...))
}

func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time) ([]Record, error) {
	return s.query(ctx, entsql.And(entsql.NotNull("expires_at"), entsql.LT("expires_at", now.UTC())))
}

func (s *PostgresStore) Delete(ctx context.Context, ids []string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	query, args := builder().Delete(table).Where(entsql.In("id", toArgs(ids)...)).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete file records: %w", err)
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, pred *entsql.Predicate) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is nil")
	}
	b := builder()
	query, args := b.Select(columns...).
		From(b.Table(table)).
		Where(pred).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec        Record
		meta       []byte
		storageURL sql.NullString
		expiresAt  sql.NullTime
	)
	err := rows.Scan(
		&rec.ID, &rec.ProjectID, &rec.Name, &rec.Path, &rec.Type, &rec.Content, &rec.Size, &rec.AgentID, &rec.Phase,
		&meta, &rec.StorageType, &storageURL, &rec.Compressed, &expiresAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan file record: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return Record{}, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
		}
	}
	if storageURL.Valid {
		u := storageURL.String
		rec.StorageURL = &u
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func toArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
