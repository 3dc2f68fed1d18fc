package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"wizard/internal/gateway/config"
	"wizard/internal/gateway/repository/blob"
	"wizard/internal/gateway/repository/filerecord"
)

type gatewayStores struct {
	records filerecord.Store
	blobs   blob.Store
	ping    func(ctx context.Context) error
	close   func() error
}

func initStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gatewayStores, error) {
	blobs, err := chooseBlobStore(cfg)
	if err != nil {
		return nil, err
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		return initPostgresStores(ctx, dsn, blobs, logger)
	}
	log.Printf("file records: in-memory (DATABASE_URL unset)")
	return &gatewayStores{
		records: filerecord.NewMemoryStore(),
		blobs:   blobs,
		close:   func() error { return nil },
	}, nil
}

func initPostgresStores(ctx context.Context, dsn string, blobs blob.Store, logger *slog.Logger) (*gatewayStores, error) {
	if err := filerecord.Migrate(dsn, logger); err != nil {
		return nil, fmt.Errorf("failed to migrate file records: %w", err)
	}
	pg, err := filerecord.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	log.Printf("file records: postgres")
	return &gatewayStores{
		records: pg,
		blobs:   blobs,
		ping:    pg.Ping,
		close:   pg.Close,
	}, nil
}

func chooseBlobStore(cfg *config.Config) (blob.Store, error) {
	s3Cfg := blob.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	}
	if cfg.Artifact.Enabled && s3Cfg.Complete() {
		s3Store, err := blob.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob s3 store: %w", err)
		}
		log.Printf("blob store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return s3Store, nil
	}
	if cfg.Artifact.Enabled {
		log.Printf("blob store: s3 config incomplete, falling back")
	}
	if root := strings.TrimSpace(cfg.BlobDiskRoot); root != "" {
		disk, err := blob.NewDiskStore(root)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob disk store: %w", err)
		}
		log.Printf("blob store: disk root=%s", root)
		return disk, nil
	}
	log.Printf("blob store: in-memory")
	return blob.NewMemoryStore(), nil
}
