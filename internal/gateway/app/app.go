package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"wizard/internal/archive"
	"wizard/internal/filegen"
	"wizard/internal/gateway/config"
	"wizard/internal/gateway/handler"
	"wizard/internal/gateway/handler/rpc"
	"wizard/internal/gateway/server"
	"wizard/internal/storage"
)

type App struct {
	server  *server.Server
	sweeper *storage.Sweeper
	manager *storage.Manager
	stores  *gatewayStores
	cancel  context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("env", cfg.Env))

	// Dependencies
	stores, err := initStores(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	manager, err := storage.NewManager(stores.records, stores.blobs, logger)
	if err != nil {
		_ = stores.close()
		return nil, fmt.Errorf("failed to init storage manager: %w", err)
	}
	genCfg := filegen.DefaultConfig()
	genCfg.Provider = cfg.LLMProvider
	genCfg.Storage = cfg.Storage
	generator := filegen.NewGenerator(genCfg, manager, logger)
	assembler := archive.NewAssembler(manager, cfg.DownloadBaseURL, logger)

	fileHandler := rpc.NewFileHandler(generator, manager)
	archiveHandler := rpc.NewArchiveHandler(assembler)
	downloadHandler := handler.NewDownloadHandler(assembler, logger)

	// Routing & Server
	mux := server.NewMux(fileHandler, archiveHandler, downloadHandler, handler.HealthHandler(stores.ping))
	srv := server.New(cfg.Port, mux)

	return &App{
		server:  srv,
		sweeper: storage.NewSweeper(manager, cfg.CleanupInterval, logger),
		manager: manager,
		stores:  stores,
	}, nil
}

func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sweeper.Start(ctx)
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sweeper.Stop()
	if a.cancel != nil {
		a.cancel()
	}
	a.manager.Close()
	return errors.Join(err, a.stores.close())
}
