package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper runs CleanupExpiredFiles on a ticker. Request handling never depends
// on it; it only bounds how long expired rows linger.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(manager *Manager, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Start launches the background loop. A second Start is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.interval <= 0 {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	s.logger.Info("sweeper started", slog.String("interval", s.interval.String()))
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep and returns the number of records removed.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	start := time.Now()
	n, err := s.manager.CleanupExpiredFiles(ctx)
	elapsed := time.Since(start)
	sweepRunsTotal.Inc()
	sweepDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		s.logger.Error("sweep failed", slog.String("error", err.Error()))
		return 0
	}
	s.logger.Info("sweep finished", slog.Int("deleted", n), slog.Duration("duration", elapsed))
	return n
}
