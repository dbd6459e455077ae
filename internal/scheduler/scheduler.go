package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ondaradio/onda/internal/headlines"
)

// ErrBusy means a refresh of the same kind is already running.
var ErrBusy = errors.New("refresh already in progress")

// Refresher pulls and stores headlines.
type Refresher interface {
	Refresh(ctx context.Context, q headlines.Query) (headlines.Result, error)
}

// Store is the retention side of the database.
type Store interface {
	CleanOldAttempts(days int) (int64, error)
	CleanOldHeadlines(days int) (int64, error)
}

type Scheduler struct {
	store         Store
	refresher     Refresher
	interval      time.Duration
	retentionDays int
	locks         sync.Map // kind -> *sync.Mutex
}

func New(store Store, refresher Refresher, interval time.Duration, retentionDays int) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{store: store, refresher: refresher, interval: interval, retentionDays: retentionDays}
}

// lock acquires the per-kind mutex without blocking.
// Returns nil and false if a refresh of that kind is already running.
func (s *Scheduler) lock(kind string) (*sync.Mutex, bool) {
	val, _ := s.locks.LoadOrStore(kind, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	if mu.TryLock() {
		return mu, true
	}
	return nil, false
}

// Run starts the scheduler loop and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", s.interval)

	// Run once immediately at startup
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.cleanup()

	if _, err := s.RefreshNow(ctx, headlines.Query{}); err != nil {
		if errors.Is(err, ErrBusy) {
			slog.Debug("Headline refresh already running, skipping tick")
			return
		}
		slog.Error("Scheduled headline refresh failed", "error", err)
	}
}

func (s *Scheduler) cleanup() {
	if s.retentionDays <= 0 || s.store == nil {
		return
	}
	mu, ok := s.lock("cleanup")
	if !ok {
		return
	}
	defer mu.Unlock()

	if n, err := s.store.CleanOldAttempts(s.retentionDays); err != nil {
		slog.Error("Failed to clean old attempts", "error", err)
	} else if n > 0 {
		slog.Debug("Cleaned up old attempts", "count", n)
	}
	if n, err := s.store.CleanOldHeadlines(s.retentionDays); err != nil {
		slog.Error("Failed to clean old headlines", "error", err)
	} else if n > 0 {
		slog.Debug("Cleaned up old headlines", "count", n)
	}
}

// RefreshNow runs one headline refresh unless another is in progress.
func (s *Scheduler) RefreshNow(ctx context.Context, q headlines.Query) (headlines.Result, error) {
	mu, ok := s.lock("headlines")
	if !ok {
		return headlines.Result{}, ErrBusy
	}
	defer mu.Unlock()
	return s.safeRefresh(ctx, q)
}

func (s *Scheduler) safeRefresh(ctx context.Context, q headlines.Query) (res headlines.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in headline refresh", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	refreshCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return s.refresher.Refresh(refreshCtx, q)
}
