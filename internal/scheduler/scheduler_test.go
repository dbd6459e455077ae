package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ondaradio/onda/internal/headlines"
)

type fakeRefresher struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	panics  bool
	err     error
}

func (f *fakeRefresher) Refresh(ctx context.Context, q headlines.Query) (headlines.Result, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("feed parser exploded")
	}
	return headlines.Result{Fetched: 3, Kept: 2}, f.err
}

type fakeStore struct {
	attemptsDays, headlinesDays int
}

func (f *fakeStore) CleanOldAttempts(days int) (int64, error) {
	f.attemptsDays = days
	return 1, nil
}

func (f *fakeStore) CleanOldHeadlines(days int) (int64, error) {
	f.headlinesDays = days
	return 0, errors.New("disk full")
}

func TestRefreshNow(t *testing.T) {
	r := &fakeRefresher{}
	s := New(nil, r, time.Minute, 0)

	res, err := s.RefreshNow(context.Background(), headlines.Query{})
	if err != nil {
		t.Fatalf("RefreshNow() error: %v", err)
	}
	if res.Kept != 2 {
		t.Errorf("RefreshNow() = %+v", res)
	}
}

func TestRefreshNowBusy(t *testing.T) {
	r := &fakeRefresher{block: make(chan struct{}), started: make(chan struct{})}
	s := New(nil, r, time.Minute, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RefreshNow(context.Background(), headlines.Query{})
	}()
	<-r.started

	if _, err := s.RefreshNow(context.Background(), headlines.Query{}); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent RefreshNow() error = %v, want ErrBusy", err)
	}
	close(r.block)
	<-done

	if got := r.calls.Load(); got != 1 {
		t.Errorf("refresher called %d times, want 1", got)
	}
}

func TestRefreshRecoversPanic(t *testing.T) {
	s := New(nil, &fakeRefresher{panics: true}, time.Minute, 0)

	_, err := s.RefreshNow(context.Background(), headlines.Query{})
	if err == nil {
		t.Fatal("RefreshNow() after panic returned nil error")
	}

	// the lock must have been released
	s.refresher = &fakeRefresher{}
	if _, err := s.RefreshNow(context.Background(), headlines.Query{}); err != nil {
		t.Errorf("RefreshNow() after recovered panic: %v", err)
	}
}

func TestTickCleansUp(t *testing.T) {
	store := &fakeStore{}
	r := &fakeRefresher{}
	s := New(store, r, time.Minute, 14)

	s.tick(context.Background())

	if store.attemptsDays != 14 || store.headlinesDays != 14 {
		t.Errorf("cleanup days = %d/%d, want 14", store.attemptsDays, store.headlinesDays)
	}
	if r.calls.Load() != 1 {
		t.Errorf("tick refreshed %d times", r.calls.Load())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := &fakeRefresher{}
	s := New(nil, r, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Run() did not refresh at startup")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
