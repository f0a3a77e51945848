package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/refundstatus/internal/refund"
)

// SnapshotRefresher is the part of refund.Store a live view polls.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*refund.Snapshot, error)
}

// Refresher keeps a live refund view current by periodically refreshing its store.
// Failures already reach the store's error reporter and are only logged here.
type Refresher struct {
	store    SnapshotRefresher
	interval time.Duration
	onUpdate func(*refund.Snapshot)
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewRefresher constructs Refresher. onUpdate receives every successfully refreshed snapshot and may be nil.
func NewRefresher(store SnapshotRefresher, interval time.Duration, onUpdate func(*refund.Snapshot), logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if onUpdate == nil {
		onUpdate = func(*refund.Snapshot) {}
	}
	return &Refresher{store: store, interval: interval, onUpdate: onUpdate, logger: logger}
}

// Start refreshes immediately and then on every tick until Stop or ctx cancellation.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(runCtx)
}

// Stop halts polling and waits for an in-flight refresh to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	snap, err := r.store.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Debug("refund refresh failed", slog.String("error", err.Error()))
		}
		return
	}
	r.onUpdate(snap)
}
