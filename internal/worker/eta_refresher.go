package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// EstimateFacade exposes the subset of application functionality required by the refresher.
type EstimateFacade interface {
	ClaimStaleEstimates(ctx context.Context, limit int) ([]model.RefundRecord, error)
	RefreshEstimate(ctx context.Context, record model.RefundRecord) error
}

// ETARefresher periodically recomputes availability estimates of in-flight refunds on a worker pool.
type ETARefresher struct {
	facade       EstimateFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.RefundRecord
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewETARefresher constructs estimate refresher worker pool.
func NewETARefresher(facade EstimateFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *ETARefresher {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &ETARefresher{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
	}
}

// Start launches background processing. Calling Start on a running refresher is a no-op.
func (r *ETARefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.jobs = make(chan model.RefundRecord, r.batchSize*r.workers)

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, r.jobs)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx, r.jobs)
}

// Stop waits for all workers to finish.
func (r *ETARefresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ETARefresher) dispatch(ctx context.Context, jobs chan<- model.RefundRecord) {
	defer r.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.claimAndDispatch(ctx, jobs)
		}
	}
}

func (r *ETARefresher) claimAndDispatch(ctx context.Context, jobs chan<- model.RefundRecord) {
	records, err := r.facade.ClaimStaleEstimates(ctx, r.batchSize)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("claim stale estimates failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, record := range records {
		select {
		case <-ctx.Done():
			return
		case jobs <- record:
		}
	}
}

func (r *ETARefresher) worker(ctx context.Context, jobs <-chan model.RefundRecord) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-jobs:
			if !ok {
				return
			}
			r.refresh(ctx, record)
		}
	}
}

func (r *ETARefresher) refresh(ctx context.Context, record model.RefundRecord) {
	err := r.facade.RefreshEstimate(ctx, record)
	switch {
	case err == nil:
		r.logger.Debug("refund_estimate_refreshed",
			slog.Int64("record_id", record.ID),
			slog.String("status", string(record.Status)),
		)
	case errors.Is(err, domainErrors.ErrNotFound):
		r.logger.Warn("refund record vanished before estimate refresh", slog.Int64("record_id", record.ID))
	default:
		r.logger.Error("refresh estimate failed", slog.Int64("record_id", record.ID), slog.String("error", err.Error()))
	}
}
