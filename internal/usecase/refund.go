package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"

	"github.com/polkiloo/refundstatus/internal/adapter/irs"
	"github.com/polkiloo/refundstatus/internal/config"
	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
	"github.com/polkiloo/refundstatus/internal/metrics"
)

const (
	minTaxYear        = 2001
	estimateMaxAge    = 6 * time.Hour
	defaultAuditLimit = 50
)

// RefundUseCase serves refund status to taxpayers and keeps stored records in sync with the agency.
type RefundUseCase struct {
	refunds     repository.RefundRepository
	audits      repository.AuditRepository
	cache       repository.RefundCache
	provider    irs.Provider
	simulator   irs.Simulator
	estimator   *ETAEstimator
	metrics     metrics.Recorder
	logger      *slog.Logger
	demoEnabled bool
	group       singleflight.Group
	now         func() time.Time
}

// RefundParams lists RefundUseCase dependencies.
type RefundParams struct {
	fx.In

	Config    *config.Config
	Refunds   repository.RefundRepository
	Audits    repository.AuditRepository
	Cache     repository.RefundCache
	Provider  irs.Provider
	Simulator irs.Simulator
	Estimator *ETAEstimator
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// NewRefundUseCase constructs RefundUseCase.
func NewRefundUseCase(p RefundParams) *RefundUseCase {
	return &RefundUseCase{
		refunds:     p.Refunds,
		audits:      p.Audits,
		cache:       p.Cache,
		provider:    p.Provider,
		simulator:   p.Simulator,
		estimator:   p.Estimator,
		metrics:     p.Metrics,
		logger:      p.Logger,
		demoEnabled: p.Config.DemoEnabled,
		now:         time.Now,
	}
}

// Latest returns the refund status for taxYear, or for the most recent year when taxYear is zero.
func (u *RefundUseCase) Latest(ctx context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error) {
	start := u.now()
	view, err := u.latest(ctx, userID, taxYear)
	u.metrics.Observe(ctx, "refund_latest", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	u.metrics.StatusServed(string(view.Status))
	u.audit(ctx, model.AccessAudit{
		UserID:    userID,
		Action:    model.AuditActionView,
		TaxYear:   view.TaxYear,
		Status:    view.Status,
		RequestID: requestID,
	})
	u.logger.Debug("refund_latest_served",
		slog.Int64("user_id", userID),
		slog.Int("tax_year", view.TaxYear),
		slog.String("status", string(view.Status)),
		slog.String("request_id", requestID),
	)
	return view, nil
}

func (u *RefundUseCase) latest(ctx context.Context, userID int64, taxYear int) (*model.RefundView, error) {
	if taxYear != 0 && taxYear < minTaxYear {
		return nil, domainErrors.ErrInvalidTaxYear
	}

	if cached, ok := u.cached(ctx, userID); ok && (taxYear == 0 || cached.TaxYear == taxYear) {
		return cached, nil
	}

	shared, err, _ := u.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return u.syncWithAgency(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return nil, err
	}
	view := *shared.(*model.RefundView)

	if taxYear != 0 && view.TaxYear != taxYear {
		return u.stored(ctx, userID, taxYear)
	}
	return &view, nil
}

func (u *RefundUseCase) cached(ctx context.Context, userID int64) (*model.RefundView, bool) {
	view, ok, err := u.cache.Get(ctx, userID)
	if err != nil {
		u.logger.Warn("refund_cache_read_failed", slog.Int64("user_id", userID), slog.Any("error", err))
		ok = false
	}
	u.metrics.CacheLookup(ok)
	return view, ok
}

func (u *RefundUseCase) syncWithAgency(ctx context.Context, userID int64) (*model.RefundView, error) {
	result, err := u.provider.MostRecent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch agency refund: %w", err)
	}

	record, err := u.refunds.GetByUserAndYear(ctx, userID, result.TaxYear)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		record = &model.RefundRecord{UserID: userID, TaxYear: result.TaxYear, Status: model.RefundStatusReceived}
	case err != nil:
		return nil, fmt.Errorf("load refund record: %w", err)
	}

	record.UpdateFromIRS(*result, u.now().UTC())

	var explanation *string
	if !record.Status.Final() {
		if est, ok := u.estimator.Estimate(record.Status, record.ExpectedAmount); ok {
			availableAt := est.AvailableAt
			text := est.Explanation
			record.AvailableAtEstimated = &availableAt
			explanation = &text
		}
	}

	if err := u.refunds.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save refund record: %w", err)
	}

	view := viewOf(record, explanation)
	if err := u.cache.Set(ctx, userID, view); err != nil {
		u.logger.Warn("refund_cache_write_failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return view, nil
}

func (u *RefundUseCase) stored(ctx context.Context, userID int64, taxYear int) (*model.RefundView, error) {
	record, err := u.refunds.GetByUserAndYear(ctx, userID, taxYear)
	if err != nil {
		return nil, err
	}

	var explanation *string
	if !record.Status.Final() {
		if est, ok := u.estimator.Estimate(record.Status, record.ExpectedAmount); ok {
			explanation = &est.Explanation
		}
	}
	return viewOf(record, explanation), nil
}

// Simulate overwrites agency data for the user. Only available in demo mode.
func (u *RefundUseCase) Simulate(ctx context.Context, userID int64, req model.RefundSimulation, requestID string) error {
	if !u.demoEnabled {
		return domainErrors.ErrDemoDisabled
	}
	if req.TaxYear < minTaxYear {
		return domainErrors.ErrInvalidTaxYear
	}
	status, ok := model.ParseRefundStatus(req.Status)
	if !ok {
		return domainErrors.ErrInvalidStatus
	}
	if req.ExpectedAmount != nil && *req.ExpectedAmount < 0 {
		return domainErrors.ErrInvalidAmount
	}

	start := u.now()
	err := u.simulator.Upsert(ctx, userID, model.IRSResult{
		TaxYear:        req.TaxYear,
		Status:         status,
		ExpectedAmount: req.ExpectedAmount,
		TrackingID:     req.TrackingID,
	})
	u.metrics.Observe(ctx, "refund_simulate", err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("simulate agency refund: %w", err)
	}

	if err := u.cache.Delete(ctx, userID); err != nil {
		u.logger.Warn("refund_cache_invalidate_failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	u.audit(ctx, model.AccessAudit{
		UserID:    userID,
		Action:    model.AuditActionSimulate,
		TaxYear:   req.TaxYear,
		Status:    status,
		RequestID: requestID,
	})
	u.logger.Info("refund_simulated",
		slog.Int64("user_id", userID),
		slog.Int("tax_year", req.TaxYear),
		slog.String("status", string(status)),
		slog.String("request_id", requestID),
	)
	return nil
}

// Lifecycle returns the ordered statuses a refund advances through.
func (u *RefundUseCase) Lifecycle() []model.RefundStatus {
	out := make([]model.RefundStatus, len(model.RefundLifecycle))
	copy(out, model.RefundLifecycle)
	return out
}

// History lists recent refund accesses of the user, newest first.
func (u *RefundUseCase) History(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}
	return u.audits.ListByUser(ctx, userID, limit)
}

// ClaimStaleEstimates locks a batch of in-flight refunds whose estimate needs recomputing.
func (u *RefundUseCase) ClaimStaleEstimates(ctx context.Context, limit int) ([]model.RefundRecord, error) {
	return u.refunds.ClaimStaleEstimates(ctx, u.now().Add(-estimateMaxAge), limit)
}

// RefreshEstimate recomputes and stores the availability estimate of a record.
func (u *RefundUseCase) RefreshEstimate(ctx context.Context, record model.RefundRecord) error {
	var availableAt *time.Time
	if !record.Status.Final() {
		if est, ok := u.estimator.Estimate(record.Status, record.ExpectedAmount); ok {
			availableAt = &est.AvailableAt
		}
	}
	if availableAt == nil {
		availableAt = record.AvailableAtEstimated
	}

	if err := u.refunds.UpdateEstimate(ctx, record.ID, availableAt); err != nil {
		return fmt.Errorf("update estimate: %w", err)
	}
	if err := u.cache.Delete(ctx, record.UserID); err != nil {
		u.logger.Warn("refund_cache_invalidate_failed", slog.Int64("user_id", record.UserID), slog.Any("error", err))
	}
	return nil
}

func (u *RefundUseCase) audit(ctx context.Context, entry model.AccessAudit) {
	if err := u.audits.Record(ctx, entry); err != nil {
		u.logger.Warn("refund_audit_failed",
			slog.Int64("user_id", entry.UserID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
	}
}

func viewOf(record *model.RefundRecord, explanation *string) *model.RefundView {
	return &model.RefundView{
		TaxYear:              record.TaxYear,
		Status:               record.Status,
		LastUpdatedAt:        record.LastUpdatedAt,
		ExpectedAmount:       record.ExpectedAmount,
		TrackingID:           record.TrackingID,
		AvailableAtEstimated: record.AvailableAtEstimated,
		AIExplanation:        explanation,
	}
}
