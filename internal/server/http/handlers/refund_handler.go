package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/server/http/dto"
	"github.com/polkiloo/refundstatus/internal/server/http/middleware"
)

// RefundHandler serves refund status, demo simulation and audit endpoints.
type RefundHandler struct {
	facade RefundFacade
	logger *slog.Logger
}

// NewRefundHandler creates RefundHandler instance.
func NewRefundHandler(facade RefundFacade, logger *slog.Logger) *RefundHandler {
	return &RefundHandler{facade: facade, logger: logger}
}

// Latest handles GET /api/refund/latest.
func (h *RefundHandler) Latest(c *gin.Context) {
	taxYear := 0
	if raw := c.Query("taxYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "taxYear must be a number")
			return
		}
		taxYear = year
	}

	view, err := h.facade.LatestRefund(c.Request.Context(), CurrentUserID(c), taxYear, middleware.CurrentRequestID(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidTaxYear):
			abortWithError(c, http.StatusBadRequest, "Invalid tax year")
		case errors.Is(err, domainErrors.ErrNotFound):
			abortWithError(c, http.StatusNotFound, "No refund found for this tax year")
		default:
			h.logger.Error("refund_latest_failed",
				slog.Int64("user_id", CurrentUserID(c)),
				slog.String("request_id", middleware.CurrentRequestID(c)),
				slog.Any("error", err),
			)
			abortWithError(c, http.StatusInternalServerError, "Failed to load refund status")
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewRefundStatusResponse(view))
}

// Simulate handles POST /api/refund/simulate.
func (h *RefundHandler) Simulate(c *gin.Context) {
	var req dto.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	err := h.facade.SimulateRefund(c.Request.Context(), CurrentUserID(c), model.RefundSimulation{
		TaxYear:        req.TaxYear,
		Status:         req.Status,
		ExpectedAmount: req.ExpectedAmount,
		TrackingID:     req.TrackingID,
	}, middleware.CurrentRequestID(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrDemoDisabled):
			abortWithError(c, http.StatusNotFound, "Demo mode is disabled")
		case errors.Is(err, domainErrors.ErrInvalidTaxYear):
			abortWithError(c, http.StatusBadRequest, "Invalid tax year")
		case errors.Is(err, domainErrors.ErrInvalidStatus):
			abortWithError(c, http.StatusBadRequest, "Invalid status")
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			abortWithError(c, http.StatusBadRequest, "Expected amount must not be negative")
		default:
			h.logger.Error("refund_simulate_failed",
				slog.Int64("user_id", CurrentUserID(c)),
				slog.String("request_id", middleware.CurrentRequestID(c)),
				slog.Any("error", err),
			)
			abortWithError(c, http.StatusInternalServerError, "Simulate failed")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// Lifecycle handles GET /api/refund/lifecycle.
func (h *RefundHandler) Lifecycle(c *gin.Context) {
	statuses := h.facade.RefundLifecycle()
	resp := dto.LifecycleResponse{Statuses: make([]string, 0, len(statuses))}
	for _, s := range statuses {
		resp.Statuses = append(resp.Statuses, string(s))
	}
	c.JSON(http.StatusOK, resp)
}

// History handles GET /api/refund/audit.
func (h *RefundHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	entries, err := h.facade.RefundHistory(c.Request.Context(), CurrentUserID(c), limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if len(entries) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			Action:     e.Action,
			TaxYear:    e.TaxYear,
			Status:     string(e.Status),
			RequestID:  e.RequestID,
			OccurredAt: e.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
