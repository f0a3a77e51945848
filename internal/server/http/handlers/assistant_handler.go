package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/server/http/dto"
	"github.com/polkiloo/refundstatus/internal/server/http/middleware"
)

// AssistantHandler answers refund questions.
type AssistantHandler struct {
	facade AssistantFacade
	logger *slog.Logger
}

func NewAssistantHandler(facade AssistantFacade, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{facade: facade, logger: logger}
}

// Chat handles POST /api/assistant/chat.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req dto.AssistantChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	answer, err := h.facade.AskAssistant(c.Request.Context(), CurrentUserID(c), req.Question, middleware.CurrentRequestID(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidQuestion) {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Question must be 1 to %d characters", model.MaxQuestionLength))
			return
		}
		h.logger.Error("assistant_chat_failed",
			slog.Int64("user_id", CurrentUserID(c)),
			slog.String("request_id", middleware.CurrentRequestID(c)),
			slog.Any("error", err),
		)
		abortWithError(c, http.StatusInternalServerError, "Assistant is unavailable")
		return
	}

	c.JSON(http.StatusOK, dto.NewAssistantChatResponse(answer))
}
