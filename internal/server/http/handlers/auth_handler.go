package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/server/http/dto"
	"github.com/polkiloo/refundstatus/internal/server/http/middleware"
)

// AuthHandler processes registration and login.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Register handles POST /api/user/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	token, err := h.facade.Register(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidCredentials):
			abortWithError(c, http.StatusBadRequest, "Login and password are required")
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			abortWithError(c, http.StatusConflict, "Login is already taken")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to register")
		}
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.NewSessionResponse(token))
}

// Login handles POST /api/user/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	token, err := h.facade.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidCredentials):
			abortWithError(c, http.StatusUnauthorized, "Invalid login or password")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.NewSessionResponse(token))
}

// Renew handles POST /api/user/refresh for an authenticated caller.
func (h *AuthHandler) Renew(c *gin.Context) {
	token, err := h.facade.RenewSession(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			abortWithError(c, http.StatusUnauthorized, "Account no longer exists")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to renew session")
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.NewSessionResponse(token))
}

// Logout handles POST /api/user/logout by expiring the auth cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	c.Status(http.StatusNoContent)
}
