package auth

import (
	"errors"
	"net/http"
	"strings"

	"sorso/internal/shared/middleware"
	"sorso/internal/shared/utils/response"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
	log       *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		service:   service,
		validator: validator.New(),
		log:       log,
	}
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.log.LogAuthFailure(ctx.Request.Context(), "invalid credentials", ctx.ClientIP())
			response.RespondError(ctx, http.StatusUnauthorized, "Invalid email or password", response.CodeUnauthorized, nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, "Failed to login", response.CodeInternal, nil)
		}
		return
	}

	response.RespondOK(ctx, http.StatusOK, "Login successful", resp)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	var req RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrUserNotFound):
			response.RespondError(ctx, http.StatusUnauthorized, "Invalid or expired refresh token", response.CodeUnauthorized, nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, "Failed to refresh token", response.CodeInternal, nil)
		}
		return
	}

	response.RespondOK(ctx, http.StatusOK, "Token refreshed successfully", tokenPair)
}

// Logout always succeeds; whatever tokens are presented get revoked
func (c *Controller) Logout(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = ctx.ShouldBindJSON(&req) // Optional body

	_ = c.service.Logout(ctx.Request.Context(), accessTokenFrom(ctx), req.RefreshToken)
	response.RespondOK(ctx, http.StatusOK, "Logged out successfully", nil)
}

// Session reports the current session without ever answering 401
func (c *Controller) Session(ctx *gin.Context) {
	session := c.service.Session(ctx.Request.Context(), accessTokenFrom(ctx))
	response.RespondOK(ctx, http.StatusOK, "Session retrieved", session)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	if userID == nil {
		response.RespondError(ctx, http.StatusUnauthorized, "User not authenticated", response.CodeUnauthorized, nil)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	if err := c.service.ChangePassword(ctx.Request.Context(), userID.String(), &req); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.RespondError(ctx, http.StatusBadRequest, "Current password is incorrect", response.CodeValidation, nil)
		case errors.Is(err, ErrUserNotFound):
			response.RespondError(ctx, http.StatusNotFound, "User not found", response.CodeNotFound, nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, "Failed to change password", response.CodeInternal, nil)
		}
		return
	}

	response.RespondOK(ctx, http.StatusOK, "Password changed successfully", nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	if userID == nil {
		response.RespondError(ctx, http.StatusUnauthorized, "User not authenticated", response.CodeUnauthorized, nil)
		return
	}

	user, err := c.service.Me(ctx.Request.Context(), userID.String())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.RespondError(ctx, http.StatusNotFound, "User not found", response.CodeNotFound, nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to load user", response.CodeInternal, nil)
		return
	}

	response.RespondOK(ctx, http.StatusOK, "User retrieved successfully", user)
}

func accessTokenFrom(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
