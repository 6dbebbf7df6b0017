package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/service"
)

// AccountService es lo que los handlers necesitan del servicio de cuentas.
type AccountService interface {
	RequestToken(ctx context.Context, purpose domain.Purpose, email string) (domain.Token, error)
	ConfirmEmail(ctx context.Context, token string) (domain.User, error)
	ConfirmDoctor(ctx context.Context, token string) (domain.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) (domain.User, error)
	Register(ctx context.Context, input service.RegisterInput) (domain.User, error)
}

const (
	msgInvalidFields = "Invalid fields"
	msgGenericError  = "Something went wrong!"
)

// AuthHandler expone los flujos de codigos por email.
type AuthHandler struct {
	logger   *zap.Logger
	accounts AccountService
}

// NewAuthHandler crea una instancia de AuthHandler.
func NewAuthHandler(logger *zap.Logger, accounts AccountService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		accounts: accounts,
	}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequestVerification maneja POST /auth/verification.
func (h *AuthHandler) RequestVerification(c *gin.Context) {
	h.requestToken(c, domain.PurposeEmailVerification, "Verification code sent!")
}

// RequestPasswordReset maneja POST /auth/reset.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	h.requestToken(c, domain.PurposePasswordReset, "Reset email sent!")
}

// RequestDoctorApproval maneja POST /auth/doctor/approval.
func (h *AuthHandler) RequestDoctorApproval(c *gin.Context) {
	h.requestToken(c, domain.PurposeDoctorRegistration, "Approval code sent!")
}

func (h *AuthHandler) requestToken(c *gin.Context, purpose domain.Purpose, success string) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid token request", zap.Error(err), zap.String("purpose", string(purpose)))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
		return
	}

	if _, err := h.accounts.RequestToken(c.Request.Context(), purpose, req.Email); err != nil {
		h.writeError(c, err, "request token failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": success})
}

// ConfirmVerification maneja POST /auth/verification/confirm.
func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
		return
	}
	if _, err := h.accounts.ConfirmEmail(c.Request.Context(), req.Token); err != nil {
		h.writeError(c, err, "confirm email failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Email verified"})
}

// ConfirmDoctorApproval maneja POST /auth/doctor/approval/confirm.
func (h *AuthHandler) ConfirmDoctorApproval(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
		return
	}
	if _, err := h.accounts.ConfirmDoctor(c.Request.Context(), req.Token); err != nil {
		h.writeError(c, err, "confirm doctor failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Email verified"})
}

// ConfirmPasswordReset maneja POST /auth/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=6,max=72"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
		return
	}
	if _, err := h.accounts.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, err, "reset password failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Password updated!"})
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required,min=6,max=72"`
		Role     string `json:"role" binding:"required,oneof=patient doctor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
		return
	}

	_, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(c, err, "register failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": "Confirmation email sent!"})
}

// writeError traduce el error del servicio a status y mensaje estables.
func (h *AuthHandler) writeError(c *gin.Context, err error, logMsg string) {
	switch service.KindOf(err) {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFields})
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
	case service.KindExpired:
		c.JSON(http.StatusGone, gin.H{"error": "Token has expired"})
	case service.KindRateLimited:
		minutes := 0
		var limited *service.RateLimitedError
		if errors.As(err, &limited) {
			minutes = limited.RetryMinutes()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Try the last code sent to your email or wait %dm", minutes),
		})
	case service.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use!"})
	case service.KindDependency:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgGenericError})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgGenericError})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmailNotFound):
		return "Email not found"
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"
	}
	return "Token not found"
}
