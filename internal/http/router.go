package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger verifica una dependencia para el health check.
type Pinger func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas de auth.
func NewRouter(logger *zap.Logger, authH *AuthHandler, ping Pinger) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", healthHandler(ping))

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/verification", authH.RequestVerification)
	auth.POST("/verification/confirm", authH.ConfirmVerification)
	auth.POST("/reset", authH.RequestPasswordReset)
	auth.POST("/reset/confirm", authH.ConfirmPasswordReset)
	auth.POST("/doctor/approval", authH.RequestDoctorApproval)
	auth.POST("/doctor/approval/confirm", authH.ConfirmDoctorApproval)

	return r
}

func healthHandler(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
