package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"therapist-booking/internal/domain"
)

// Config centraliza la configuracion del servicio.
type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	AppBaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	TokenStore     string `env:"TOKEN_STORE" envDefault:"postgres"`

	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPFrom      string `env:"SMTP_FROM"`
	SMTPFromName  string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS    bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	MailerSendKey string `env:"MAILERSEND_API_KEY"`
	MailDevMode   bool   `env:"MAIL_DEV_MODE" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NATSURL string `env:"NATS_URL"`

	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"30m"`
	ResetTokenTTL        time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`
	DoctorTokenTTL       time.Duration `env:"DOCTOR_TOKEN_TTL" envDefault:"30m"`

	RateLimitWindow       time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`
	RateLimitVerification int           `env:"RATE_LIMIT_VERIFICATION" envDefault:"4"`
	RateLimitReset        int           `env:"RATE_LIMIT_RESET" envDefault:"4"`
	RateLimitDoctor       int           `env:"RATE_LIMIT_DOCTOR" envDefault:"5"`
}

const (
	TokenStorePostgres = "postgres"
	// TokenStoreMemory guarda los tokens en memoria del proceso. Solo para desarrollo.
	TokenStoreMemory   = "memory"
)

// RateLimit describe el techo de solicitudes de un flujo dentro de la ventana.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	switch cfg.TokenStore {
	case TokenStorePostgres, TokenStoreMemory:
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}
	return &cfg, nil
}

// TokenTTLs devuelve la vigencia configurada para cada proposito.
func (c *Config) TokenTTLs() map[domain.Purpose]time.Duration {
	return map[domain.Purpose]time.Duration{
		domain.PurposeEmailVerification:  c.VerificationTokenTTL,
		domain.PurposePasswordReset:      c.ResetTokenTTL,
		domain.PurposeDoctorRegistration: c.DoctorTokenTTL,
	}
}

// RateLimits devuelve el limite de cada flujo. Todos comparten la ventana.
func (c *Config) RateLimits() map[domain.Purpose]RateLimit {
	return map[domain.Purpose]RateLimit{
		domain.PurposeEmailVerification:  {Max: c.RateLimitVerification, Window: c.RateLimitWindow},
		domain.PurposePasswordReset:      {Max: c.RateLimitReset, Window: c.RateLimitWindow},
		domain.PurposeDoctorRegistration: {Max: c.RateLimitDoctor, Window: c.RateLimitWindow},
	}
}
