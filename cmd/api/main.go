package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"therapist-booking/internal/config"
	"therapist-booking/internal/db"
	"therapist-booking/internal/domain"
	"therapist-booking/internal/email"
	"therapist-booking/internal/events"
	apihttp "therapist-booking/internal/http"
	"therapist-booking/internal/repository"
	"therapist-booking/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogDevelopment)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	tokenRepo, transactor := buildTokenStore(cfg, pool, logger)

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiters := buildLimiters(cfg, redisClient)

	publisher := events.Publisher(events.NopPublisher{})
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats connect failed, events disabled", zap.Error(err))
		} else {
			publisher = natsPub
		}
	}
	defer publisher.Close()

	issuer := service.NewTokenIssuer(tokenRepo, cfg.TokenTTLs())
	verifier := service.NewTokenVerifier(tokenRepo, userRepo, transactor)
	accountSvc := service.NewAccountService(logger, userRepo, issuer, verifier, limiters, buildSender(cfg, logger), publisher)

	authHandler := apihttp.NewAuthHandler(logger, accountSvc)
	router := apihttp.NewRouter(logger, authHandler, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func buildTokenStore(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (repository.TokenRepository, repository.Transactor) {
	if cfg.TokenStore == config.TokenStoreMemory {
		logger.Warn("token store in memory, tokens are lost on restart")
		return repository.NewMemoryTokenRepository(), repository.NopTransactor{}
	}
	return repository.NewPgTokenRepository(pool), repository.NewPgTransactor(pool)
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

// connectRedis devuelve nil si Redis no esta configurado o no responde.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func buildLimiters(cfg *config.Config, client *redis.Client) map[domain.Purpose]service.RateLimiter {
	limiters := make(map[domain.Purpose]service.RateLimiter, len(domain.Purposes))
	for purpose, rl := range cfg.RateLimits() {
		if client != nil {
			limiters[purpose] = service.NewRedisRateLimiter(client, purpose.Flow(), rl.Window, rl.Max)
			continue
		}
		limiters[purpose] = service.NewSlidingWindowLimiter(rl.Window, rl.Max)
	}
	return limiters
}

func buildSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	renderer := email.NewRenderer(cfg.AppBaseURL)
	switch {
	case cfg.MailDevMode:
		logger.Warn("mail dev mode enabled, emails are only logged")
		return email.NewLogSender(logger, renderer)
	case cfg.MailerSendKey != "":
		sender, err := email.NewMailerSendSender(cfg.MailerSendKey, cfg.SMTPFrom, cfg.SMTPFromName, renderer)
		if err != nil {
			logger.Warn("mailersend sender init failed", zap.Error(err))
			break
		}
		return sender
	case cfg.SMTPHost != "":
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS, renderer)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
			break
		}
		return sender
	}
	return email.NewDisabledSender("email sender not configured")
}
