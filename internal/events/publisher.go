package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	AccountEmailVerified   = "account.email_verified"
	AccountPasswordUpdated = "account.password_updated"
	AccountDoctorVerified  = "account.doctor_verified"
	TokenIssued            = "token.issued"
)

// AccountEvent se publica cuando un token se consume con exito.
type AccountEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TokenIssuedEvent no lleva el codigo, solo metadatos.
type TokenIssuedEvent struct {
	Purpose   string    `json:"purpose"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Publisher publica eventos de dominio.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type natsConn interface {
	Publish(subj string, data []byte) error
	Close()
}

type NATSPublisher struct {
	conn   natsConn
	logger *zap.Logger
}

// NewNATSPublisher conecta al servidor NATS indicado.
func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("therapist-booking"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(conn, logger), nil
}

func newNATSPublisher(conn natsConn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return errors.New("subject is required")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.logger.Debug("publishing event", zap.String("subject", subject), zap.Int("bytes", len(payload)))
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NopPublisher descarta todos los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
