package email

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Kind selecciona la plantilla del correo.
type Kind string

const (
	KindVerification       Kind = "verification"
	KindPasswordReset      Kind = "password_reset"
	KindDoctorRegistration Kind = "doctor_registration"
)

// Notification es lo que se envia al usuario: el codigo y datos para mostrar.
type Notification struct {
	Kind      Kind
	To        string
	Name      string
	Token     string
	ExpiresAt time.Time
}

// Sender define la interfaz para envio de correos con tokens.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Notification) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// LogSender escribe el correo en el log en vez de enviarlo. Solo para desarrollo.
type LogSender struct {
	logger   *zap.Logger
	renderer Renderer
}

func NewLogSender(logger *zap.Logger, renderer Renderer) *LogSender {
	return &LogSender{logger: logger, renderer: renderer}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	msg, err := s.renderer.Render(n)
	if err != nil {
		return err
	}
	s.logger.Info("dev mail",
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.To),
		zap.String("subject", msg.Subject),
		zap.String("token", n.Token),
		zap.String("link", msg.Link),
		zap.Time("expires_at", n.ExpiresAt),
	)
	return nil
}
