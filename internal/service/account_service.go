package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/email"
	"therapist-booking/internal/events"
	"therapist-booking/internal/repository"
)

// AccountService coordina los flujos de cuenta: emision de codigos,
// confirmaciones y registro.
type AccountService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	issuer   *TokenIssuer
	verifier *TokenVerifier
	limiters map[domain.Purpose]RateLimiter
	sender   email.Sender
	events   events.Publisher
	now      func() time.Time
}

func NewAccountService(
	logger *zap.Logger,
	users repository.UserRepository,
	issuer *TokenIssuer,
	verifier *TokenVerifier,
	limiters map[domain.Purpose]RateLimiter,
	sender email.Sender,
	publisher events.Publisher,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if sender == nil {
		sender = email.NewDisabledSender("email sender not configured")
	}
	return &AccountService{
		logger:   logger,
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		limiters: limiters,
		sender:   sender,
		events:   publisher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) RequestVerification(ctx context.Context, emailAddr string) (domain.Token, error) {
	return s.RequestToken(ctx, domain.PurposeEmailVerification, emailAddr)
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, emailAddr string) (domain.Token, error) {
	return s.RequestToken(ctx, domain.PurposePasswordReset, emailAddr)
}

func (s *AccountService) RequestDoctorApproval(ctx context.Context, emailAddr string) (domain.Token, error) {
	return s.RequestToken(ctx, domain.PurposeDoctorRegistration, emailAddr)
}

// RequestToken emite un codigo para un usuario existente. El limite del
// flujo se consulta antes de tocar el store; una solicitud rechazada no
// crea token ni envia correo.
func (s *AccountService) RequestToken(ctx context.Context, purpose domain.Purpose, emailAddr string) (domain.Token, error) {
	if s.users == nil || s.issuer == nil {
		return domain.Token{}, errors.New("account service not configured")
	}
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || !purpose.Valid() {
		return domain.Token{}, ErrInvalidFields
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, ErrEmailNotFound
		}
		return domain.Token{}, storeError(err)
	}

	if err := s.checkLimit(ctx, purpose, emailAddr); err != nil {
		return domain.Token{}, err
	}

	token, err := s.issuer.Issue(ctx, purpose, emailAddr)
	if err != nil {
		return domain.Token{}, err
	}
	if err := s.notify(ctx, token, user.FirstName()); err != nil {
		return domain.Token{}, err
	}
	return token, nil
}

func (s *AccountService) checkLimit(ctx context.Context, purpose domain.Purpose, key string) error {
	limiter := s.limiters[purpose]
	if limiter == nil {
		return nil
	}
	decision, err := limiter.Check(ctx, key)
	if err != nil {
		s.logger.Error("rate limiter check failed", zap.Error(err), zap.String("flow", purpose.Flow()))
		return err
	}
	if !decision.Allowed {
		return &RateLimitedError{Flow: purpose.Flow(), RetryAfter: decision.RetryAfter}
	}
	return nil
}

// notify envia el codigo. Si falla, el token ya creado sigue vigente.
func (s *AccountService) notify(ctx context.Context, token domain.Token, name string) error {
	err := s.sender.Send(ctx, email.Notification{
		Kind:      notificationKind(token.Purpose),
		To:        token.Email,
		Name:      name,
		Token:     token.Token,
		ExpiresAt: token.Expires,
	})
	if err != nil {
		s.logger.Warn("send token email failed",
			zap.Error(err),
			zap.String("email", token.Email),
			zap.String("purpose", string(token.Purpose)),
		)
		return fmt.Errorf("%w: %w", ErrEmailSendFailure, err)
	}
	s.publish(ctx, events.TokenIssued, events.TokenIssuedEvent{
		Purpose:   string(token.Purpose),
		Email:     token.Email,
		ExpiresAt: token.Expires,
	})
	return nil
}

func (s *AccountService) ConfirmEmail(ctx context.Context, value string) (domain.User, error) {
	return s.confirm(ctx, domain.PurposeEmailVerification, value, "", events.AccountEmailVerified)
}

func (s *AccountService) ConfirmDoctor(ctx context.Context, value string) (domain.User, error) {
	return s.confirm(ctx, domain.PurposeDoctorRegistration, value, "", events.AccountDoctorVerified)
}

func (s *AccountService) ResetPassword(ctx context.Context, value, newPassword string) (domain.User, error) {
	return s.confirm(ctx, domain.PurposePasswordReset, value, newPassword, events.AccountPasswordUpdated)
}

func (s *AccountService) confirm(ctx context.Context, purpose domain.Purpose, value, newPassword, subject string) (domain.User, error) {
	if s.verifier == nil {
		return domain.User{}, errors.New("account service not configured")
	}
	user, err := s.verifier.Confirm(ctx, purpose, value, newPassword)
	if err != nil {
		return domain.User{}, err
	}
	s.publish(ctx, subject, events.AccountEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		OccurredAt: s.now(),
	})
	return user, nil
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// Register crea un paciente o doctor sin verificar y le envia el codigo
// de confirmacion que corresponde a su rol.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil || s.issuer == nil {
		return domain.User{}, errors.New("account service not configured")
	}
	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if emailAddr == "" || name == "" || !isValidPassword(input.Password) || !domain.IsValidRole(role) {
		return domain.User{}, ErrInvalidFields
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return domain.User{}, ErrEmailInUse
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return domain.User{}, storeError(err)
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrEmailInUse
		}
		return domain.User{}, storeError(err)
	}

	purpose := domain.PurposeEmailVerification
	if role == domain.RoleDoctor {
		purpose = domain.PurposeDoctorRegistration
	}
	token, err := s.issuer.Issue(ctx, purpose, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.notify(ctx, token, user.FirstName()); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.logger.Warn("publish event failed", zap.Error(err), zap.String("subject", subject))
	}
}

func notificationKind(purpose domain.Purpose) email.Kind {
	switch purpose {
	case domain.PurposePasswordReset:
		return email.KindPasswordReset
	case domain.PurposeDoctorRegistration:
		return email.KindDoctorRegistration
	}
	return email.KindVerification
}

func normalizeEmail(emailAddr string) string {
	return strings.ToLower(strings.TrimSpace(emailAddr))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
