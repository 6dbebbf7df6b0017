package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/repository"
)

// TokenVerifier consume tokens y aplica la transicion de cada proposito.
type TokenVerifier struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
	tx     repository.Transactor
	now    func() time.Time
	hash   func(password string) (string, error)
}

func NewTokenVerifier(tokens repository.TokenRepository, users repository.UserRepository, tx repository.Transactor) *TokenVerifier {
	if tx == nil {
		tx = repository.NopTransactor{}
	}
	return &TokenVerifier{
		tokens: tokens,
		users:  users,
		tx:     tx,
		now:    func() time.Time { return time.Now().UTC() },
		hash:   hashPassword,
	}
}

// Confirm valida el token y, si sirve, lo borra y actualiza al usuario en
// la misma transaccion. newPassword solo se usa para PasswordReset.
// Un token expirado no se borra aca.
func (v *TokenVerifier) Confirm(ctx context.Context, purpose domain.Purpose, value, newPassword string) (domain.User, error) {
	if v.tokens == nil || v.users == nil {
		return domain.User{}, errors.New("token verifier not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" || !purpose.Valid() {
		return domain.User{}, ErrInvalidFields
	}
	if purpose == domain.PurposePasswordReset && !isValidPassword(newPassword) {
		return domain.User{}, ErrInvalidFields
	}

	if !isValidCode(value) {
		return domain.User{}, ErrTokenNotFound
	}

	token, err := v.tokens.GetByToken(ctx, purpose, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrTokenNotFound
		}
		return domain.User{}, storeError(err)
	}

	now := v.now()
	if token.Expired(now) {
		return domain.User{}, ErrTokenExpired
	}

	user, err := v.users.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, storeError(err)
	}

	var passwordHash string
	if purpose == domain.PurposePasswordReset {
		if passwordHash, err = v.hash(newPassword); err != nil {
			return domain.User{}, err
		}
	}

	err = v.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Si otro intento ya lo borro, este pierde la carrera.
		if err := v.tokens.Delete(ctx, purpose, token.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTokenNotFound
			}
			return storeError(err)
		}
		var err error
		switch purpose {
		case domain.PurposePasswordReset:
			err = v.users.UpdatePassword(ctx, user.ID, passwordHash)
		default:
			err = v.users.MarkEmailVerified(ctx, user.ID, token.Email, now)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			err = storeError(err)
		}
		return domain.User{}, err
	}

	if purpose == domain.PurposePasswordReset {
		user.PasswordHash = passwordHash
	} else {
		user.Email = token.Email
		user.EmailVerifiedAt = &now
	}
	return user, nil
}

const (
	minPasswordLength = 6
	// bcrypt rechaza entradas de mas de 72 bytes.
	maxPasswordLength = 72
)

func isValidPassword(password string) bool {
	return len(strings.TrimSpace(password)) >= minPasswordLength && len(password) <= maxPasswordLength
}

func hashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrInvalidFields
	}
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}
