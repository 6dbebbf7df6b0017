package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/repository"
)

const defaultTokenTTL = 30 * time.Minute

// TokenIssuer emite tokens y mantiene un solo token pendiente por
// (proposito, email).
type TokenIssuer struct {
	tokens repository.TokenRepository
	ttls   map[domain.Purpose]time.Duration
	now    func() time.Time
	code   func() (string, error)
}

func NewTokenIssuer(tokens repository.TokenRepository, ttls map[domain.Purpose]time.Duration) *TokenIssuer {
	return &TokenIssuer{
		tokens: tokens,
		ttls:   ttls,
		now:    func() time.Time { return time.Now().UTC() },
		code:   generateCode,
	}
}

// TTL devuelve la vigencia de los tokens del proposito.
func (i *TokenIssuer) TTL(purpose domain.Purpose) time.Duration {
	if ttl, ok := i.ttls[purpose]; ok && ttl > 0 {
		return ttl
	}
	return defaultTokenTTL
}

func (i *TokenIssuer) Issue(ctx context.Context, purpose domain.Purpose, email string) (domain.Token, error) {
	if i.tokens == nil {
		return domain.Token{}, errors.New("token issuer not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" || !purpose.Valid() {
		return domain.Token{}, ErrInvalidFields
	}

	// Borra todos los pendientes del email, no solo el ultimo: si dos
	// emisiones concurrentes dejaron dos tokens, esta vuelve a dejar uno.
	if _, err := i.tokens.DeleteByEmail(ctx, purpose, email); err != nil {
		return domain.Token{}, storeError(err)
	}

	value, err := i.code()
	if err != nil {
		return domain.Token{}, fmt.Errorf("generate token: %w", err)
	}
	token := domain.Token{
		ID:      uuid.NewString(),
		Purpose: purpose,
		Email:   email,
		Token:   value,
		Expires: i.now().Add(i.TTL(purpose)),
	}
	if err := i.tokens.Create(ctx, token); err != nil {
		return domain.Token{}, storeError(err)
	}
	return token, nil
}

// generateCode devuelve un codigo numerico de 6 digitos entre 100000 y 999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func isValidCode(code string) bool {
	if len(code) != 6 || code[0] == '0' {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
