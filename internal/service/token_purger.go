package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/repository"
)

// TokenPurger borra tokens expirados. No corre en segundo plano; lo
// invoca cmd/tokenpurge.
type TokenPurger struct {
	logger *zap.Logger
	tokens repository.TokenRepository
}

func NewTokenPurger(logger *zap.Logger, tokens repository.TokenRepository) *TokenPurger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenPurger{logger: logger, tokens: tokens}
}

// Purge borra los tokens con expires anterior a before. Sin propositos
// recorre todos.
func (p *TokenPurger) Purge(ctx context.Context, before time.Time, purposes ...domain.Purpose) (map[domain.Purpose]int64, error) {
	if p.tokens == nil {
		return nil, errors.New("token purger not configured")
	}
	if len(purposes) == 0 {
		purposes = domain.Purposes
	}
	for _, purpose := range purposes {
		if !purpose.Valid() {
			return nil, ErrInvalidFields
		}
	}

	removed := make(map[domain.Purpose]int64, len(purposes))
	for _, purpose := range purposes {
		n, err := p.tokens.DeleteExpired(ctx, purpose, before)
		if err != nil {
			return removed, storeError(err)
		}
		removed[purpose] = n
		p.logger.Info("expired tokens purged",
			zap.String("purpose", string(purpose)),
			zap.Int64("removed", n),
			zap.Time("before", before),
		)
	}
	return removed, nil
}
