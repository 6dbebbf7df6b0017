package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"therapist-booking/internal/domain"
)

// MemoryTokenRepository guarda tokens en memoria del proceso. Se usa en
// desarrollo y en tests; no sobrevive reinicios.
type MemoryTokenRepository struct {
	mu    sync.Mutex
	items map[domain.Purpose]map[string]domain.Token
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		items: make(map[domain.Purpose]map[string]domain.Token),
	}
}

func (r *MemoryTokenRepository) Create(_ context.Context, token domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.items[token.Purpose]
	if !ok {
		ns = make(map[string]domain.Token)
		r.items[token.Purpose] = ns
	}
	ns[token.ID] = token
	return nil
}

func (r *MemoryTokenRepository) GetByEmail(_ context.Context, purpose domain.Purpose, email string) (domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		found domain.Token
		ok    bool
	)
	for _, t := range r.items[purpose] {
		if t.Email != email {
			continue
		}
		if !ok || t.Expires.After(found.Expires) {
			found, ok = t, true
		}
	}
	if !ok {
		return domain.Token{}, pgx.ErrNoRows
	}
	return found, nil
}

func (r *MemoryTokenRepository) GetByToken(_ context.Context, purpose domain.Purpose, value string) (domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items[purpose] {
		if t.Token == value {
			return t, nil
		}
	}
	return domain.Token{}, pgx.ErrNoRows
}

func (r *MemoryTokenRepository) Delete(_ context.Context, purpose domain.Purpose, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[purpose][id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items[purpose], id)
	return nil
}

func (r *MemoryTokenRepository) DeleteByEmail(_ context.Context, purpose domain.Purpose, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.items[purpose] {
		if t.Email == email {
			delete(r.items[purpose], id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryTokenRepository) DeleteExpired(_ context.Context, purpose domain.Purpose, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.items[purpose] {
		if t.Expires.Before(before) {
			delete(r.items[purpose], id)
			n++
		}
	}
	return n, nil
}

// Count devuelve cuantos tokens pendientes hay para un email.
func (r *MemoryTokenRepository) Count(purpose domain.Purpose, email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.items[purpose] {
		if t.Email == email {
			n++
		}
	}
	return n
}
