package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/email"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	updates      int
	err          error
}

func newMockUserRepo(users ...domain.User) *mockUserRepo {
	m := &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
	for _, u := range users {
		_ = m.Create(context.Background(), u)
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getByID(id)
}

func (m *mockUserRepo) getByID(id string) (domain.User, error) {
	if m.err != nil {
		return domain.User{}, m.err
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, emailAddr string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.User{}, m.err
	}
	id, ok := m.usersByEmail[emailAddr]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.getByID(id)
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, id, emailAddr string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.usersByEmail, user.Email)
	user.Email = emailAddr
	user.EmailVerifiedAt = &verifiedAt
	m.usersByID[id] = user
	m.usersByEmail[emailAddr] = id
	m.updates++
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	m.updates++
	return nil
}

func (m *mockUserRepo) user(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usersByID[id]
}

type mockSender struct {
	mu   sync.Mutex
	sent []email.Notification
	err  error
}

func (m *mockSender) Send(_ context.Context, n email.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type publishedEvent struct {
	subject string
	data    any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.subject)
	}
	return out
}

// failingTokenRepo devuelve err en todas las operaciones.
type failingTokenRepo struct {
	err error
}

func (f failingTokenRepo) Create(context.Context, domain.Token) error { return f.err }

func (f failingTokenRepo) GetByEmail(context.Context, domain.Purpose, string) (domain.Token, error) {
	return domain.Token{}, f.err
}

func (f failingTokenRepo) GetByToken(context.Context, domain.Purpose, string) (domain.Token, error) {
	return domain.Token{}, f.err
}

func (f failingTokenRepo) Delete(context.Context, domain.Purpose, string) error { return f.err }

func (f failingTokenRepo) DeleteByEmail(context.Context, domain.Purpose, string) (int64, error) {
	return 0, f.err
}

func (f failingTokenRepo) DeleteExpired(context.Context, domain.Purpose, time.Time) (int64, error) {
	return 0, f.err
}

var errStoreDown = errors.New("connection refused")

// fixedCodes devuelve los codigos en orden.
func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

// cheapHash evita el costo de bcrypt en tests.
func cheapHash(password string) (string, error) {
	return "hashed:" + password, nil
}
