package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"therapist-booking/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	MarkEmailVerified(ctx context.Context, id, email string, verifiedAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, email, name, role, password_hash, email_verified_at, created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, name, role, password_hash, email_verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Role,
		user.PasswordHash,
		user.EmailVerifiedAt,
		user.CreatedAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *PgUserRepository) MarkEmailVerified(ctx context.Context, id, email string, verifiedAt time.Time) error {
	const query = `
		UPDATE users
		SET email_verified_at = $2, email = $3
		WHERE id = $1
	`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, verifiedAt, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.PasswordHash,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
