package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"therapist-booking/internal/domain"
)

// TokenRepository persiste tokens por proposito. Los metodos Get devuelven
// pgx.ErrNoRows si no hay registro; Delete tambien cuando no borra nada.
type TokenRepository interface {
	Create(ctx context.Context, token domain.Token) error
	GetByEmail(ctx context.Context, purpose domain.Purpose, email string) (domain.Token, error)
	GetByToken(ctx context.Context, purpose domain.Purpose, value string) (domain.Token, error)
	Delete(ctx context.Context, purpose domain.Purpose, id string) error
	DeleteByEmail(ctx context.Context, purpose domain.Purpose, email string) (int64, error)
	DeleteExpired(ctx context.Context, purpose domain.Purpose, before time.Time) (int64, error)
}

const tokenQueryTimeout = 3 * time.Second

// PgTokenRepository guarda cada proposito en su propia tabla.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

func tokenTable(purpose domain.Purpose) (string, error) {
	switch purpose {
	case domain.PurposeEmailVerification:
		return "verification_tokens", nil
	case domain.PurposePasswordReset:
		return "password_reset_tokens", nil
	case domain.PurposeDoctorRegistration:
		return "doctor_registration_tokens", nil
	}
	return "", fmt.Errorf("unknown token purpose %q", purpose)
}

func (r *PgTokenRepository) Create(ctx context.Context, token domain.Token) error {
	table, err := tokenTable(token.Purpose)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenQueryTimeout)
	defer cancel()

	query := `INSERT INTO ` + table + ` (id, email, token, expires) VALUES ($1, $2, $3, $4)`
	_, err = conn(ctx, r.pool).Exec(ctx, query, token.ID, token.Email, token.Token, token.Expires)
	return err
}

func (r *PgTokenRepository) GetByEmail(ctx context.Context, purpose domain.Purpose, email string) (domain.Token, error) {
	table, err := tokenTable(purpose)
	if err != nil {
		return domain.Token{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenQueryTimeout)
	defer cancel()

	query := `
		SELECT id, email, token, expires FROM ` + table + `
		WHERE email = $1
		ORDER BY expires DESC
		LIMIT 1`
	return scanToken(purpose, conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *PgTokenRepository) GetByToken(ctx context.Context, purpose domain.Purpose, value string) (domain.Token, error) {
	table, err := tokenTable(purpose)
	if err != nil {
		return domain.Token{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenQueryTimeout)
	defer cancel()

	query := `SELECT id, email, token, expires FROM ` + table + ` WHERE token = $1 LIMIT 1`
	return scanToken(purpose, conn(ctx, r.pool).QueryRow(ctx, query, value))
}

func (r *PgTokenRepository) Delete(ctx context.Context, purpose domain.Purpose, id string) error {
	table, err := tokenTable(purpose)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenQueryTimeout)
	defer cancel()

	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgTokenRepository) DeleteByEmail(ctx context.Context, purpose domain.Purpose, email string) (int64, error) {
	table, err := tokenTable(purpose)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenQueryTimeout)
	defer cancel()

	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM `+table+` WHERE email = $1`, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgTokenRepository) DeleteExpired(ctx context.Context, purpose domain.Purpose, before time.Time) (int64, error) {
	table, err := tokenTable(purpose)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM `+table+` WHERE expires < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanToken(purpose domain.Purpose, row pgx.Row) (domain.Token, error) {
	t := domain.Token{Purpose: purpose}
	err := row.Scan(&t.ID, &t.Email, &t.Token, &t.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Token{}, err
	}
	return t, err
}
