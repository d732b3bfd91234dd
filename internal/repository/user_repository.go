package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Veein-web/AI-Background-Remover/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, credits, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (id, email, password_hash, display_name, credits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Credits,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindOrCreateByEmail inserts user unless an account with the same email
// exists, in which case the existing row is returned. The insert and the
// conflict check are one statement, so concurrent callers converge on a
// single account.
func (r *UserRepository) FindOrCreateByEmail(ctx context.Context, user models.User) (models.User, bool, error) {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, credits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + userColumns

	created, err := r.scanOne(r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Credits,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, false, err
	}

	existing, err := r.FindByEmail(ctx, user.Email)
	if err != nil {
		return models.User{}, false, err
	}
	return existing, false, nil
}

// Debit subtracts cost from the balance only if the balance covers it and
// returns the new balance. ErrInsufficientCredits means nothing changed.
func (r *UserRepository) Debit(ctx context.Context, id string, cost int) (int, error) {
	const query = `
		UPDATE users
		SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`

	var balance int
	if err := r.db.QueryRowContext(ctx, query, id, cost).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	return balance, nil
}

func (r *UserRepository) Balance(ctx context.Context, id string) (int, error) {
	const query = `SELECT credits FROM users WHERE id = $1`

	var balance int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Credits,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}
