package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veein-web/AI-Background-Remover/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userRowColumns = []string{"id", "email", "password_hash", "display_name", "credits", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO users`).
		WithArgs("u-1", "alice@example.com", []byte("hash"), "Alice", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), models.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		PasswordHash: []byte("hash"),
		DisplayName:  "Alice",
		Credits:      1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), models.User{ID: "u-1", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "alice@example.com", nil, "Alice", 3, now, now))

	user, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, 3, user.Credits)
	assert.False(t, user.HasPassword())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_FindOrCreateByEmail_Creates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO users .* ON CONFLICT \(email\) DO NOTHING\s+RETURNING`).
		WithArgs("u-1", "g@example.com", sqlmock.AnyArg(), "G", 1).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "g@example.com", nil, "G", 1, now, now))

	user, created, err := repo.FindOrCreateByEmail(context.Background(), models.User{
		ID: "u-1", Email: "g@example.com", DisplayName: "G", Credits: 1,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindOrCreateByEmail_ReusesExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO users .* ON CONFLICT`).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE email = \$1`).
		WithArgs("g@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-old", "g@example.com", nil, "G", 0, now, now))

	user, created, err := repo.FindOrCreateByEmail(context.Background(), models.User{
		ID: "u-new", Email: "g@example.com", DisplayName: "G", Credits: 1,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u-old", user.ID)
	assert.Equal(t, 0, user.Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Debit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users\s+SET credits = credits - \$2.*WHERE id = \$1 AND credits >= \$2\s+RETURNING credits`).
		WithArgs("u-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(1))

	balance, err := repo.Debit(context.Background(), "u-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)
}

func TestUserRepository_Debit_Insufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users`).
		WithArgs("u-1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}))

	_, err := repo.Debit(context.Background(), "u-1", 3)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestUserRepository_Debit_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Debit(context.Background(), "u-1", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientCredits)
	assert.Contains(t, err.Error(), "debit credits: db down")
}

func TestUserRepository_Balance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT credits FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(4))

	balance, err := repo.Balance(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 4, balance)
}
