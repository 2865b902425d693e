// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

var userCols = []string{
	"id", "email", "password_hash", "name", "role", "email_verified",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func userRow(id, email string, role rbac.Role) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userCols).
		AddRow(id, email, "hash", "Test User", string(role), false, now, now)
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(userRow("u-1", "a@example.com", rbac.ShopManager))

	u, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, rbac.ShopManager, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := repo.Create(context.Background(), &User{
		ID:    "u-1",
		Email: "dup@example.com",
		Role:  rbac.Customer,
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("u-1", "new@example.com", "hash", "New", "CUSTOMER", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(now, now))

	u := &User{
		ID:           "u-1",
		Email:        "new@example.com",
		PasswordHash: "hash",
		Name:         "New",
		Role:         rbac.Customer,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
}

func TestRepository_UpdateRoleIf_ConflictWhenRoleChanged(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE users SET role = \$3`).
		WithArgs("u-1", "SHOP_MANAGER", "CUSTOMER").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	_, err := repo.UpdateRoleIf(
		context.Background(), "u-1", rbac.ShopManager, rbac.Customer,
	)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestRepository_MarkEmailVerified_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`SET email_verified = TRUE`).
		WithArgs("u-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkEmailVerified(context.Background(), "u-9")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE TRUE AND role = \$1`).
		WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("ADMIN", 20, 0).
		WillReturnRows(userRow("u-1", "admin@example.com", rbac.Admin))

	users, total, err := repo.List(context.Background(), ListUsersParams{Role: rbac.Admin})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, rbac.Admin, users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WithinTx_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(Repository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountByRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT role, COUNT\(\*\) AS count FROM users GROUP BY role`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("CUSTOMER", 12).
			AddRow("ADMIN", 2))

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, counts[rbac.Customer])
	assert.Equal(t, 2, counts[rbac.Admin])
	assert.Zero(t, counts[rbac.SuperAdmin])
	assert.NoError(t, mock.ExpectationsWereMet())
}
