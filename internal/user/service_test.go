// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

func actor(role rbac.Role) rbac.Identity {
	return rbac.Identity{UserID: "actor", Role: role}
}

func TestUpdateRole_AdminDemotesShopManager(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)
	updatedAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("target").
		WillReturnRows(userRow("target", "sm@example.com", rbac.ShopManager))
	mock.ExpectQuery(`UPDATE users SET role = \$3`).
		WithArgs("target", "SHOP_MANAGER", "CUSTOMER").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
	mock.ExpectCommit()

	u, err := svc.UpdateRole(context.Background(), actor(rbac.Admin), "target", rbac.Customer)
	require.NoError(t, err)
	assert.Equal(t, rbac.Customer, u.Role)
	assert.Equal(t, updatedAt, u.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_PeerIsRefusedWithoutWrite(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("other-admin").
		WillReturnRows(userRow("other-admin", "a2@example.com", rbac.Admin))
	mock.ExpectRollback()

	_, err := svc.UpdateRole(context.Background(), actor(rbac.Admin), "other-admin", rbac.Customer)
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.NotErrorIs(t, err, ErrRoleNotGrantable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_SuperAdminPeerIsRefused(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(userRow("root-2", "root2@example.com", rbac.SuperAdmin))
	mock.ExpectRollback()

	_, err := svc.UpdateRole(context.Background(), actor(rbac.SuperAdmin), "root-2", rbac.Admin)
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_CannotGrantAboveOwnRank(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(userRow("c-1", "c@example.com", rbac.Customer))
	mock.ExpectRollback()

	_, err := svc.UpdateRole(context.Background(), actor(rbac.Admin), "c-1", rbac.SuperAdmin)
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.ErrorIs(t, err, ErrRoleNotGrantable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_TargetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectRollback()

	_, err := svc.UpdateRole(context.Background(), actor(rbac.SuperAdmin), "ghost", rbac.Customer)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateRole_ConcurrentChangeIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(userRow("target", "sm@example.com", rbac.ShopManager))
	mock.ExpectQuery(`UPDATE users SET role = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	_, err := svc.UpdateRole(context.Background(), actor(rbac.Admin), "target", rbac.Customer)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_UnknownRoleNeverTouchesStore(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	_, err := svc.UpdateRole(context.Background(), actor(rbac.SuperAdmin), "target", rbac.Role("OWNER"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRole_SameRoleIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(userRow("target", "c@example.com", rbac.Customer))
	mock.ExpectCommit()

	u, err := svc.UpdateRole(context.Background(), actor(rbac.ShopManager), "target", rbac.Customer)
	require.NoError(t, err)
	assert.Equal(t, rbac.Customer, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_RequiresUserID(t *testing.T) {
	repo, _ := newMockRepo(t)
	svc := NewService(repo)

	_, err := svc.GetProfile(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestEnsureSuperAdmin_Creates(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "root@example.com", sqlmock.AnyArg(), "Root", "SUPER_ADMIN", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u, created, err := svc.EnsureSuperAdmin(context.Background(), " Root@Example.com ", "Root", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rbac.SuperAdmin, u.Role)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSuperAdmin_ExistingAccountUntouched(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo)

	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("root@example.com").
		WillReturnRows(userRow("u-9", "root@example.com", rbac.Customer))

	u, created, err := svc.EnsureSuperAdmin(context.Background(), "root@example.com", "Root", "pw-123456")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rbac.Customer, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
