package repository

import (
	"context"
	"testing"
	"time"

	"comfycloud/internal/model"
	"comfycloud/pkg/log"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupUserRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	repo := NewRepository(&log.Logger{Logger: zap.NewNop()}, gdb, nil)
	return NewUserRepository(repo), mock
}

func TestDebitBalanceGuard(t *testing.T) {
	repo, mock := setupUserRepo(t)

	// The guard rides in the WHERE clause: id, amount, floor.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user` SET").
		WithArgs(2.5, sqlmock.AnyArg(), int64(1), 2.5, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := repo.DebitBalance(context.Background(), 1, 2.5, 0)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitBalanceGuardRejects(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := repo.DebitBalance(context.Background(), 1, 100, 0)
	require.NoError(t, err)
	assert.False(t, applied, "zero rows affected means the balance could not cover it")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNeverWritesBalance(t *testing.T) {
	repo, mock := setupUserRepo(t)

	// Map updates are emitted in column order, so a SET clause starting
	// at gmt_modified proves balance (which would sort first) is absent.
	// A profile write carrying a stale balance would erase concurrent
	// ledger debits.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user` SET `gmt_modified`=\\?,`last_login_at`=\\?,`role`=\\?,`status`=\\?,`storage_limit`=\\?,`tier`=\\?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "user", "active", 50.0, "pro", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lastLogin := time.Now()
	err := repo.Update(context.Background(), &model.User{
		Id:           7,
		Username:     "alice",
		Tier:         "pro",
		Balance:      999, // stale read; must never reach the database
		StorageUsed:  3,
		StorageLimit: 50,
		Role:         model.UserRoleUser,
		Status:       model.UserStatusActive,
		LastLoginAt:  &lastLogin,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `user`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, user, "missing rows surface as nil, not as an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsername(t *testing.T) {
	repo, mock := setupUserRepo(t)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "tier", "balance"}).
		AddRow(7, "alice", "alice@example.com", "pro", 12.5)
	mock.ExpectQuery("SELECT \\* FROM `user`").
		WithArgs("alice", 1).
		WillReturnRows(rows)

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.Id)
	assert.Equal(t, "pro", user.Tier)
	assert.InDelta(t, 12.5, user.Balance, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditBalance(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreditBalance(context.Background(), 1, 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}
