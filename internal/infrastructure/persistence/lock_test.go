package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func newTestLevel(t *testing.T) *inventory.Level {
	t.Helper()
	level, err := inventory.NewLevel(uuid.New(), "SKU-1")
	require.NoError(t, err)
	return level
}

func TestInventoryLevelSaveWithLock(t *testing.T) {
	t.Run("increments version on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		level := newTestLevel(t)

		mock.ExpectExec(`UPDATE "inventory_levels" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewGormInventoryLevelRepository(db).SaveWithLock(context.Background(), level))
		assert.Equal(t, 2, level.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a concurrent modification", func(t *testing.T) {
		db, mock := newMockDB(t)
		level := newTestLevel(t)

		mock.ExpectExec(`UPDATE "inventory_levels" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormInventoryLevelRepository(db).SaveWithLock(context.Background(), level)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
		assert.Equal(t, 1, level.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is returned as is", func(t *testing.T) {
		db, mock := newMockDB(t)
		level := newTestLevel(t)

		mock.ExpectExec(`UPDATE "inventory_levels" SET`).
			WillReturnError(assert.AnError)

		err := NewGormInventoryLevelRepository(db).SaveWithLock(context.Background(), level)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, level.Version)
	})
}

func TestIdempotencyRecordUpdate_StaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	scope := idempotency.Scope{TenantID: uuid.New(), Operation: "fulfillment.confirm", EntityID: uuid.New()}
	record, err := idempotency.NewProcessingRecord(scope, "key-1", "fp", time.Minute, time.Now())
	require.NoError(t, err)
	require.NoError(t, record.Fail(time.Now()))

	mock.ExpectExec(`UPDATE "idempotency_records" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewGormIdempotencyRecordStore(db).Update(context.Background(), record)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.Equal(t, 1, record.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionScope_TranslatesCommitConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

	err := NewGormTransactionScope(db).Execute(context.Background(), func(appfulfillment.TransactionalRepositories) error {
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionScope_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewGormTransactionScope(db).Execute(context.Background(), func(appfulfillment.TransactionalRepositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
