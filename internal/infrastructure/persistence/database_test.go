package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	// gorm pings once while opening
	mock.ExpectPing()

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_PingContext(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()

		assert.NoError(t, db.PingContext(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping failure is returned", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err := db.PingContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
}

func TestGormOrderRepository_MarkProfitsDistributed_SQL(t *testing.T) {
	orderID := uuid.New()

	t.Run("guard is part of the UPDATE predicate", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$\d+ AND status = \$\d+ AND profits_distributed = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewGormOrderRepository(db.DB)
		assert.NoError(t, repo.MarkProfitsDistributed(context.Background(), orderID, time.Now()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row on a distributed order is ALREADY_DISTRIBUTED", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "orders" WHERE .*id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"order_number", "status", "profits_distributed"}).
				AddRow("ORD-1", "delivered", true))

		repo := NewGormOrderRepository(db.DB)
		err := repo.MarkProfitsDistributed(context.Background(), orderID, time.Now())
		assert.ErrorIs(t, err, shared.ErrAlreadyDistributed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row on a returned order is INVALID_TRANSITION", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "orders" WHERE .*id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"order_number", "status", "profits_distributed"}).
				AddRow("ORD-1", "returned", false))

		repo := NewGormOrderRepository(db.DB)
		err := repo.MarkProfitsDistributed(context.Background(), orderID, time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.False(t, errors.Is(err, shared.ErrAlreadyDistributed))
	})

	t.Run("driver errors pass through", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnError(errors.New("deadlock detected"))

		repo := NewGormOrderRepository(db.DB)
		err := repo.MarkProfitsDistributed(context.Background(), orderID, time.Now())
		require.Error(t, err)
		assert.False(t, errors.Is(err, shared.ErrAlreadyDistributed))
	})
}
