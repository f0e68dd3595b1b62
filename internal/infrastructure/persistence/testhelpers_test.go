package persistence

import (
	"testing"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLiteDB opens an in-memory database with the fulfillment schema.
// A single connection keeps every statement on the same in-memory database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestOrder(t *testing.T, sellerID uuid.UUID) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber: "ORD-" + uuid.NewString()[:8],
		SellerID:    sellerID,
		SellerRole:  shared.RoleMarketer,
		Recipient: order.Recipient{
			Name:    "Jane Doe",
			Phone:   "555-0100",
			Address: "1 Main St",
		},
		Items: []order.NewItemInput{{
			ProductID:   uuid.New(),
			ProductName: "Widget",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(150),
			BasePrice:   decimal.NewFromInt(100),
		}},
		ShippingCost:   decimal.NewFromInt(30),
		CommissionRate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	return o
}
