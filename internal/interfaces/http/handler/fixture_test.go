package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/settlement"
	"github.com/erp/fulfillment/internal/application/shipping"
	"github.com/erp/fulfillment/internal/application/withdrawal"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/carrier"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var platformAccount = uuid.MustParse("00000000-0000-0000-0000-00000000a001")

// scriptedCarrier answers with the queued status codes, then 200
type scriptedCarrier struct {
	calls    atomic.Int32
	statuses []int
}

func (s *scriptedCarrier) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	n := int(s.calls.Add(1))
	if n <= len(s.statuses) {
		w.WriteHeader(s.statuses[n-1])
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"id":"EXT-%d","status":"created"}`, n)
}

type apiFixture struct {
	engine   *gin.Engine
	jwt      *auth.JWTService
	carrier  *scriptedCarrier
	db       *gorm.DB
	admin    shared.Actor
	marketer shared.Actor
}

func newAPIFixture(t *testing.T, carrierStatuses ...int) *apiFixture {
	t.Helper()
	log := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	orders := persistence.NewGormOrderRepository(db)
	shipments := persistence.NewGormShipmentRepository(db)
	ledgerRepo := persistence.NewGormLedgerRepository(db)
	bus := event.NewInMemoryEventBus(log)

	sc := &scriptedCarrier{statuses: carrierStatuses}
	srv := httptest.NewServer(sc)
	t.Cleanup(srv.Close)
	courier, err := carrier.NewHTTPCarrier(config.CarrierConfig{
		Code: "courier", BaseURL: srv.URL, APIKey: "k", CredentialsRef: "acct", TimeoutSeconds: 5,
	}, log)
	require.NoError(t, err)
	registry := shipment.NewCarrierRegistry("courier")
	registry.Register(courier)

	fulfillSvc := fulfillment.NewFulfillmentService(orders, bus, decimal.NewFromInt(10), log)
	ledgerSvc := settlement.NewLedgerService(ledgerRepo, bus, log)
	distributor := settlement.NewProfitDistributionService(orders, ledgerSvc, bus, config.SettlementConfig{
		PlatformAccountID:   platformAccount,
		CommissionRate:      decimal.NewFromInt(10),
		EligibleSellerRoles: []string{string(shared.RoleMarketer)},
		BatchSize:           50,
	}, log)
	dispatcher := shipping.NewDispatchService(orders, shipments, registry, bus, config.ShippingConfig{
		DefaultCarrier: "courier", BarcodePrefix: "SHP", BatchSize: 10,
	}, log)
	withdrawals := withdrawal.NewWithdrawalService(ledgerSvc, bus, config.WithdrawalConfig{
		MinimumAmount: decimal.NewFromInt(20),
		MaximumAmount: decimal.NewFromInt(10000),
		FeeRate:       decimal.Zero,
	}, log)

	delivered := settlement.NewOrderDeliveredHandler(distributor, log)
	bus.Subscribe(delivered, delivered.EventTypes()...)

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret-of-32-characters", Issuer: "test"})
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	perms := middleware.PermissionConfig{Logger: log}
	r := router.NewRouter(engine, router.WithAPIMiddleware(
		middleware.JWTAuthMiddleware(middleware.DefaultJWTConfig(jwtService, log)),
	))
	r.RegisterRoot(NewHealthHandler("test", map[string]Pinger{"database": sqlDB}))
	r.Register(NewOrderHandler(fulfillSvc))
	r.Register(NewSettlementHandler(distributor, ledgerSvc, perms))
	r.Register(NewShipmentHandler(dispatcher, fulfillSvc, perms))
	r.Register(NewWithdrawalHandler(withdrawals, perms))
	r.Setup()

	return &apiFixture{
		engine:   engine,
		jwt:      jwtService,
		carrier:  sc,
		db:       db,
		admin:    shared.NewActor(uuid.New(), shared.RoleAdmin),
		marketer: shared.NewActor(uuid.New(), shared.RoleMarketer),
	}
}

// apiResult is a decoded response envelope
type apiResult struct {
	Status int
	Body   dto.Response
	Raw    []byte
}

// data decodes the envelope's data into out
func (r apiResult) data(t *testing.T, out any) {
	t.Helper()
	raw, err := json.Marshal(r.Body.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (r apiResult) code() string {
	if r.Body.Error == nil {
		return ""
	}
	return r.Body.Error.Code
}

func (f *apiFixture) do(t *testing.T, actor *shared.Actor, method, path string, body any) apiResult {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		token, err := f.jwt.Issue(*actor, "", time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	res := apiResult{Status: rec.Code, Raw: rec.Body.Bytes()}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	return res
}

func placeOrderBody() map[string]any {
	return map[string]any{
		"recipient": map[string]any{"name": "Jane Doe", "phone": "555-0100", "address": "1 Main St"},
		"items": []map[string]any{{
			"product_id":   uuid.New(),
			"product_name": "Lamp",
			"quantity":     2,
			"unit_price":   "150",
			"base_price":   "100",
		}},
	}
}
