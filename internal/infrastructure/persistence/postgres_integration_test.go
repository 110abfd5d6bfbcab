package persistence_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appidempotency "github.com/erp/fulfillment/internal/application/idempotency"
	"github.com/erp/fulfillment/internal/domain/document"
	"github.com/erp/fulfillment/internal/domain/finance"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// startPostgres runs a disposable PostgreSQL with the embedded migrations applied
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fulfillment_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	return db
}

type pgSeed struct {
	actor  shared.Actor
	order  *fulfillment.Order
	levelA *inventory.Level
	lineA  uuid.UUID
	lineB  uuid.UUID
}

func seedPostgres(t *testing.T, db *gorm.DB) *pgSeed {
	t.Helper()
	ctx := context.Background()
	s := &pgSeed{actor: shared.Actor{ActorID: uuid.New(), TenantID: uuid.New()}}
	tenant, customer := s.actor.TenantID, uuid.New()

	var levelB *inventory.Level
	err := persistence.NewGormTransactionScope(db).Execute(ctx, func(repos appfulfillment.TransactionalRepositories) error {
		applier := inventory.NewApplier(repos.Levels(), repos.Movements(), inventory.StockPolicy{})
		var err error
		if s.levelA, _, err = applier.Open(ctx, s.actor, "SKU-A", dec("100"), "opening count"); err != nil {
			return err
		}
		levelB, _, err = applier.Open(ctx, s.actor, "SKU-B", dec("100"), "opening count")
		return err
	})
	require.NoError(t, err)

	parent, err := fulfillment.NewSaleOrder(tenant, customer, "SO-0001")
	require.NoError(t, err)
	s.order, err = fulfillment.NewOrder(tenant, parent.ID, uuid.New(), "FO-0001")
	require.NoError(t, err)
	la, err := s.order.AddLine(s.levelA.ID, "Widget", dec("10"))
	require.NoError(t, err)
	lb, err := s.order.AddLine(levelB.ID, "Gadget", dec("5"))
	require.NoError(t, err)
	s.lineA, s.lineB = la.ID, lb.ID

	shipment := document.NewShipmentDocument(tenant, s.order.ID)
	s.order.ShipmentDocumentID = shipment.ID
	invoice := document.NewInvoice(tenant, s.order.ID, customer)
	_, err = invoice.AddLine(la.ID, "Widget", dec("12.50"), decimal.Zero, dec("0.10"))
	require.NoError(t, err)
	_, err = invoice.AddLine(lb.ID, "Gadget", dec("20.00"), decimal.Zero, dec("0.10"))
	require.NoError(t, err)
	s.order.InvoiceID = &invoice.ID

	account, err := finance.NewAccount(tenant, customer, "AR-0001", finance.AccountKindReceivable)
	require.NoError(t, err)

	err = persistence.NewGormTransactionScope(db).Execute(ctx, func(repos appfulfillment.TransactionalRepositories) error {
		if err := repos.SaleOrders().Create(ctx, parent); err != nil {
			return err
		}
		if err := repos.Shipments().Create(ctx, shipment); err != nil {
			return err
		}
		if err := repos.Invoices().Create(ctx, invoice); err != nil {
			return err
		}
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return repos.Orders().Create(ctx, s.order)
	})
	require.NoError(t, err)
	return s
}

func (s *pgSeed) input() appfulfillment.ConfirmOrderInput {
	ten, five := dec("10"), dec("5")
	return appfulfillment.ConfirmOrderInput{
		Lines: []appfulfillment.ConfirmLineInput{
			{LineID: s.lineA, ReportedQty: &ten},
			{LineID: s.lineB, ReportedQty: &five},
		},
		Evidence: json.RawMessage(`{"signedBy":"J. Doe"}`),
	}
}

func newPostgresService(db *gorm.DB) *appfulfillment.ConfirmService {
	coordinator := appidempotency.NewCoordinator(persistence.NewGormIdempotencyRecordStore(db))
	return appfulfillment.NewConfirmService(persistence.NewGormTransactionScope(db), coordinator, appfulfillment.Policy{
		InvoiceOnFulfillment: true,
		PartialInvoice:       appfulfillment.PartialInvoiceDefer,
	})
}

func TestPostgres_ConfirmAndReplay(t *testing.T) {
	db := startPostgres(t)
	s := seedPostgres(t, db)
	svc := newPostgresService(db)
	ctx := context.Background()

	first, err := svc.Confirm(ctx, s.actor, s.order.ID, "pg-key-1", s.input())
	require.NoError(t, err)

	var result appfulfillment.ConfirmResult
	require.NoError(t, json.Unmarshal(first.Body, &result))
	assert.Equal(t, string(fulfillment.ParentStateInvoiced), result.ParentSaleOrder.State)
	require.NotNil(t, result.Invoice)
	assert.True(t, dec("247.50").Equal(result.Invoice.Total))

	replay, err := svc.Confirm(ctx, s.actor, s.order.ID, "pg-key-1", s.input())
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, string(first.Body), string(replay.Body))

	sum, err := persistence.NewGormInventoryMovementRepository(db).SumDeltas(ctx, s.actor.TenantID, s.levelA.ID)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(sum))
}

func TestPostgres_ConcurrentConfirmationsCommitOnce(t *testing.T) {
	db := startPostgres(t)
	s := seedPostgres(t, db)
	svc := newPostgresService(db)

	const attempts = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(context.Background(), s.actor, s.order.ID, uuid.NewString(), s.input())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case shared.KindOf(err) == shared.KindStateConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	level, err := persistence.NewGormInventoryLevelRepository(db).FindByIDForTenant(context.Background(), s.actor.TenantID, s.levelA.ID)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(level.Quantity))
}
