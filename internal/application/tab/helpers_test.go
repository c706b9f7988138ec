package tab

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/cache"
	"github.com/roomtab/backend/internal/infrastructure/persistence"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
	"github.com/roomtab/backend/internal/infrastructure/posclient"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// recordingNotifier captures notifications synchronously
type recordingNotifier struct {
	mu         sync.Mutex
	orders     []*tab.Order
	closed     []tab.SessionStatus
	mismatches []mismatch
}

type mismatch struct {
	sessionID        string
	expected, actual decimal.Decimal
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, _ *tab.OrderSession, order *tab.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func (n *recordingNotifier) NotifySessionClosed(_ context.Context, _ *tab.OrderSession, kind tab.SessionStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, kind)
}

func (n *recordingNotifier) NotifyPriceMismatch(_ context.Context, session *tab.OrderSession, expected, actual decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mismatches = append(n.mismatches, mismatch{sessionID: session.ID, expected: expected, actual: actual})
}

// recordingGuestNotifier captures guest pushes
type recordingGuestNotifier struct {
	mu     sync.Mutex
	pushed map[string][]string
	err    error
}

func (g *recordingGuestNotifier) Push(_ context.Context, guestIdentity, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pushed == nil {
		g.pushed = make(map[string][]string)
	}
	g.pushed[guestIdentity] = append(g.pushed[guestIdentity], text)
	return g.err
}

// fixture wires every service against an in-memory database and POS
type fixture struct {
	db        *gorm.DB
	pos       *posclient.MemoryClient
	notifier  *recordingNotifier
	guests    *recordingGuestNotifier
	sessions  *SessionManager
	mirror    *MirrorSync
	intake    *OrderIntake
	closer    *CloseReconciler
	checkout  *Checkout
	occupants *OccupantService

	sessionRepo *persistence.GormSessionRepository
	orderRepo   *persistence.GormOrderRepository
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		db:       setupTestDB(t),
		pos:      posclient.NewMemoryClient(),
		notifier: &recordingNotifier{},
		guests:   &recordingGuestNotifier{},
	}
	f.sessionRepo = persistence.NewGormSessionRepository(f.db)
	f.orderRepo = persistence.NewGormOrderRepository(f.db)
	f.build(f.orderRepo)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// build (re)creates the services; orders may be replaced by a test double
func (f *fixture) build(orders tab.OrderRepository) {
	locker := cache.NewMemoryRoomLocker()
	metrics := telemetry.NewNoopTabMetrics()

	f.sessions = NewSessionManager(f.sessionRepo, f.orderRepo, tab.DefaultTaxRate, nil)
	f.mirror = NewMirrorSync(f.pos, f.sessionRepo, f.notifier, metrics,
		MirrorSyncConfig{Currency: "JPY", CategoryName: "Room Tabs"}, nil)
	f.intake = NewOrderIntake(OrderIntakeDeps{
		Sessions:      f.sessions,
		Mirror:        f.mirror,
		Orders:        orders,
		Products:      persistence.NewGormProductRepository(f.db),
		Locker:        locker,
		Notifier:      f.notifier,
		GuestNotifier: f.guests,
		Metrics:       metrics,
		LockWait:      5 * time.Second,
		TaxRate:       tab.DefaultTaxRate,
	})
	f.closer = NewCloseReconciler(CloseReconcilerDeps{
		Sessions:     f.sessions,
		SessionStore: f.sessionRepo,
		Mirror:       f.mirror,
		POS:          f.pos,
		Locker:       locker,
		Notifier:     f.notifier,
		Metrics:      metrics,
		LockWait:     5 * time.Second,
	})
	f.checkout = NewCheckout(CheckoutDeps{
		Sessions:   f.sessions,
		POS:        f.pos,
		Locker:     locker,
		LockWait:   5 * time.Second,
		LocationID: "LOC1",
		Currency:   "JPY",
	})
	f.occupants = NewOccupantService(persistence.NewGormOccupantRepository(f.db), f.sessionRepo, nil)
}

func (f *fixture) seedProduct(t *testing.T, id, name string, price int64, active bool) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ProductModel{
		ID:     id,
		Name:   name,
		Price:  decimal.NewFromInt(price),
		Active: active,
	}).Error)
}

func (f *fixture) variationPrice(t *testing.T, variationID string) int64 {
	t.Helper()
	obj, ok := f.pos.Object(variationID)
	require.True(t, ok, "variation %s not in POS", variationID)
	price, ok := obj.VariationPrice()
	require.True(t, ok)
	return price.Amount
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func productLine(id string, qty int) tab.OrderLineInput {
	return tab.OrderLineInput{ProductID: &id, Quantity: &qty}
}

func customLine(name string, price int64, qty int) tab.OrderLineInput {
	p := decimal.NewFromInt(price)
	return tab.OrderLineInput{Name: &name, Price: &p, Quantity: &qty}
}
