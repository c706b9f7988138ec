package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apptab "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
	"github.com/roomtab/backend/internal/infrastructure/webhook"
)

var _ apptab.Notifier = (*Service)(nil)

// fakeSender records every send and fails destinations listed in fail
type fakeSender struct {
	mu    sync.Mutex
	sent  map[string][]tab.Message
	fail  map[string]bool
	delay time.Duration
}

func (s *fakeSender) Send(ctx context.Context, dest tab.Destination, msg tab.Message) tab.SendResult {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]tab.Message)
	}
	s.sent[dest.Name] = append(s.sent[dest.Name], msg)
	if s.fail[dest.Name] {
		return tab.SendResult{StatusCode: http.StatusInternalServerError, Err: errors.New("status 500")}
	}
	return tab.SendResult{StatusCode: http.StatusNoContent}
}

type testEnv struct {
	db       *gorm.DB
	events   *persistence.GormWebhookEventRepository
	sessions *persistence.GormSessionRepository
	orders   *persistence.GormOrderRepository
}

func setupEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		db:       db,
		events:   persistence.NewGormWebhookEventRepository(db),
		sessions: persistence.NewGormSessionRepository(db),
		orders:   persistence.NewGormOrderRepository(db),
	}
}

func (e *testEnv) placeOrder(t *testing.T, session *tab.OrderSession, lines ...tab.NormalizedLine) *tab.Order {
	t.Helper()
	order, err := tab.NewOrder(session.ID, session.RoomID, "Sato", nil, "", lines, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.orders.CreateWithLines(context.Background(), order))
	return order
}

func (e *testEnv) openSession(t *testing.T, roomID string) *tab.OrderSession {
	t.Helper()
	session, err := tab.NewOrderSession(roomID, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.sessions.Create(context.Background(), session))
	return session
}

func line(name string, price int64, qty int) tab.NormalizedLine {
	return tab.NormalizedLine{Name: name, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

var testDestinations = []tab.Destination{
	{Name: "kitchen", URL: "https://kitchen.example/hook", Kind: tab.DestinationJSON},
	{Name: "chat", URL: "https://discord.com/api/webhooks/1/x", Kind: tab.DestinationContent},
	{Name: "errors", URL: "https://alerts.example/hook", Kind: tab.DestinationJSON,
		Events: []tab.EventType{tab.EventPriceMismatch}},
}

func newTestService(env *testEnv, sender tab.WebhookSender, dests []tab.Destination) *Service {
	return NewService(sender, env.events, env.orders, telemetry.NewNoopTabMetrics(), Config{
		Destinations: dests,
		MaxParallel:  2,
		TaxRate:      tab.DefaultTaxRate,
		Location:     time.UTC,
	}, zap.NewNop())
}

func TestService_NotifyOrderCreated(t *testing.T) {
	env := setupEnv(t)
	sender := &fakeSender{fail: map[string]bool{"chat": true}}
	svc := newTestService(env, sender, testDestinations)

	session := env.openSession(t, "fg#11")
	env.placeOrder(t, session, line("Beer", 1000, 20))
	order := env.placeOrder(t, session, line("Edamame", 500, 1))

	svc.NotifyOrderCreated(context.Background(), session, order)
	svc.Wait()

	assert.Len(t, sender.sent["kitchen"], 1)
	assert.Len(t, sender.sent["chat"], 1)
	assert.Empty(t, sender.sent["errors"], "error channel only receives price mismatches")

	msg := sender.sent["kitchen"][0]
	assert.Equal(t, tab.EventOrderCreated, msg.EventType)
	envelope, ok := msg.Envelope.(OrderCreatedEnvelope)
	require.True(t, ok)
	assert.Equal(t, order.ID, envelope.Order.ID)
	require.Len(t, envelope.Items, 1)
	assert.Equal(t, "Edamame", envelope.Items[0].Name)
	assert.True(t, decimal.NewFromInt(20500).Equal(envelope.Session.Subtotal))
	assert.True(t, decimal.NewFromInt(22550).Equal(envelope.Session.Total))
	assert.Contains(t, msg.Text, "Earlier orders this session")
	assert.Contains(t, msg.Text, "Beer")
	assert.Contains(t, msg.Text, "20000")

	events, err := env.events.FindBySession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tab.EventOrderCreated, events[0].EventType)
	assert.True(t, events[0].IsProcessed())

	deliveries, err := env.events.FindDeliveries(context.Background(), events[0].ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	outcomes := map[string]tab.DeliveryOutcome{}
	for _, d := range deliveries {
		outcomes[d.Destination] = d.Outcome
	}
	assert.Equal(t, tab.DeliveryDelivered, outcomes["kitchen"])
	assert.Equal(t, tab.DeliveryFailed, outcomes["chat"])
}

func TestService_NotifySessionClosed(t *testing.T) {
	env := setupEnv(t)
	sender := &fakeSender{}
	svc := newTestService(env, sender, testDestinations)

	session := env.openSession(t, "fg#11")
	env.placeOrder(t, session, line("Beer", 1000, 2))
	require.NoError(t, session.Close(tab.SessionStatusForceClosed, time.Now()))

	svc.NotifySessionClosed(context.Background(), session, tab.SessionStatusForceClosed)
	svc.Wait()

	require.Len(t, sender.sent["kitchen"], 1)
	envelope, ok := sender.sent["kitchen"][0].Envelope.(SessionClosedEnvelope)
	require.True(t, ok)
	assert.Equal(t, "Force_closed", envelope.CloseType)
	assert.Equal(t, "fg#11", envelope.RoomNumber)
	assert.Contains(t, envelope.Text, "Close type: Force_closed")
	assert.Contains(t, envelope.Text, "2200")

	events, err := env.events.FindBySession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tab.EventSessionClosed, events[0].EventType)
}

func TestService_NotifyPriceMismatch_ErrorChannelOnly(t *testing.T) {
	env := setupEnv(t)
	sender := &fakeSender{}
	svc := newTestService(env, sender, testDestinations)
	session := env.openSession(t, "fg#11")

	svc.NotifyPriceMismatch(context.Background(), session, decimal.NewFromInt(2000), decimal.NewFromInt(1999))
	svc.Wait()

	assert.Empty(t, sender.sent["kitchen"])
	require.Len(t, sender.sent["errors"], 1)
	envelope, ok := sender.sent["errors"][0].Envelope.(PriceMismatchEnvelope)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1999).Equal(envelope.Actual))
	assert.Contains(t, envelope.Text, "POS shows")
}

func TestService_NoDestinationsStillAudits(t *testing.T) {
	env := setupEnv(t)
	svc := newTestService(env, &fakeSender{}, nil)
	session := env.openSession(t, "fg#11")

	svc.NotifySessionClosed(context.Background(), session, tab.SessionStatusPendingPayment)
	svc.Wait()

	events, err := env.events.FindBySession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsProcessed())
}

func TestService_DetachedFromRequestContext(t *testing.T) {
	env := setupEnv(t)
	sender := &fakeSender{delay: 20 * time.Millisecond}
	svc := newTestService(env, sender, testDestinations)
	session := env.openSession(t, "fg#11")

	ctx, cancel := context.WithCancel(context.Background())
	svc.NotifySessionClosed(ctx, session, tab.SessionStatusCompleted)
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	require.NoError(t, svc.Drain(drainCtx))
	assert.Len(t, sender.sent["kitchen"], 1)
}

func TestService_OverHTTP(t *testing.T) {
	env := setupEnv(t)

	var mu sync.Mutex
	bodies := map[string]map[string]any{}
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			mu.Lock()
			bodies[name] = body
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		}
	}
	jsonSrv := httptest.NewServer(handler("json"))
	defer jsonSrv.Close()
	contentSrv := httptest.NewServer(handler("content"))
	defer contentSrv.Close()

	sender := webhook.NewRouter(webhook.NewHTTPSender(time.Second, time.Second, zap.NewNop()), nil)
	svc := newTestService(env, sender, []tab.Destination{
		{Name: "json", URL: jsonSrv.URL, Kind: tab.DestinationJSON},
		{Name: "content", URL: contentSrv.URL, Kind: tab.DestinationContent},
	})

	session := env.openSession(t, "fg#11")
	order := env.placeOrder(t, session, line("Beer", 1000, 1))
	svc.NotifyOrderCreated(context.Background(), session, order)
	svc.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "order_created", bodies["json"]["event_type"])
	assert.Contains(t, bodies["json"], "items")
	require.Contains(t, bodies["content"], "content")
	assert.Len(t, bodies["content"], 1)
	assert.True(t, strings.HasPrefix(bodies["content"]["content"].(string), "[NEW ORDER] Room fg#11"))
}

func TestTranscript_AlignsColumns(t *testing.T) {
	tr := transcript{taxRate: tab.DefaultTaxRate, loc: time.UTC}
	session := &tab.OrderSession{ID: "251015120000000123456", RoomID: "fg#11"}
	order := &tab.Order{
		RoomID:    "fg#11",
		GuestName: "Sato",
		CreatedAt: time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC),
		Lines: []tab.OrderLine{
			{ProductName: "Beer", Quantity: 20, Subtotal: decimal.NewFromInt(20000)},
			{ProductName: "Edamame", Quantity: 1, Subtotal: decimal.NewFromInt(500), Note: "no salt"},
		},
		TotalAmount: decimal.NewFromInt(20500),
	}

	text := tr.orderCreated(session, order, nil, decimal.NewFromInt(20500))
	assert.Contains(t, text, "Guest: Sato")
	assert.Contains(t, text, "Time: 2025-10-15 12:00")
	assert.Contains(t, text, "(no salt)")
	assert.NotContains(t, text, "Earlier orders")

	var beer, edamame string
	for _, l := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(l, "Beer"):
			beer = l
		case strings.HasPrefix(l, "Edamame"):
			edamame = l
		}
	}
	require.NotEmpty(t, beer)
	require.NotEmpty(t, edamame)
	assert.Equal(t, len(beer), len(edamame), "item rows share column widths")
	assert.True(t, strings.HasSuffix(strings.TrimRight(beer, " "), "20000"))
}
