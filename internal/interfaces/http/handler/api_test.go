package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/cache"
	"github.com/roomtab/backend/internal/infrastructure/persistence"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
	"github.com/roomtab/backend/internal/infrastructure/posclient"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
	"github.com/roomtab/backend/internal/interfaces/http/middleware"
	"github.com/roomtab/backend/internal/interfaces/http/router"
)

// setupAPI wires the real services against sqlite and the in-memory POS
func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB, *posclient.MemoryClient) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	pos := posclient.NewMemoryClient()
	locker := cache.NewMemoryRoomLocker()
	metrics := telemetry.NewNoopTabMetrics()
	sessionRepo := persistence.NewGormSessionRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)

	sessions := tabapp.NewSessionManager(sessionRepo, orderRepo, tab.DefaultTaxRate, nil)
	mirror := tabapp.NewMirrorSync(pos, sessionRepo, tabapp.NopNotifier{}, metrics,
		tabapp.MirrorSyncConfig{Currency: "JPY", CategoryName: "Room Tabs"}, nil)
	intake := tabapp.NewOrderIntake(tabapp.OrderIntakeDeps{
		Sessions: sessions,
		Mirror:   mirror,
		Orders:   orderRepo,
		Products: persistence.NewGormProductRepository(db),
		Locker:   locker,
		Notifier: tabapp.NopNotifier{},
		Metrics:  metrics,
		LockWait: 5 * time.Second,
		TaxRate:  tab.DefaultTaxRate,
	})
	closer := tabapp.NewCloseReconciler(tabapp.CloseReconcilerDeps{
		Sessions:     sessions,
		SessionStore: sessionRepo,
		Mirror:       mirror,
		POS:          pos,
		Locker:       locker,
		Notifier:     tabapp.NopNotifier{},
		Metrics:      metrics,
		LockWait:     5 * time.Second,
	})
	checkout := tabapp.NewCheckout(tabapp.CheckoutDeps{
		Sessions: sessions, POS: pos, Locker: locker, LockWait: 5 * time.Second,
		LocationID: "LOC1", Currency: "JPY",
	})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine).
		Register(NewOrderHandler(intake).Routes()).
		Register(NewSessionHandler(sessions, closer, checkout).Routes()...)
	r.Setup()

	require.NoError(t, db.Create(&models.ProductModel{
		ID: "p-beer", Name: "Beer", Price: decimal.NewFromInt(1000), Active: true,
	}).Error)
	return engine, db, pos
}

func TestAPI_OrderThenForceClose(t *testing.T) {
	engine, db, pos := setupAPI(t)

	w := postJSON(engine, "/api/v1/orders",
		`{"room_number":"fg#11","items":[{"product_id":"p-beer","quantity":20}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data tabapp.OrderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	sessionID := created.Data.SessionID
	assert.True(t, created.Data.SessionCreated)

	w = postJSON(engine, "/api/v1/orders",
		`{"room_number":"fg#11","items":[{"name":"Edamame","price":500,"quantity":1}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, sessionID, created.Data.SessionID)
	assert.False(t, created.Data.SessionCreated)

	var session models.OrderSessionModel
	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	variation, ok := pos.Object(session.MirrorVariationID)
	require.True(t, ok)
	price, ok := variation.VariationPrice()
	require.True(t, ok)
	assert.Equal(t, int64(20500), price.Amount)

	w = postJSON(engine, "/api/v1/sessions/close", `{"room_number":"fg#11","force":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp, _ := decodeClose(t, w)
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Equal(t, "Force_closed", resp.Status)

	w = postJSON(engine, "/api/v1/sessions/close", `{"session_id":"`+sessionID+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_UnknownProductOnlyPersistsNothing(t *testing.T) {
	engine, db, _ := setupAPI(t)

	w := postJSON(engine, "/api/v1/orders",
		`{"room_number":"fg#12","items":[{"product_id":"nope","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var n int64
	require.NoError(t, db.Model(&models.OrderSessionModel{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.OrderModel{}).Count(&n).Error)
	assert.Zero(t, n)
}
