package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomtab/backend/internal/infrastructure/cache"
	"github.com/roomtab/backend/internal/interfaces/http/dto"
)

func idempotentRouter(t *testing.T, status *int) *gin.Engine {
	t.Helper()
	store := cache.NewMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	router := gin.New()
	router.Use(RequestID())
	router.POST("/orders", Idempotency(store, time.Minute, nil), func(c *gin.Context) {
		c.Status(*status)
	})
	return router
}

func postWithKey(router *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RejectsReplay(t *testing.T) {
	status := http.StatusCreated
	router := idempotentRouter(t, &status)

	assert.Equal(t, http.StatusCreated, postWithKey(router, "tap-1").Code)

	w := postWithKey(router, "tap-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeDuplicateRequest)

	assert.Equal(t, http.StatusCreated, postWithKey(router, "tap-2").Code)
}

func TestIdempotency_WithoutHeaderPassesThrough(t *testing.T) {
	status := http.StatusCreated
	router := idempotentRouter(t, &status)

	assert.Equal(t, http.StatusCreated, postWithKey(router, "").Code)
	assert.Equal(t, http.StatusCreated, postWithKey(router, "").Code)
}

func TestIdempotency_ReleasesKeyOnFailure(t *testing.T) {
	status := http.StatusBadGateway
	router := idempotentRouter(t, &status)

	assert.Equal(t, http.StatusBadGateway, postWithKey(router, "tap-1").Code)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, postWithKey(router, "tap-1").Code, "a failed request can be retried")
}

func TestIdempotency_RejectsLongKey(t *testing.T) {
	status := http.StatusCreated
	router := idempotentRouter(t, &status)

	w := postWithKey(router, strings.Repeat("k", maxIdempotencyKeyLength+1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type brokenStore struct{}

func (brokenStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenStore) Release(context.Context, string) error { return nil }
func (brokenStore) Close() error                          { return nil }

func TestIdempotency_FailsOpen(t *testing.T) {
	router := gin.New()
	router.POST("/orders", Idempotency(brokenStore{}, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := postWithKey(router, "tap-1")
	require.Equal(t, http.StatusCreated, w.Code)
}
