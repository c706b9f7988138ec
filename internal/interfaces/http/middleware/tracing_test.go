package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// setupTestTracer returns a tracer provider recording into the returned recorder.
func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})
	return tp, sr
}

func tracedRouter(tp *sdktrace.TracerProvider) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service", TracerProvider: tp}))
	router.Use(SpanAttributes())
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpanAttributes_RoomAndRequestID(t *testing.T) {
	tp, sr := setupTestTracer(t)
	router := tracedRouter(tp)
	router.GET("/rooms/:room/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/fg11/session", nil)
	req.Header.Set(RequestIDHeader, "test-request-id-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	span := findSpan(t, sr, "GET /rooms/:room/session")

	v, ok := attrValue(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "test-request-id-123", v.AsString())
	v, ok = attrValue(span, telemetry.SpanAttrRoomID)
	require.True(t, ok)
	assert.Equal(t, "fg11", v.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanAttributes_MarksErrors(t *testing.T) {
	tests := []struct {
		status      int
		description string
	}{
		{http.StatusNotFound, "Not Found"},
		{http.StatusConflict, "Conflict"},
		{http.StatusBadRequest, "Client Error"},
		{http.StatusBadGateway, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			tp, sr := setupTestTracer(t)
			router := tracedRouter(tp)
			router.POST("/sessions/:id/checkout", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{"success": false})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/sessions/260101120000123456789/checkout", nil)
			router.ServeHTTP(w, req)

			span := findSpan(t, sr, "POST /sessions/:id/checkout")
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, tt.description, span.Status().Description)
			v, ok := attrValue(span, telemetry.SpanAttrSessionID)
			require.True(t, ok)
			assert.Equal(t, "260101120000123456789", v.AsString())
		})
	}
}
