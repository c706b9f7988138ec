package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/roomtab/backend/internal/interfaces/http/dto"
)

// orderSink answers 413 itself when reading the body trips the limit
func orderSink(c *gin.Context) {
	if _, err := io.ReadAll(c.Request.Body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusBadRequest)
		return
	}
	c.Status(http.StatusCreated)
}

func TestBodyLimit(t *testing.T) {
	order := `{"room_number":"fg#11","items":[{"product_id":"p1","quantity":2}]}`
	padded := `{"room_number":"fg#11","note":"` + strings.Repeat("x", 256) + `","items":[]}`

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
		wantCode      string
	}{
		{name: "order within limit", body: order, contentLength: int64(len(order)), wantStatus: http.StatusCreated},
		{name: "declared length over limit", body: padded, contentLength: int64(len(padded)), wantStatus: http.StatusRequestEntityTooLarge, wantCode: dto.ErrCodeRequestTooLarge},
		{name: "chunked body over limit", body: padded, contentLength: -1, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "chunked body within limit", body: order, contentLength: -1, wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestID(), BodyLimit(128))
			router.POST("/orders", orderSink)

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), tt.wantCode)
				assert.Contains(t, w.Body.String(), w.Header().Get(RequestIDHeader))
			}
		})
	}
}

func TestBodyLimit_SessionViewWithoutBody(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(8))
	router.GET("/rooms/:room/session", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/fg11/session", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
