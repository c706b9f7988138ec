package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/interfaces/http/dto"
	"github.com/roomtab/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name:       "from context",
			setup:      func(c *gin.Context) { c.Set(middleware.RequestIDKey, "ctx-request-id") },
			expectedID: "ctx-request-id",
		},
		{
			name:       "from header when context empty",
			setup:      func(c *gin.Context) { c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id") },
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-id")
				c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewDomainError("NOT_FOUND", "Session not found"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"no valid lines", shared.ErrNoValidLines, http.StatusBadRequest, dto.ErrCodeNoValidLines},
		{"missing reference", shared.ErrMissingSessionReference, http.StatusBadRequest, dto.ErrCodeMissingSessionReference},
		{"invalid room", shared.NewDomainError("INVALID_ROOM", "room number is required"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"already closed", shared.NewDomainError("INVALID_STATE", "Session is already closed"), http.StatusConflict, dto.ErrCodeInvalidState},
		{"mirror failure", shared.WrapDomainError(shared.ErrMirrorSyncFailed, errors.New("502 from POS")), http.StatusBadGateway, dto.ErrCodeMirrorSyncFailed},
		{"storage", shared.WrapDomainError(shared.ErrStorage, errors.New("disk full")), http.StatusInternalServerError, dto.ErrCodeStorage},
		{"lock busy", shared.ErrLockUnavailable, http.StatusServiceUnavailable, dto.ErrCodeLockUnavailable},
		{"wrapped domain error", fmt.Errorf("intake: %w", shared.ErrNoValidLines), http.StatusBadRequest, dto.ErrCodeNoValidLines},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-1")

			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestHandleError_PlainErrorHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	(&BaseHandler{}).HandleError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

type strictBody struct {
	Room  string `json:"room_number" binding:"required,max=8"`
	Count int    `json:"count"`
}

func TestBindStrictJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ok       bool
		wantCode string
	}{
		{name: "valid", body: `{"room_number":"fg11","count":2}`, ok: true},
		{name: "unknown field", body: `{"room_number":"fg11","colour":"red"}`, wantCode: dto.ErrCodeInvalidJSON},
		{name: "malformed", body: `{"room_number":`, wantCode: dto.ErrCodeInvalidJSON},
		{name: "wrong type", body: `{"room_number":"fg11","count":"two"}`, wantCode: dto.ErrCodeInvalidJSON},
		{name: "trailing data", body: `{"room_number":"fg11"} {"room_number":"fg12"}`, wantCode: dto.ErrCodeInvalidJSON},
		{name: "empty", body: ``, wantCode: dto.ErrCodeInvalidJSON},
		{name: "fails validation", body: `{"room_number":"much-too-long"}`, wantCode: dto.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst strictBody
			ok := (&BaseHandler{}).BindStrictJSON(c, &dst)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "fg11", dst.Room)
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
