package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/interfaces/http/dto"
)

// IdempotencyHeader carries the client's key for a retried request
const IdempotencyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the stored key
const maxIdempotencyKeyLength = 128

// Idempotency rejects a request whose Idempotency-Key is already held with 409.
// The key is released when the request fails so the client can retry it.
// Requests without the header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		clientKey := c.GetHeader(IdempotencyHeader)
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, IdempotencyHeader+" is too long", GetRequestID(c)))
			return
		}

		key := shared.IdempotencyKey(clientKey)
		claimed, err := store.Claim(c.Request.Context(), key, ttl)
		if err != nil {
			// Store errors fail open.
			logger.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest, "This request was already submitted", GetRequestID(c)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(c.Request.Context(), key); err != nil {
				logger.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
