package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so a retried
// request is not applied twice
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key so the request may be retried
	Release(ctx context.Context, key string) error

	// Close releases the store's resources
	Close() error
}

// IdempotencyKey namespaces a client key for order intake
func IdempotencyKey(clientKey string) string {
	return "roomtab:idem:order:" + clientKey
}
