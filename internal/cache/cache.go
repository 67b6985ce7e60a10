// Package cache holds read-through caches in front of the durable store. The
// store stays authoritative: every cache miss must be answered from it, and
// entries expire on their own TTL without coordination with the store.
package cache

import (
	"context"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// TokenCache caches QR token records by token string.
type TokenCache interface {
	Get(ctx context.Context, token string) (models.QRToken, bool)
	Put(ctx context.Context, record models.QRToken)
}
