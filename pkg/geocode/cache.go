package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache stores geocode results, including misses, keyed by CacheKey.
type Cache interface {
	// GetGeocode returns the cached result for key. ok is false on a miss.
	GetGeocode(ctx context.Context, key string) (result *Result, ok bool, err error)
	PutGeocode(ctx context.Context, key string, result *Result) error
}

// CacheKey returns the SHA-256 hex digest of the case- and space-normalized query.
func CacheKey(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
