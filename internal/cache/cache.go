package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching serialized values
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key for one backend query. Queries are hashed so
// arbitrary claim text never leaks into key space.
func Key(backend, query string) string {
	hash := sha256.Sum256([]byte(query))
	return "veracity:v1:" + backend + ":" + hex.EncodeToString(hash[:])
}
