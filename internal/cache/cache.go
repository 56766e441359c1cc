// Package cache stores rendered scan reports so repeated scans of the same
// text under the same lexicon and weights skip detection.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/slant/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ReportKey derives the cache key of a report. The lexicon version and the
// detection knobs are part of the key, so editing either invalidates old entries.
func ReportKey(lexiconVersion string, cfg model.DetectionConfig, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%+v\x00", lexiconVersion, cfg)
	h.Write([]byte(text))
	return "slant:v1:" + hex.EncodeToString(h.Sum(nil))
}

// GetJSON reads key from c and decodes it into v
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it under key
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}
