package httputil

import (
	"fmt"
	"net/http"
	"time"
)

// Response headers set by the proxy on every successful payload.
const (
	// HeaderCacheStatus reports whether the payload came from the cache.
	HeaderCacheStatus = "X-Cache"

	// HeaderRequestID echoes the request identifier assigned by the server.
	HeaderRequestID = "X-Request-ID"
)

// CacheControl returns a public Cache-Control directive allowing clients to
// keep the payload for ttl. Sub-second TTLs round down to max-age=0.
func CacheControl(ttl time.Duration) string {
	secs := int64(ttl / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("public, max-age=%d", secs)
}

// SetCacheHeaders writes the cache status and freshness directive to h.
func SetCacheHeaders(h http.Header, status string, ttl time.Duration) {
	if status != "" {
		h.Set(HeaderCacheStatus, status)
	}
	h.Set("Cache-Control", CacheControl(ttl))
}
