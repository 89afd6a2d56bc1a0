// Package httputil provides HTTP helpers shared by the upstream client,
// the cache backends and the proxy's HTTP surface.
//
// # Retry
//
// [Retry] wraps operations with automatic retry for transient failures.
// Only errors wrapped in [RetryableError] are retried; everything else is
// returned immediately. Upstream API calls are not retried: a rate-limited
// or failing upstream is surfaced to the caller at once. Retries cover
// connecting to the Redis and MongoDB cache backends at startup:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return httputil.Retryable(client.Ping(ctx).Err())
//	})
//
// # Response Headers
//
// [SetCacheHeaders] annotates responses with the cache status
// (HIT, MISS, REVALIDATED) and a Cache-Control freshness directive
// usable by browser and CDN caches:
//
//	httputil.SetCacheHeaders(w.Header(), "HIT", 10*time.Minute)
//	// X-Cache: HIT
//	// Cache-Control: public, max-age=600
package httputil
