package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gundaminthecode/showcase/pkg/httputil"
)

func ExampleCacheControl() {
	fmt.Println(httputil.CacheControl(10 * time.Minute))
	// Output:
	// public, max-age=600
}

func ExampleSetCacheHeaders() {
	h := http.Header{}
	httputil.SetCacheHeaders(h, "REVALIDATED", time.Minute)
	fmt.Println(h.Get("X-Cache"))
	fmt.Println(h.Get("Cache-Control"))
	// Output:
	// REVALIDATED
	// public, max-age=60
}

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 2 {
			return httputil.Retryable(errors.New("connection refused"))
		}
		return nil
	})
	fmt.Println("attempts:", attempts, "err:", err)
	// Output:
	// attempts: 2 err: <nil>
}
