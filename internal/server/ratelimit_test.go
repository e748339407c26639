package server

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMultiLimiterBurst(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(2), 2, time.Minute)
	if !ml.allow("1.2.3.4") {
		t.Fatal("first call should pass")
	}
	if !ml.allow("1.2.3.4") {
		t.Fatal("second call should pass")
	}
	if ml.allow("1.2.3.4") {
		t.Fatal("third immediate call should be throttled")
	}
	// A different origin has its own bucket.
	if !ml.allow("5.6.7.8") {
		t.Fatal("other key should not be throttled")
	}
}
