package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSlidingWindowBudget(t *testing.T) {
	l := New()
	t0 := time.Now()
	l.now = func() time.Time { return t0 }

	// window=1m, budget=10: calls 1-10 pass, call 11 in the same minute fails.
	for i := 1; i <= 10; i++ {
		if !l.TryConsume("login:a@x.com", time.Minute, 10) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.TryConsume("login:a@x.com", time.Minute, 10) {
		t.Fatal("call 11 within the window should be denied")
	}

	// 61 seconds after call 1 the oldest attempt has aged out.
	l.now = func() time.Time { return t0.Add(61 * time.Second) }
	if !l.TryConsume("login:a@x.com", time.Minute, 10) {
		t.Fatal("call after the window elapsed should be allowed")
	}
}

func TestDeniedAttemptNotRecorded(t *testing.T) {
	l := New()
	t0 := time.Now()
	l.now = func() time.Time { return t0 }

	for i := 0; i < 3; i++ {
		l.TryConsume("k", time.Minute, 3)
	}
	// Hammering while denied must not push the recovery point out.
	for i := 0; i < 100; i++ {
		if l.TryConsume("k", time.Minute, 3) {
			t.Fatal("should be denied")
		}
	}
	l.now = func() time.Time { return t0.Add(time.Minute + time.Millisecond) }
	if !l.TryConsume("k", time.Minute, 3) {
		t.Fatal("window should have cleared despite denied attempts")
	}
}

func TestIndependentKeys(t *testing.T) {
	l := New()
	if !l.TryConsume("a", time.Minute, 1) {
		t.Fatal("first attempt on a")
	}
	if l.TryConsume("a", time.Minute, 1) {
		t.Fatal("a exhausted")
	}
	if !l.TryConsume("b", time.Minute, 1) {
		t.Fatal("b must not be affected by a")
	}
}

func TestConcurrentKeys(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			allowed := 0
			for j := 0; j < 10; j++ {
				if l.TryConsume(key, time.Minute, 5) {
					allowed++
				}
			}
			if allowed != 5 {
				t.Errorf("key %s: allowed %d, want 5", key, allowed)
			}
		}(i)
	}
	wg.Wait()
}
