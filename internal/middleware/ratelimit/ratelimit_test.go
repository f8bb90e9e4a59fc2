package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindowResetsUnderSteadyTraffic(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour})
	defer rl.Stop()

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d within the limit was blocked", i+1)
		}
	}

	// Keep hammering inside the window, one request per second.
	for i := 0; i < 10; i++ {
		current = current.Add(time.Second)
		if rl.Allow("1.2.3.4") {
			t.Fatal("over-limit request allowed inside the window")
		}
	}

	// The window opened at 12:00:00; at 12:01:00 the allowance returns even
	// though the client never went quiet.
	current = time.Date(2026, 8, 1, 12, 1, 0, 0, time.UTC)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("request blocked after the window elapsed")
	}
}

func TestAllowTracksClientsIndependently(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request from first client blocked")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second request from first client allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("first request from second client blocked")
	}
}

func TestCleanupRemovesStaleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, CleanupInterval: time.Hour})
	defer rl.Stop()

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	rl.Allow("10.0.0.1")
	current = current.Add(5 * time.Minute)
	rl.Allow("10.0.0.2")

	current = current.Add(6 * time.Minute)
	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients = %d, want 1", got)
	}
}

func TestMiddlewareThrottlesOnlyMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	handler := rl.Middleware(func(*http.Request) string { return "10.0.0.9" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/profiles", nil))
		return rec.Code
	}

	if got := do(http.MethodPost); got != http.StatusOK {
		t.Fatalf("first POST status = %d, want %d", got, http.StatusOK)
	}
	if got := do(http.MethodPost); got != http.StatusTooManyRequests {
		t.Fatalf("second POST status = %d, want %d", got, http.StatusTooManyRequests)
	}
	for i := 0; i < 3; i++ {
		if got := do(http.MethodGet); got != http.StatusOK {
			t.Fatalf("GET status = %d, want %d", got, http.StatusOK)
		}
	}
}
