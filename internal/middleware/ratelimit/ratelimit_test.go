package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected within budget", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request over budget allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("separate client throttled by another client's budget")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}
