// Package ratelimit throttles clients by IP with a fixed per-minute
// request budget. The backend API mounts it ahead of its routes.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo

	requestsPerMinute int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	shutdownOnce      sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 300,
		CleanupInterval:   5 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		clients:           make(map[string]*clientInfo),
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
		stopCleanup:       make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from the given IP fits the budget. The
// counter resets once a full minute passes without crossing it.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[clientIP]
	if !ok {
		l.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= l.requestsPerMinute
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupStale()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanupStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range l.clients {
		if client.lastRequest.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop shuts down the cleanup goroutine.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// Middleware rejects over-budget requests with 429 and a Retry-After hint.
// Budgets are keyed by IP without the ephemeral port.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.Allow(ip) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
