// Package http exposes the booking ledger as a JSON API plus printable
// statement rendering.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"reservas/internal/cache"
	"reservas/internal/middleware/ratelimit"
	"reservas/internal/middleware/trace"
	"reservas/internal/services"
	"reservas/internal/statement"
)

type Server struct {
	http.Server

	svc      *services.BookingService
	renderer *statement.Renderer

	// Rendered statements are cached briefly; any mutation under a profile
	// drops that profile's entries.
	statementCache *cache.LRUCache[string]
	cacheManager   *cache.Manager
	rateLimiter    *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around the booking service.
func NewServer(addr string, svc *services.BookingService, renderer *statement.Renderer, statementTTL time.Duration) *Server {
	if statementTTL <= 0 {
		statementTTL = 30 * time.Second
	}

	s := &Server{
		svc:            svc,
		renderer:       renderer,
		statementCache: cache.NewLRUCache[string](200, statementTTL),
		cacheManager:   cache.NewManager(),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	s.cacheManager.Register(s.statementCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("PUT /api/profiles/{name}", s.handleRenameProfile)
	mux.HandleFunc("DELETE /api/profiles/{name}", s.handleDeleteProfile)

	mux.HandleFunc("GET /api/profiles/{name}/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/profiles/{name}/bookings", s.handleCreateBooking)
	mux.HandleFunc("DELETE /api/profiles/{name}/bookings", s.handleDeleteBookingsBulk)
	mux.HandleFunc("GET /api/profiles/{name}/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("DELETE /api/profiles/{name}/bookings/{id}", s.handleDeleteBooking)

	mux.HandleFunc("POST /api/profiles/{name}/bookings/{id}/items", s.handleAddItem)
	mux.HandleFunc("PUT /api/profiles/{name}/bookings/{id}/items/{itemID}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/profiles/{name}/bookings/{id}/items/{itemID}", s.handleDeleteItem)

	mux.HandleFunc("POST /api/profiles/{name}/bookings/{id}/payments", s.handleAddPayment)

	mux.HandleFunc("GET /api/profiles/{name}/bookings/{id}/statement", s.handleStatement)
	mux.HandleFunc("GET /api/profiles/{name}/report", s.handleReport)

	var handler http.Handler = mux
	handler = securityHeaders(handler)
	handler = s.rateLimiter.Middleware(clientIP)(handler)
	handler = trace.Middleware(clientIP)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
