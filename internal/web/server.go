// Package web provides the HTTP server and handlers for calendar objects.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/config"
	"github.com/JonMunkholm/calsrv/internal/importresult"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	mw "github.com/JonMunkholm/calsrv/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Importer runs and lists imports.
type Importer interface {
	Import(ctx context.Context, cal *calendar.Calendar, file calendar.ImportFile) (*calendar.ImportResult, error)
	ImportHistory(ctx context.Context, cal *calendar.Calendar, limit int) ([]calendar.ImportRecord, error)
}

// Backend is the business layer behind the server.
// Satisfied by *calendar.Service.
type Backend interface {
	calendar.CalendarFinder
	calendar.ObjectFinder
	Importer
}

// Server is the HTTP server for the calendar object API.
type Server struct {
	backend   Backend
	formatter *importresult.Formatter
	cfg       *config.Config
	endpoints map[calendar.ObjectType]*ObjectEndpoint
	limiters  []*rateLimiter
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a new Server instance.
func NewServer(backend Backend, formatter *importresult.Formatter, ser serializer.Serializer, cfg *config.Config) *Server {
	s := &Server{
		backend:   backend,
		formatter: formatter,
		cfg:       cfg,
		endpoints: make(map[calendar.ObjectType]*ObjectEndpoint, len(calendar.ObjectTypes)),
		router:    chi.NewRouter(),
	}

	limits := listLimits{Default: cfg.Calendar.DefaultLimit, Max: cfg.Calendar.MaxLimit}
	for _, t := range calendar.ObjectTypes {
		s.endpoints[t] = NewObjectEndpoint(t, backend, backend, ser, limits)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.Authenticate(&s.cfg.Security))

		r.Route("/calendars/{calendarID}", func(r chi.Router) {
			// Objects selected by ?type=
			r.Get("/objects", s.handleObjects)
			r.Get("/objects/{objectID}", s.handleObject)

			// Typed aliases
			for t, e := range s.endpoints {
				r.Mount("/"+t.Plural(), e.Routes())
			}

			// Import
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).middleware)
				}
				r.Post("/import", s.handleImport)
			})
			r.Get("/imports", s.handleImportHistory)
		})

		r.Post("/import-messages", s.handleImportMessages)
	})
}

// endpointFor picks the endpoint named by the type query parameter.
func (s *Server) endpointFor(r *http.Request) (*ObjectEndpoint, error) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return nil, calendar.InvalidRequest("type is required (event, todo or journal)")
	}
	t, err := calendar.ParseObjectType(raw)
	if err != nil {
		return nil, calendar.InvalidRequest("unknown object type %q", raw)
	}
	return s.endpoints[t], nil
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	e, err := s.endpointFor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	e.HandleList(w, r)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	e, err := s.endpointFor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	e.HandleGet(w, r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// The API serves data and HTMX fragments only
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple fixed window rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter owned by s; Shutdown stops it.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr is already the client address after TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONStatus(w, http.StatusTooManyRequests, ErrorResponse{
				Message: "rate limit exceeded",
				Code:    "RATE001",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
