// Package http exposes the Kashela JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"kashela/internal/auth"
	"kashela/internal/cache"
	klog "kashela/internal/log"
	"kashela/internal/middleware/cors"
	"kashela/internal/middleware/ratelimit"
	"kashela/internal/middleware/recovery"
	"kashela/internal/middleware/security"
	"kashela/internal/middleware/trace"
	"kashela/internal/payments"
	"kashela/internal/services"
)

// Version is reported by /health.
var Version = "dev"

// AuthClient signs users up and in against the identity provider.
type AuthClient interface {
	SignUp(ctx context.Context, creds auth.Credentials) error
	SignIn(ctx context.Context, creds auth.Credentials) (auth.Session, error)
}

// Deps are the collaborators the handlers need. Auth, Verifier and Reports
// may be nil.
type Deps struct {
	Transactions *services.TransactionService
	Entries      *services.EntryService
	Payments     *payments.Service
	Auth         AuthClient
	Verifier     auth.TokenVerifier
	Reports      *cache.ReportCache
	Logger       *klog.Logger

	CORSOrigins        []string
	TrustedProxies     []string
	RateLimitPerMinute int
	MaxUploadSize      int64
}

type Server struct {
	http.Server

	deps     Deps
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	now      func() time.Time
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Transactions == nil || deps.Entries == nil || deps.Payments == nil {
		return nil, errors.New("http server: transactions, entries and payments services are required")
	}
	if deps.Logger == nil {
		deps.Logger = klog.New(klog.DefaultConfig()).WithComponent(klog.ComponentHTTP)
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = 5 << 20
	}

	detector, err := security.NewDetector(deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector: detector,
		now:      time.Now,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, deps.Logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	protect := s.requireUser

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("GET /auth/me", protect(s.handleMe))

	mux.Handle("POST /transactions", protect(s.handleCreateTransaction))
	mux.Handle("GET /transactions", protect(s.handleListTransactions))
	mux.Handle("GET /transactions/{id}", protect(s.handleGetTransaction))
	mux.Handle("DELETE /transactions/{id}", protect(s.handleDeleteTransaction))
	mux.Handle("POST /transactions/voice", protect(s.handleVoiceTransaction))
	mux.Handle("POST /transactions/receipt", protect(s.handleReceiptTransaction))

	mux.Handle("GET /reports/monthly", protect(s.handleMonthlyReport))

	mux.Handle("POST /payments/pay", protect(s.handlePay))
	mux.Handle("GET /payments/payment/{id}", protect(s.handlePaymentStatus))

	mux.Handle("POST /upload-audio", protect(s.handleUploadAudio))
	mux.Handle("POST /upload-image", protect(s.handleUploadImage))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})(h)
	h = cors.Middleware(cors.DefaultConfig(s.deps.CORSOrigins))(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = recovery.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// requireUser wraps a handler that needs an authenticated user.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, auth.User)) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		ctx := klog.NewContext(r.Context(), klog.FromContext(r.Context()).With(klog.FieldUserID, u.ID))
		next(w, r.WithContext(ctx), u)
	})
	if s.deps.Verifier == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		})
	}
	return auth.Middleware(s.deps.Verifier)(inner)
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
