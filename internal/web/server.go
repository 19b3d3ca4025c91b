package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/BizPlanGen/internal/metrics"
	"github.com/digkill/BizPlanGen/internal/service"
)

type Options struct {
	Addr            string
	AdminUsername   string
	AdminPassword   string
	SecureCookies   bool
	ShutdownTimeout time.Duration
}

type Server struct {
	opts      Options
	log       *slog.Logger
	sessions  *service.SessionStore
	forms     *service.FormService
	payments  *service.PaymentService
	generator *service.GenerationService
	router    *chi.Mux
}

func NewServer(opts Options, log *slog.Logger, sessions *service.SessionStore, forms *service.FormService, payments *service.PaymentService, generator *service.GenerationService) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	s := &Server{
		opts:      opts,
		log:       log,
		sessions:  sessions,
		forms:     forms,
		payments:  payments,
		generator: generator,
		router:    r,
	}

	r.Get("/", s.handleIndex)
	r.Post("/fields", s.handleUpdateFields)
	r.Post("/pay", s.handlePay)
	r.Post("/payment/confirm", s.handleConfirmPayment)
	r.Post("/payment/callback", s.handlePaymentCallback)
	r.Post("/webhook/razorpay", s.handleRazorpayWebhook)
	r.Post("/generate", s.handleGenerate)
	r.Get("/generate/{id}", s.handleJobStatus)
	r.Post("/generate/{id}/cancel", s.handleCancelJob)
	r.Get("/download", s.handleDownload)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	if opts.AdminUsername != "" && opts.AdminPassword != "" {
		r.Group(func(protected chi.Router) {
			protected.Use(s.basicAuthMiddleware())
			protected.Get("/admin/orders", s.handleListOrders)
		})
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !credentialsMatch(user, pass, s.opts.AdminUsername, s.opts.AdminPassword) {
				w.Header().Set("WWW-Authenticate", `Basic realm="bizplangen"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credentialsMatch compares both values in constant time and always checks both.
func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass))
	return userOK&passOK == 1
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to the response code of the failed action.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrInvalidCallback):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrSelfReportDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrJobInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
