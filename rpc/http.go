package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tastefun/core"
	"tastefun/crypto"
	"tastefun/rpc/middleware"
	"tastefun/storage/journal"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// EventQuerier serves journaled events.
type EventQuerier interface {
	Query(ctx context.Context, f journal.Filter) ([]journal.Record, error)
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimit
	Logger    *slog.Logger
}

// Server exposes the node over a JSON HTTP API.
type Server struct {
	node     *core.Node
	events   EventQuerier
	logger   *slog.Logger
	auth     *middleware.Authenticator
	limiter  *middleware.RateLimiter
	obs      *middleware.Observability
	validate *validator.Validate
	handler  http.Handler
}

// NewServer builds the router. events may be nil when no journal is
// configured.
func NewServer(node *core.Node, events EventQuerier, cfg ServerConfig) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return nil, errors.New("rpc: auth secret required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "rpc"))
	s := &Server{
		node:     node,
		events:   events,
		logger:   logger,
		auth:     middleware.NewAuthenticator(cfg.Auth, logger),
		limiter:  middleware.NewRateLimiter(cfg.RateLimit, logger),
		obs:      middleware.NewObservability("api", logger),
		validate: newValidator(),
	}
	s.handler = otelhttp.NewHandler(s.routes(), "tastefund.http")
	return s, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDs)
	r.Use(s.obs.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Group(func(q chi.Router) {
			q.Use(s.limiter.Middleware("query"))
			q.Get("/trading-config", s.handleGetTradingConfig)
			q.Get("/themes", s.handleListThemes)
			q.Get("/themes/{creator}/{id}", s.handleGetTheme)
			q.Get("/themes/{creator}/{id}/quote", s.handleQuote)
			q.Get("/ideas", s.handleListIdeas)
			q.Get("/ideas/{initiator}/{id}", s.handleGetIdea)
			q.Get("/ideas/{initiator}/{id}/votes/{voter}", s.handleGetVote)
			q.Get("/accounts/{address}/balances/{asset}", s.handleGetBalance)
			q.Get("/events", s.handleListEvents)
			q.Get("/events/stream", s.handleEventStream)
		})
		v.Group(func(c chi.Router) {
			c.Use(s.auth.Middleware)
			c.Use(s.limiter.Middleware("command"))
			c.Post("/trading-config", s.handleInitTradingConfig)
			c.Post("/themes", s.handleCreateTheme)
			c.Post("/themes/{creator}/{id}/buy", s.handleBuy)
			c.Post("/themes/{creator}/{id}/sell", s.handleSell)
			c.Post("/themes/{creator}/{id}/buyback", s.handleBuyback)
			c.Post("/themes/{creator}/{id}/status", s.handleSetThemeStatus)
			c.Post("/ideas", s.handleCreateIdea)
			c.Post("/ideas/sponsored", s.handleCreateSponsoredIdea)
			c.Post("/ideas/{initiator}/{id}/images", s.handleConfirmImages)
			c.Post("/ideas/{initiator}/{id}/generation-failed", s.handleGenerationFailed)
			c.Post("/ideas/{initiator}/{id}/votes", s.handleVote)
			c.Post("/ideas/{initiator}/{id}/cancel", s.handleCancelIdea)
			c.Post("/ideas/{initiator}/{id}/settle", s.handleSettle)
			c.Post("/ideas/{initiator}/{id}/withdraw", s.handleWithdrawWinnings)
			c.Post("/ideas/{initiator}/{id}/refund", s.handleWithdrawRefund)
			c.Post("/ideas/{initiator}/{id}/sponsor-refund", s.handleWithdrawSponsorRefund)
			c.Post("/ideas/{initiator}/{id}/sweep", s.handleSweepResidual)
			c.Post("/accounts/{address}/credit", s.handleCredit)
		})
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.String("route", r.URL.Path),
			slog.Any("error", err))
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Details: details})
}

// callerFrom returns the authenticated caller. Command routes always run
// behind the authenticator.
func callerFrom(r *http.Request) [20]byte {
	caller, _ := middleware.Caller(r.Context())
	return caller
}

func pathAddress(r *http.Request, name string) ([20]byte, error) {
	return crypto.ParseAddress(chi.URLParam(r, name))
}

func pathUint(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}
