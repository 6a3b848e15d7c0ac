// Package api implements the stub Remote Gateway: an in-memory HTTP server
// speaking the same wire contract as the production ledger gateway.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ledger-sync/internal/logging"
)

// Server represents the stub gateway HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	store      *Store
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64 // per caller; zero disables limiting
	RateLimitBurst  int
	TokenTTL        time.Duration
	Version         string
}

// NewServer creates a new stub gateway around store.
func NewServer(config *ServerConfig, store *Store, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		config: config,
		logger: logger.WithField("component", "stub-gateway"),
	}

	s.setupRouter()

	return s
}

// Handler exposes the router, mainly for httptest servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	limiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// order matters: logging sees the final status of everything below it
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(limiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all gateway routes.
func (s *Server) setupRoutes() {
	// preflight requests only reach CORSMiddleware through a matching route
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := api.PathPrefix("/v1").Subrouter()

	// Auth endpoints
	v1.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	// Market endpoints are public
	v1.HandleFunc("/market/bybit/ticker/{base}", s.handleTicker).Methods(http.MethodGet)

	authed := v1.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(s.store))

	authed.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	// Portfolio endpoints
	authed.HandleFunc("/portfolios", s.handleListPortfolios).Methods(http.MethodGet)
	authed.HandleFunc("/portfolios", s.handleCreatePortfolio).Methods(http.MethodPost)
	authed.HandleFunc("/portfolios/import", s.handleClonePortfolio).Methods(http.MethodPost)
	authed.HandleFunc("/portfolios/{id}", s.handleGetPortfolio).Methods(http.MethodGet)
	authed.HandleFunc("/portfolios/{id}", s.handleUpdatePortfolio).Methods(http.MethodPut)
	authed.HandleFunc("/portfolios/{id}", s.handleDeletePortfolio).Methods(http.MethodDelete)
	authed.HandleFunc("/portfolios/{id}/import/bybit", s.handleImportBybit).Methods(http.MethodPost)

	// Asset endpoints
	authed.HandleFunc("/portfolios/{id}/assets", s.handleListAssets).Methods(http.MethodGet)
	authed.HandleFunc("/portfolios/{id}/assets", s.handleCreateAsset).Methods(http.MethodPost)

	// Transaction endpoints
	authed.HandleFunc("/portfolios/{id}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	authed.HandleFunc("/portfolios/{id}/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	authed.HandleFunc("/portfolios/{id}/transactions/{txId}", s.handleUpdateTransaction).Methods(http.MethodPut)
	authed.HandleFunc("/portfolios/{id}/transactions/{txId}", s.handleDeleteTransaction).Methods(http.MethodDelete)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ledger-gateway",
		"version": s.config.Version,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting stub gateway")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down stub gateway")
	return s.httpServer.Shutdown(ctx)
}
