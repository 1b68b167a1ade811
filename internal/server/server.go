// Package server wires the gateway's services together and runs the HTTP
// listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fieldledger/internal/api"
	"fieldledger/internal/config"
	"fieldledger/internal/extract"
	"fieldledger/internal/gauth"
	"fieldledger/internal/ledger"
	"fieldledger/internal/server/endpoints"
	"fieldledger/internal/sheets"
	"fieldledger/internal/svcctx"
	"fieldledger/internal/vision"
)

// Server is the main fieldledger HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *vision.Registry
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0)
	Host string
	// Port is the port to listen on (default: 8787)
	Port int
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == 0 {
		cfg.Port = appCfg.Server.Port
	}

	// Vision providers with hot reload
	registry := vision.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToVisionRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToVisionRegistryConfig())
		cfg.Logger.Info("vision provider registry reloaded from config")
	})

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}
	s.services = s.buildServices()

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		HasAnthropicKey:   s.hasVisionKey,
		HasSheetID:        func() bool { return s.configMgr.Get().SheetID() != "" },
		HasServiceAccount: func() bool { return s.configMgr.Get().ServiceAccountJSON() != "" },
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.withServices(s.withCORS(mux)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildServices constructs the service graph from current config. A missing
// service identity still yields working services: credential failures then
// surface per request, matching the health endpoint's booleans.
func (s *Server) buildServices() *svcctx.Services {
	cfg := s.configMgr.Get()

	tokens := gauth.Unconfigured()
	if raw := cfg.ServiceAccountJSON(); raw != "" {
		sa, err := gauth.ParseServiceAccount(raw)
		if err != nil {
			s.logger.Error("invalid service identity, sheet writes will fail", "error", err)
		} else {
			tokens = gauth.NewTokenCache(sa, gauth.WithLogger(s.logger))
		}
	}

	sheetsClient := sheets.NewClient(sheets.Config{
		SheetID: cfg.SheetID(),
		Tokens:  tokens,
		Logger:  s.logger,
	})

	ledgerSvc := ledger.NewService(sheetsClient,
		func() ledger.Config { return s.configMgr.Get().ToLedgerConfig() },
		s.logger,
	)

	extractSvc := extract.NewService(extract.ServiceConfig{
		Providers:       s.registry,
		DefaultProvider: func() string { return s.configMgr.Get().Defaults.VisionProvider },
		FallbackFields:  func() []extract.FieldDefinition { return s.configMgr.Get().ToFieldDefinitions() },
		Confidence:      func() extract.ConfidenceDefaults { return s.configMgr.Get().ToConfidenceDefaults() },
		Logger:          s.logger,
	})

	return &svcctx.Services{
		Extractor: extractSvc,
		Ledger:    ledgerSvc,
		Tokens:    tokens,
		Registry:  s.registry,
		Config:    s.configMgr,
		Logger:    s.logger,
	}
}

// hasVisionKey reports whether the default vision provider has an API key
// configured, without revealing it.
func (s *Server) hasVisionKey() bool {
	cfg := s.configMgr.Get()
	p, ok := cfg.GetVisionProvider(cfg.Defaults.VisionProvider)
	if !ok {
		return false
	}
	if p.Type == "mock" {
		return p.Enabled
	}
	return config.ResolveEnvVars(p.APIKey) != ""
}

// Start runs the server until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the vision provider registry.
func (s *Server) Registry() *vision.Registry {
	return s.registry
}

// Handler returns the fully wrapped HTTP handler. Used by tests to exercise
// routing without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
