// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"fieldledger/internal/config"
	"fieldledger/internal/extract"
	"fieldledger/internal/gauth"
	"fieldledger/internal/ledger"
	"fieldledger/internal/vision"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Extractor *extract.Service
	Ledger    *ledger.Service
	Tokens    *gauth.TokenCache
	Registry  *vision.Registry
	Config    *config.Manager
	Logger    *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ExtractorFrom extracts the extraction service from context.
func ExtractorFrom(ctx context.Context) *extract.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// LedgerFrom extracts the ledger service from context.
func LedgerFrom(ctx context.Context) *ledger.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ledger
	}
	return nil
}

// TokensFrom extracts the credential cache from context.
func TokensFrom(ctx context.Context) *gauth.TokenCache {
	if s := ServicesFrom(ctx); s != nil {
		return s.Tokens
	}
	return nil
}

// RegistryFrom extracts the vision provider registry from context.
func RegistryFrom(ctx context.Context) *vision.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context. Returns slog.Default() if
// not present so callers can log unconditionally.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
