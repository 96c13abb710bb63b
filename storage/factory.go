package storage

import (
	"fmt"

	"github.com/kbukum/mediaflow/logger"
)

// Factory creates a Storage implementation from core config and
// provider-specific configuration. Each provider type-asserts providerCfg
// to its own config type.
type Factory func(cfg Config, providerCfg any, log *logger.Logger) (Storage, error)

var factories = make(map[string]Factory)

// RegisterFactory registers a storage backend factory for the given provider name.
// Backend packages call this from an init function.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New creates a Storage implementation based on the given Config.
// providerCfg carries provider-specific settings (e.g. *s3.Config).
// The backend package must have been imported so its factory is registered.
func New(cfg Config, providerCfg any, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithComponent("storage")

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l.Info("Initializing storage", map[string]any{"provider": cfg.Provider})
	return f(cfg, providerCfg, l)
}
