package lmdbkv

import (
	"log/slog"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/locator"
	"github.com/roach88/lmdbkv/internal/native"
	"github.com/roach88/lmdbkv/internal/refengine"
)

// Engine is a loaded storage engine. Release it once every client using it
// is closed.
type Engine = native.Engine

// LoadEngine loads the engine selected by cfg. For the native engine this
// searches for the shared library, which is the expensive step; load once
// and share the result with WithEngine.
func LoadEngine(cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Engine {
	case EngineReference:
		logger.Info("using reference engine")
		return refengine.New(logger), nil
	case EngineNative:
		lib, err := locator.New(cfg.LibraryPaths, logger).Load()
		if err != nil {
			return nil, err
		}
		return lib, nil
	default:
		return nil, kverr.Newf(kverr.Validation, "unknown engine %q", cfg.Engine)
	}
}
