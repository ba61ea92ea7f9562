// Package engines builds the speech synthesis engines and the wrappers
// that add fallback, caching and voice conversion on top of them.
package engines

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines/google"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
	"github.com/dgnsrekt/narrator/tts/engines/piper"
	"github.com/dgnsrekt/narrator/tts/engines/polly"
)

// New builds the engine named by cfg.Engine, wrapped in a FallbackEngine
// when cfg.FallbackEngine is set and in a CachedEngine when store is not
// nil.
func New(ctx context.Context, cfg tts.Config, creds tts.Credentials, store *cache.Manager, logger *log.Logger) (tts.Engine, error) {
	if logger == nil {
		logger = log.Default()
	}

	engine, err := build(ctx, cfg.Engine, cfg, creds, logger)
	if err != nil {
		return nil, err
	}

	if cfg.FallbackEngine != "" {
		fallback, err := build(ctx, cfg.FallbackEngine, cfg, creds, logger)
		if err != nil {
			logger.Warn("fallback engine unavailable", "engine", cfg.FallbackEngine, "err", err)
		} else {
			engine = NewFallbackEngine(engine, fallback, cfg.MaxFailures, logger)
		}
	}

	if store != nil {
		engine = NewCachedEngine(engine, store, logger)
	}
	return engine, nil
}

func build(ctx context.Context, name string, cfg tts.Config, creds tts.Credentials, logger *log.Logger) (tts.Engine, error) {
	switch name {
	case "mock", "":
		return mock.New(cfg.Mock), nil
	case "google":
		engine, err := google.New(ctx, cfg.Google, creds.GoogleAPIKey, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "polly":
		engine, err := polly.New(cfg.Polly, creds, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "piper":
		engine, err := piper.New(cfg.Piper, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// NewConverter returns the configured voice converter, or nil when none
// is configured.
func NewConverter(cfg tts.ConverterConfig, logger *log.Logger) tts.VoiceConverter {
	if cfg.Endpoint == "" {
		return nil
	}
	return NewHTTPConverter(cfg.Endpoint, nil, logger)
}
