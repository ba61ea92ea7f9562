package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// FallbackEngine wraps a primary engine with automatic fallback to a secondary engine
// when the primary fails consistently.
type FallbackEngine struct {
	primary       tts.Engine
	fallback      tts.Engine
	failures      int
	maxFailures   int
	usingFallback bool
	mu            sync.RWMutex
	log           *log.Logger
}

// NewFallbackEngine creates a new engine with automatic fallback capability.
func NewFallbackEngine(primary, fallback tts.Engine, maxFailures int, logger *log.Logger) *FallbackEngine {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FallbackEngine{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		log:         logger.WithPrefix("fallback"),
	}
}

// Name returns the name of the engine currently serving requests.
func (f *FallbackEngine) Name() string {
	return f.active().Name()
}

func (f *FallbackEngine) active() tts.Engine {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}

// Synthesize generates audio using the active engine, with automatic fallback.
// Cancelled calls do not count as failures.
func (f *FallbackEngine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	f.mu.RLock()
	usingFallback := f.usingFallback
	f.mu.RUnlock()

	// If already using fallback, use it directly
	if usingFallback {
		return f.fallback.Synthesize(ctx, text, voiceID)
	}

	src, err := f.primary.Synthesize(ctx, text, voiceID)
	if err == nil {
		f.mu.Lock()
		if f.failures > 0 {
			f.log.Info("primary engine recovered", "engine", f.primary.Name(), "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return src, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return tts.AudioSource{}, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	f.log.Warn("primary engine failed", "engine", f.primary.Name(), "attempt", failures, "max", f.maxFailures, "err", err)

	// Haven't reached max failures yet, return error
	if failures < f.maxFailures {
		f.mu.Unlock()
		return tts.AudioSource{}, err
	}
	if !f.usingFallback {
		f.log.Warn("switching to fallback engine", "primary", f.primary.Name(), "fallback", f.fallback.Name())
		f.usingFallback = true
	}
	f.mu.Unlock()

	src, ferr := f.fallback.Synthesize(ctx, text, voiceID)
	if ferr != nil {
		return tts.AudioSource{}, fmt.Errorf("both engines failed: primary=%v, fallback: %w", err, ferr)
	}
	return src, nil
}

// ListVoices returns voices from the active engine.
func (f *FallbackEngine) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return f.active().ListVoices(ctx)
}

// UsingFallback reports whether the fallback engine is serving requests.
func (f *FallbackEngine) UsingFallback() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.usingFallback
}

// Reset attempts to reset to primary engine.
func (f *FallbackEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = 0
	f.usingFallback = false
	f.log.Info("reset to primary engine", "engine", f.primary.Name())
}

// GetStatus returns the current engine status.
func (f *FallbackEngine) GetStatus() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.usingFallback {
		return fmt.Sprintf("Using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("Using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}
