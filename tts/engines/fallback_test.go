package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
)

type namedEngine struct {
	*mock.MockEngine
	name string
}

func (e namedEngine) Name() string { return e.name }

func newMock(name string) namedEngine {
	return namedEngine{MockEngine: mock.New(tts.MockConfig{}), name: name}
}

// TestFallbackEngine tests the fallback mechanism
func TestFallbackEngine(t *testing.T) {
	// Create a primary mock that always fails
	primary := newMock("primary")
	primary.SetFailure(errors.New("primary engine failure"))

	// Create a fallback mock that always works
	fallback := newMock("fallback")

	// Create fallback engine with max 2 failures before switching
	engine := NewFallbackEngine(primary, fallback, 2, nil)
	ctx := context.Background()

	// First attempt should fail (primary fails, count = 1)
	if _, err := engine.Synthesize(ctx, "test 1", "v"); err == nil {
		t.Error("Expected first attempt to fail")
	}
	if engine.Name() != "primary" {
		t.Errorf("Expected primary to stay active, got %s", engine.Name())
	}

	// Second attempt should succeed (primary fails, count = 2, switches to fallback)
	src, err := engine.Synthesize(ctx, "test 2", "v")
	if err != nil {
		t.Errorf("Expected second attempt to succeed with fallback: %v", err)
	}
	if src.Validate() != nil {
		t.Error("Expected audio to be generated")
	}

	// Status should indicate using fallback
	if status := engine.GetStatus(); status != "Using fallback engine (primary failed 2 times)" {
		t.Errorf("Unexpected status: %s", status)
	}
	if !engine.UsingFallback() || engine.Name() != "fallback" {
		t.Error("Expected fallback to be active")
	}

	// Subsequent calls should use fallback
	if _, err := engine.Synthesize(ctx, "test 3", "v"); err != nil {
		t.Errorf("Expected subsequent calls to use fallback: %v", err)
	}
	if primary.GetCallCount() != 2 {
		t.Errorf("Primary should not be called after switching, got %d calls", primary.GetCallCount())
	}
	if fallback.GetCallCount() != 2 {
		t.Errorf("Expected 2 fallback calls, got %d", fallback.GetCallCount())
	}

	engine.Reset()
	if engine.UsingFallback() {
		t.Error("Reset should restore the primary engine")
	}
}

func TestFallbackEngineRecovery(t *testing.T) {
	primary := newMock("primary")
	engine := NewFallbackEngine(primary, newMock("fallback"), 2, nil)
	ctx := context.Background()

	primary.SetFailure(errors.New("flaky"))
	engine.Synthesize(ctx, "a", "v")
	primary.ClearFailure()
	engine.Synthesize(ctx, "b", "v")

	if status := engine.GetStatus(); status != "Using primary engine (failures: 0/2)" {
		t.Errorf("Success should reset the failure count, got %s", status)
	}
}

func TestFallbackEngineIgnoresCancellation(t *testing.T) {
	primary := newMock("primary")
	primary.SetFailure(context.Canceled)
	engine := NewFallbackEngine(primary, newMock("fallback"), 1, nil)

	if _, err := engine.Synthesize(context.Background(), "a", "v"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation to pass through, got %v", err)
	}
	if engine.UsingFallback() {
		t.Error("Cancellation should not trigger fallback")
	}
}

func TestFallbackEngineBothFail(t *testing.T) {
	primary := newMock("primary")
	primary.SetFailure(errors.New("primary down"))
	fallback := newMock("fallback")
	fallbackErr := errors.New("fallback down")
	fallback.SetFailure(fallbackErr)

	engine := NewFallbackEngine(primary, fallback, 1, nil)
	_, err := engine.Synthesize(context.Background(), "a", "v")
	if !errors.Is(err, fallbackErr) {
		t.Errorf("Expected wrapped fallback error, got %v", err)
	}
}

func TestFallbackEngineVoices(t *testing.T) {
	primary := newMock("primary")
	primary.SetVoices([]tts.Voice{{ID: "p"}})
	fallback := newMock("fallback")
	fallback.SetVoices([]tts.Voice{{ID: "f"}})
	engine := NewFallbackEngine(primary, fallback, 1, nil)

	voices, _ := engine.ListVoices(context.Background())
	if len(voices) != 1 || voices[0].ID != "p" {
		t.Errorf("Expected primary voices, got %+v", voices)
	}

	primary.SetFailure(errors.New("down"))
	engine.Synthesize(context.Background(), "a", "v")
	primary.ClearFailure()

	voices, _ = engine.ListVoices(context.Background())
	if len(voices) != 1 || voices[0].ID != "f" {
		t.Errorf("Expected fallback voices, got %+v", voices)
	}
}
