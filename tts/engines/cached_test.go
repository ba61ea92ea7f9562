package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
)

type mapCache struct {
	entries map[string]cache.Entry
	putErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]cache.Entry)}
}

func (c *mapCache) Get(key string) (cache.Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

func (c *mapCache) Put(key string, e cache.Entry) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[key] = e
	return nil
}

type referenceEngine struct{ calls int }

func (e *referenceEngine) Name() string { return "ref" }

func (e *referenceEngine) Synthesize(context.Context, string, string) (tts.AudioSource, error) {
	e.calls++
	return tts.Reference("https://example.com/a.wav"), nil
}

func (e *referenceEngine) ListVoices(context.Context) ([]tts.Voice, error) { return nil, nil }

func TestCachedEngine(t *testing.T) {
	inner := newMock("mock")
	store := newMapCache()
	engine := NewCachedEngine(inner, store, nil)
	ctx := context.Background()

	first, err := engine.Synthesize(ctx, "hello", "voice-a")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, err := engine.Synthesize(ctx, "hello", "voice-a")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if inner.GetCallCount() != 1 {
		t.Errorf("Expected 1 engine call, got %d", inner.GetCallCount())
	}
	if string(first.Data()) != string(second.Data()) || second.MIMEType() != "audio/wav" {
		t.Error("Cached payload differs from the original")
	}
	if _, ok := store.entries[cache.Key("mock", "voice-a", "hello")]; !ok {
		t.Error("Expected entry under engine|voice|text key")
	}

	// Another voice is another key
	engine.Synthesize(ctx, "hello", "voice-b")
	if inner.GetCallCount() != 2 {
		t.Errorf("Expected a miss for a different voice, got %d calls", inner.GetCallCount())
	}
}

func TestCachedEngineSkipsReferences(t *testing.T) {
	inner := &referenceEngine{}
	store := newMapCache()
	engine := NewCachedEngine(inner, store, nil)

	engine.Synthesize(context.Background(), "hello", "v")
	engine.Synthesize(context.Background(), "hello", "v")

	if inner.calls != 2 || len(store.entries) != 0 {
		t.Errorf("References should not be cached: calls %d, entries %d", inner.calls, len(store.entries))
	}
}

func TestCachedEngineErrors(t *testing.T) {
	inner := newMock("mock")
	store := newMapCache()
	store.putErr = errors.New("disk full")
	engine := NewCachedEngine(inner, store, nil)

	if _, err := engine.Synthesize(context.Background(), "hello", "v"); err != nil {
		t.Errorf("A failed cache write should not fail synthesis: %v", err)
	}

	synthErr := errors.New("boom")
	inner.SetFailure(synthErr)
	if _, err := engine.Synthesize(context.Background(), "other", "v"); !errors.Is(err, synthErr) {
		t.Errorf("Expected engine error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	cfg := tts.DefaultConfig()

	engine, err := New(context.Background(), cfg, tts.Credentials{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if engine.Name() != "mock" {
		t.Errorf("Expected mock engine, got %s", engine.Name())
	}

	cfg.Engine = "nope"
	if _, err := New(context.Background(), cfg, tts.Credentials{}, nil, nil); err == nil {
		t.Error("Expected error for unknown engine")
	}
}

func TestNewWithCacheAndFallback(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.FallbackEngine = "polly"

	store, err := cache.NewManager(cache.Config{MemoryEntries: 4, DiskPath: t.TempDir(), DiskCapacity: 1 << 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	engine, err := New(context.Background(), cfg, tts.Credentials{}, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cached, ok := engine.(*CachedEngine)
	if !ok {
		t.Fatalf("Expected *CachedEngine, got %T", engine)
	}
	if _, ok := cached.Engine.(*FallbackEngine); !ok {
		t.Errorf("Expected fallback wrapper, got %T", cached.Engine)
	}
}

func TestNewConverter(t *testing.T) {
	if NewConverter(tts.ConverterConfig{}, nil) != nil {
		t.Error("Expected no converter without endpoint")
	}
	if NewConverter(tts.ConverterConfig{Endpoint: "http://localhost:1"}, nil) == nil {
		t.Error("Expected converter with endpoint")
	}
}
