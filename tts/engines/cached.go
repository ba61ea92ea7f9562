package engines

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
)

// AudioCache stores synthesized payloads by key.
type AudioCache interface {
	Get(key string) (cache.Entry, bool)
	Put(key string, entry cache.Entry) error
}

// CachedEngine serves repeated utterances from an AudioCache. Only inline
// payloads are cached; references are passed through untouched.
type CachedEngine struct {
	tts.Engine
	cache AudioCache
	log   *log.Logger
}

// NewCachedEngine wraps engine with store.
func NewCachedEngine(engine tts.Engine, store AudioCache, logger *log.Logger) *CachedEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedEngine{Engine: engine, cache: store, log: logger.WithPrefix("cache")}
}

// Synthesize returns the cached payload for the engine, voice and text, or
// synthesizes and stores it.
func (c *CachedEngine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	key := cache.Key(c.Engine.Name(), voiceID, text)
	if entry, ok := c.cache.Get(key); ok {
		c.log.Debug("cache hit", "voice", voiceID, "bytes", len(entry.Data))
		return tts.Inline(entry.Data, entry.MIMEType), nil
	}

	src, err := c.Engine.Synthesize(ctx, text, voiceID)
	if err != nil {
		return src, err
	}
	if src.Kind() != tts.SourceInline || src.Validate() != nil {
		return src, nil
	}
	if err := c.cache.Put(key, cache.Entry{MIMEType: src.MIMEType(), Data: src.Data()}); err != nil {
		c.log.Warn("failed to cache audio", "voice", voiceID, "err", err)
	}
	return src, nil
}
