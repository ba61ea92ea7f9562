// Package mock provides an offline synthesis engine for tests and demos.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// SampleRate is the rate of the audio the mock engine produces.
const SampleRate = 22050

// MockEngine implements tts.Engine without touching the network. It
// returns silent WAV audio whose length follows the text.
type MockEngine struct {
	mu sync.Mutex

	// Configuration
	delay          time.Duration // Simulated processing delay
	wordsPerMinute int
	voices         []tts.Voice

	// Control for testing
	failureError error

	// State
	callCount int
	lastText  string
	lastVoice string
}

// New creates a new mock engine.
func New(cfg tts.MockConfig) *MockEngine {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = 150
	}
	return &MockEngine{
		delay:          cfg.GenerationDelay,
		wordsPerMinute: cfg.WordsPerMinute,
		voices: []tts.Voice{
			{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US", Gender: "neutral"},
			{ID: "mock-voice-2", Name: "Mock Voice 2", Language: "en-GB", Gender: "female"},
			{ID: "mock-voice-3", Name: "Mock Voice 3", Language: "en-US", Gender: "male"},
		},
	}
}

// Name returns "mock".
func (e *MockEngine) Name() string { return "mock" }

// Synthesize simulates audio generation.
func (e *MockEngine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	e.mu.Lock()
	e.callCount++
	e.lastText, e.lastVoice = text, voiceID
	delay, failure := e.delay, e.failureError
	e.mu.Unlock()

	// Simulate failure if configured
	if failure != nil {
		return tts.AudioSource{}, failure
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return tts.AudioSource{}, ctx.Err()
		}
	}

	// Generate mock audio (silence)
	frames := int(e.estimateDuration(text).Seconds() * SampleRate)
	data, err := audio.EncodeWAV(audio.PCM{
		Data:       make([]byte, frames*audio.BytesPerSample),
		SampleRate: SampleRate,
		Channels:   1,
	})
	if err != nil {
		return tts.AudioSource{}, err
	}
	return tts.Inline(data, "audio/wav"), nil
}

// ListVoices returns the mock voices.
func (e *MockEngine) ListVoices(context.Context) ([]tts.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failureError != nil {
		return nil, e.failureError
	}
	voices := make([]tts.Voice, len(e.voices))
	copy(voices, e.voices)
	return voices, nil
}

// Test control methods

// SetDelay sets the simulated processing delay.
func (e *MockEngine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
}

// SetVoices replaces the voice catalog.
func (e *MockEngine) SetVoices(voices []tts.Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices = voices
}

// SetFailure configures the engine to fail with the given error.
func (e *MockEngine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureError = err
}

// ClearFailure resets the engine to normal operation.
func (e *MockEngine) ClearFailure() {
	e.SetFailure(nil)
}

// GetCallCount returns the number of Synthesize calls.
func (e *MockEngine) GetCallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}

// LastRequest returns the text and voice of the latest Synthesize call.
func (e *MockEngine) LastRequest() (text, voiceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastText, e.lastVoice
}

// estimateDuration estimates speaking duration for text.
func (e *MockEngine) estimateDuration(text string) time.Duration {
	words := len(text) / 5 // Rough estimate: 5 chars per word
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / float64(e.wordsPerMinute)
	return time.Duration(seconds * float64(time.Second))
}
