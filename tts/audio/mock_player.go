package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/narrator/tts"
)

// MockPlayer implements tts.AudioPlayer for testing.
// It simulates playback timing without producing sound.
type MockPlayer struct {
	mu       sync.Mutex
	duration time.Duration
	manual   bool
	current  *mockPlayback
	closed   bool

	callbacks MockCallbacks
	history   []PlaybackEvent

	// Error injection for testing
	playError   error
	stopError   error
	finishError error
}

type mockPlayback struct {
	src    tts.AudioSource
	rate   float64
	done   chan error
	stop   chan struct{}
	finish chan error
}

// MockCallbacks holds callback functions for testing.
type MockCallbacks struct {
	OnPlay   func(src tts.AudioSource)
	OnStop   func()
	OnFinish func(src tts.AudioSource, err error)
}

// PlaybackEvent records an event for testing verification.
type PlaybackEvent struct {
	Type      string
	Timestamp time.Time
	Source    tts.AudioSource
	Rate      float64
}

// NewMockPlayer creates a mock player whose utterances last 10ms.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{
		duration: 10 * time.Millisecond,
		history:  make([]PlaybackEvent, 0),
	}
}

// Play starts simulated playback of src.
func (mp *MockPlayer) Play(ctx context.Context, src tts.AudioSource, rate float64) (<-chan error, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.playError != nil {
		return nil, mp.playError
	}
	if mp.closed {
		return nil, tts.ErrPlayerClosed
	}
	if mp.current != nil {
		return nil, errors.New("already playing")
	}
	if rate <= 0 {
		rate = 1
	}

	pb := &mockPlayback{
		src:    src,
		rate:   rate,
		done:   make(chan error, 1),
		stop:   make(chan struct{}),
		finish: make(chan error, 1),
	}
	mp.current = pb
	mp.recordEvent("play", src, rate)

	duration := time.Duration(float64(mp.duration) / rate)
	go mp.run(ctx, pb, duration, mp.manual, mp.finishError)

	if mp.callbacks.OnPlay != nil {
		mp.callbacks.OnPlay(src)
	}
	return pb.done, nil
}

func (mp *MockPlayer) run(ctx context.Context, pb *mockPlayback, duration time.Duration, manual bool, finishErr error) {
	var timer <-chan time.Time
	if !manual {
		t := time.NewTimer(duration)
		defer t.Stop()
		timer = t.C
	}

	var err error
	select {
	case <-timer:
		err = finishErr
	case err = <-pb.finish:
	case <-pb.stop:
		err = context.Canceled
	case <-ctx.Done():
		err = ctx.Err()
	}

	mp.mu.Lock()
	if mp.current == pb {
		mp.current = nil
	}
	if err == nil {
		mp.recordEvent("finish", pb.src, pb.rate)
	}
	onFinish := mp.callbacks.OnFinish
	mp.mu.Unlock()

	if onFinish != nil {
		onFinish(pb.src, err)
	}
	pb.done <- err
}

// Stop halts playback. The completion channel of the stopped utterance
// yields context.Canceled.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	if mp.stopError != nil {
		err := mp.stopError
		mp.mu.Unlock()
		return err
	}
	if mp.current == nil {
		mp.mu.Unlock()
		return nil
	}
	close(mp.current.stop)
	mp.current = nil
	mp.recordEvent("stop", tts.AudioSource{}, 0)
	onStop := mp.callbacks.OnStop
	mp.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return nil
}

// IsPlaying returns true if an utterance is in progress.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.current != nil
}

// Test Control Methods

// SetDuration sets how long each utterance plays at rate 1.
func (mp *MockPlayer) SetDuration(d time.Duration) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.duration = d
}

// SetManual makes utterances play until Finish is called.
func (mp *MockPlayer) SetManual(manual bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.manual = manual
}

// Finish ends the current utterance with err. It returns false when
// nothing is playing.
func (mp *MockPlayer) Finish(err error) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.current == nil {
		return false
	}
	select {
	case mp.current.finish <- err:
		return true
	default:
		return false
	}
}

// SetCallbacks sets the test callbacks.
func (mp *MockPlayer) SetCallbacks(callbacks MockCallbacks) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.callbacks = callbacks
}

// GetHistory returns the playback event history.
func (mp *MockPlayer) GetHistory() []PlaybackEvent {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	history := make([]PlaybackEvent, len(mp.history))
	copy(history, mp.history)
	return history
}

// Played returns the sources passed to Play, in order.
func (mp *MockPlayer) Played() []tts.AudioSource {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var played []tts.AudioSource
	for _, ev := range mp.history {
		if ev.Type == "play" {
			played = append(played, ev.Source)
		}
	}
	return played
}

// ClearHistory clears the playback event history.
func (mp *MockPlayer) ClearHistory() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.history = mp.history[:0]
}

// InjectError injects an error for testing specific error conditions.
// method is one of "play", "stop" or "finish".
func (mp *MockPlayer) InjectError(method string, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	switch method {
	case "play":
		mp.playError = err
	case "stop":
		mp.stopError = err
	case "finish":
		mp.finishError = err
	}
}

// ClearErrors clears all injected errors.
func (mp *MockPlayer) ClearErrors() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.playError = nil
	mp.stopError = nil
	mp.finishError = nil
}

// WaitForPlays waits until Play has been called n times or timeout occurs.
func (mp *MockPlayer) WaitForPlays(n int, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(mp.Played()) >= n {
			return nil
		}
		select {
		case <-deadline:
			return errors.New("timeout waiting for playback")
		case <-ticker.C:
		}
	}
}

// Close stops playback and rejects further Play calls.
func (mp *MockPlayer) Close() {
	_ = mp.Stop()
	mp.mu.Lock()
	mp.closed = true
	mp.mu.Unlock()
}

func (mp *MockPlayer) recordEvent(eventType string, src tts.AudioSource, rate float64) {
	mp.history = append(mp.history, PlaybackEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    src,
		Rate:      rate,
	})
}
