package tts_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// memStore is an in-memory tts.SettingsStore.
type memStore struct {
	mu       sync.Mutex
	settings tts.Settings
	updates  int
}

func newMemStore(modify func(*tts.Settings)) *memStore {
	s := tts.DefaultSettings()
	s.Enabled = true
	s.DirectTone = true
	if modify != nil {
		modify(&s)
	}
	return &memStore{settings: s}
}

func (m *memStore) Settings() tts.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.Clone()
}

func (m *memStore) Update(fn func(*tts.Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.settings)
	m.updates++
	return nil
}

// staticVoices resolves speakers from a fixed table.
type staticVoices struct {
	mu    sync.Mutex
	table map[string]string
	inits int
}

func (v *staticVoices) Resolve(speaker string) (string, tts.Resolution) {
	v.mu.Lock()
	defer v.mu.Unlock()
	voice, ok := v.table[speaker]
	switch {
	case !ok:
		return "", tts.NotFound
	case voice == tts.DisabledVoice:
		return "", tts.Disabled
	}
	return voice, tts.Resolved
}

func (v *staticVoices) Init(context.Context, bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inits++
	return nil
}

func (v *staticVoices) initCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inits
}

// fakeAnalyzer returns a canned rewrite, or the input when none is set.
// fakeAnalyzer answers with replies[text] when present, then response,
// then the input unchanged.
type fakeAnalyzer struct {
	mu       sync.Mutex
	response string
	replies  map[string]string
	err      error
	inputs   []string
}

func (a *fakeAnalyzer) AnalyzeTone(_ context.Context, text string, _ tts.ToneRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inputs = append(a.inputs, text)
	if a.err != nil {
		return "", a.err
	}
	if r, ok := a.replies[text]; ok {
		return r, nil
	}
	if a.response != "" {
		return a.response, nil
	}
	return text, nil
}

func (a *fakeAnalyzer) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.inputs...)
}

// fakeSynth records synthesis requests. When hold is set every call
// blocks until a value is sent on it.
type fakeSynth struct {
	mu     sync.Mutex
	texts  []string
	voices []string
	fail   map[string]error
	hold   chan struct{}
}

func (s *fakeSynth) Synthesize(_ context.Context, text, voiceID string) (tts.AudioSource, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.voices = append(s.voices, voiceID)
	err := s.fail[voiceID]
	hold := s.hold
	s.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if err != nil {
		return tts.AudioSource{}, err
	}
	return tts.Inline([]byte(text), "audio/wav"), nil
}

func (s *fakeSynth) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// noticeLog collects notices.
type noticeLog struct {
	mu      sync.Mutex
	notices []string
	levels  []tts.NoticeLevel
}

func (n *noticeLog) Notify(level tts.NoticeLevel, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.notices = append(n.notices, msg)
}

func (n *noticeLog) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}

type pipelineFixture struct {
	pipeline *tts.Pipeline
	store    *memStore
	voices   *staticVoices
	analyzer *fakeAnalyzer
	synth    *fakeSynth
	player   *audio.MockPlayer
	notices  *noticeLog
}

func newPipelineFixture(t *testing.T, modify func(*tts.Settings)) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		store: newMemStore(modify),
		voices: &staticVoices{table: map[string]string{
			"Alice":  "voice-alice",
			"Bob":    "voice-bob",
			"Muted":  tts.DisabledVoice,
			"Broken": "voice-broken",
		}},
		analyzer: &fakeAnalyzer{},
		synth:    &fakeSynth{fail: map[string]error{"voice-broken": errors.New("quota exceeded")}},
		player:   audio.NewMockPlayer(),
		notices:  &noticeLog{},
	}
	f.player.SetManual(true)
	f.pipeline = tts.NewPipeline(tts.PipelineOptions{
		Store:       f.store,
		Voices:      f.voices,
		Analyzer:    f.analyzer,
		Synthesizer: f.synth,
		Player:      f.player,
		Notifier:    f.notices,
		Logger:      quietLogger(),
	})
	t.Cleanup(func() {
		f.pipeline.Close()
		f.player.Close()
	})
	return f
}

// drive ticks the pipeline until cond holds.
func (f *pipelineFixture) drive(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (status %+v)", what, f.pipeline.Status())
		}
		f.pipeline.Tick()
		time.Sleep(2 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
