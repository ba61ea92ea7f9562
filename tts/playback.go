package tts

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Playback owns the audio device and the gate that keeps at most one
// utterance playing. The gate is closed exactly while an audio job is in
// flight.
type Playback struct {
	mu      sync.Mutex
	player  AudioPlayer
	current *AudioJob
	cancel  context.CancelFunc
	log     *log.Logger
}

// NewPlayback creates a playback controller for player.
func NewPlayback(player AudioPlayer, logger *log.Logger) *Playback {
	if logger == nil {
		logger = log.Default()
	}
	return &Playback{player: player, log: logger.WithPrefix("playback")}
}

// Ready reports whether the gate is open.
func (p *Playback) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil
}

// Current returns the job holding the gate.
func (p *Playback) Current() (AudioJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return AudioJob{}, false
	}
	return *p.current, true
}

// Start closes the gate and begins playing job. done is called once from
// another goroutine when playback ends. If the device refuses the payload
// the gate is reopened and the error returned; done is not called.
func (p *Playback) Start(ctx context.Context, job AudioJob, rate float64, done func(gen uint64, err error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return fmt.Errorf("playback busy with %s", p.current.Speaker)
	}
	if err := job.Source.Validate(); err != nil {
		return err
	}

	playCtx, cancel := context.WithCancel(ctx)
	finished, err := p.player.Play(playCtx, job.Source, rate)
	if err != nil {
		cancel()
		return err
	}

	p.current = &job
	p.cancel = cancel
	p.log.Debug("playing", "speaker", job.Speaker, "source", job.Source.Kind(), "rate", rate)

	go func() {
		err := <-finished
		cancel()
		done(job.Generation, err)
	}()
	return nil
}

// Complete reopens the gate for the job of generation gen. It returns
// false when no job of that generation holds the gate, which happens when
// a completion races with Stop.
func (p *Playback) Complete(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.current.Generation != gen {
		return false
	}
	p.current = nil
	p.cancel = nil
	return true
}

// Stop halts the device and reopens the gate. Nothing that was playing
// survives it.
func (p *Playback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.current = nil
	return p.player.Stop()
}

// IsPlaying reports whether the device is producing sound.
func (p *Playback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil || p.player.IsPlaying()
}

// PreviewVoice speaks the preview sentence for lang with a provider voice
// and waits for playback to end. It bypasses the voice map and the queues.
func PreviewVoice(ctx context.Context, synth Synthesizer, player AudioPlayer, voiceID, lang string, rate float64) error {
	src, err := synth.Synthesize(ctx, PreviewString(lang), voiceID)
	if err != nil {
		return NewPipelineError(err, "synthesis", "preview").WithContext("voice", voiceID)
	}
	if err := src.Validate(); err != nil {
		return NewPipelineError(err, "synthesis", "preview").WithContext("voice", voiceID)
	}
	done, err := player.Play(ctx, src, rate)
	if err != nil {
		return NewPipelineError(err, "playback", "preview")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = player.Stop()
		return ctx.Err()
	}
}
