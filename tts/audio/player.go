//go:build !nocgo
// +build !nocgo

// Package audio decodes synthesized payloads and plays them on the output
// device.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/narrator/tts"
)

// Channels is the device channel count. Speech is mono.
const Channels = 1

const pollInterval = 20 * time.Millisecond

// oto allows one context per process.
var (
	sharedContext *oto.Context
	sharedRate    int
	contextMu     sync.Mutex
)

// OtoPlayer plays payloads through the system audio device.
type OtoPlayer struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	client     *http.Client
	current    *oto.Player
	cancel     context.CancelFunc
	closed     bool
	log        *log.Logger
}

// NewOtoPlayer opens the audio device at sampleRate.
func NewOtoPlayer(sampleRate int, logger *log.Logger) (*OtoPlayer, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("audio")

	otoCtx, err := audioContext(sampleRate, logger)
	if err != nil {
		return nil, err
	}
	return &OtoPlayer{
		otoCtx:     otoCtx,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        logger,
	}, nil
}

func audioContext(sampleRate int, logger *log.Logger) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if sharedContext != nil {
		if sharedRate != sampleRate {
			return nil, fmt.Errorf("audio device already open at %d Hz", sharedRate)
		}
		return sharedContext, nil
	}

	options := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	switch runtime.GOOS {
	case "darwin":
		options.BufferSize = 100 * time.Millisecond
	case "windows":
		options.BufferSize = 80 * time.Millisecond
	default:
		options.BufferSize = 50 * time.Millisecond
	}

	logger.Debug("initializing audio context",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	otoCtx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, errors.New("audio context initialization timeout")
	}

	sharedContext, sharedRate = otoCtx, sampleRate
	return otoCtx, nil
}

// Play decodes src and starts playing it. Decoding happens on the playback
// goroutine so Play returns immediately.
func (p *OtoPlayer) Play(ctx context.Context, src tts.AudioSource, rate float64) (<-chan error, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, tts.ErrPlayerClosed
	}
	p.stopLocked()

	playCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan error, 1)
	go func() {
		err := p.run(playCtx, src, rate)
		cancel()
		done <- err
	}()
	return done, nil
}

func (p *OtoPlayer) run(ctx context.Context, src tts.AudioSource, rate float64) error {
	data, mimeType, err := Load(ctx, p.client, src)
	if err != nil {
		return err
	}
	pcm, err := Decode(data, mimeType)
	if err != nil {
		return err
	}
	pcm = Resample(pcm, p.sampleRate, Channels, rate)

	p.mu.Lock()
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return err
	}
	player := p.otoCtx.NewPlayer(bytes.NewReader(pcm.Data))
	p.current = player
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.current == player {
			p.current = nil
		}
		p.mu.Unlock()
		_ = player.Close()
	}()

	p.log.Debug("playback started", "duration", pcm.Duration(), "rate", rate)
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

// Stop halts the current utterance. Its completion channel yields
// context.Canceled.
func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *OtoPlayer) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.current != nil {
		p.current.Pause()
	}
}

// IsPlaying reports whether the device is producing sound.
func (p *OtoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.IsPlaying()
}

// Close stops playback. The device itself stays open for the process.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}
