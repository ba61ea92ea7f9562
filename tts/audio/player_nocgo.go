//go:build nocgo
// +build nocgo

// Package audio decodes synthesized payloads and plays them on the output
// device.
package audio

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// Channels is the device channel count. Speech is mono.
const Channels = 1

var errNoAudio = errors.New("audio not available in nocgo build")

// OtoPlayer is unavailable without cgo.
type OtoPlayer struct{}

// NewOtoPlayer always fails in nocgo builds.
func NewOtoPlayer(int, *log.Logger) (*OtoPlayer, error) {
	return nil, errNoAudio
}

// Play always fails in nocgo builds.
func (*OtoPlayer) Play(context.Context, tts.AudioSource, float64) (<-chan error, error) {
	return nil, errNoAudio
}

// Stop is a no-op.
func (*OtoPlayer) Stop() error { return nil }

// IsPlaying always returns false.
func (*OtoPlayer) IsPlaying() bool { return false }

// Close is a no-op.
func (*OtoPlayer) Close() error { return nil }
