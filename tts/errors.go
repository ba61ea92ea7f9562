package tts

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for the narration pipeline.
var (
	// ErrMissingCredential is returned when a remote collaborator has no API key.
	ErrMissingCredential = errors.New("credential not configured")
	// ErrVoiceDisabled is returned when the speaker's voice is disabled.
	ErrVoiceDisabled = errors.New("voice disabled for speaker")
	// ErrVoiceNotFound is returned when the speaker has no voice mapping.
	ErrVoiceNotFound = errors.New("voice not found for speaker")
	// ErrEmptyText is returned when normalization leaves nothing to say.
	ErrEmptyText = errors.New("empty text after normalization")
	// ErrEmptyAudio is returned for a payload with no audio in it.
	ErrEmptyAudio = errors.New("empty audio payload")
	// ErrToneAnalysis is returned when the tone rewrite yields nothing usable.
	ErrToneAnalysis = errors.New("tone analysis produced no output")
	// ErrNoActiveJob is returned when a completion arrives with nothing in flight.
	ErrNoActiveJob = errors.New("no active job")
	// ErrStaleGeneration is returned for results that belong to a reset pipeline.
	ErrStaleGeneration = errors.New("result from a previous generation")
	// ErrPlayerClosed is returned when playing on a closed device.
	ErrPlayerClosed = errors.New("audio player closed")
)

// PayloadError reports an inline payload that is not audio.
type PayloadError struct {
	MIMEType string
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid audio payload: expecting audio/*, got %q", e.MIMEType)
}

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	// KindConfig covers missing credentials and voice mappings.
	KindConfig ErrorKind = iota
	// KindRemote covers tone analysis and synthesis failures.
	KindRemote
	// KindData covers empty text and malformed payloads.
	KindData
	// KindInvariant covers signals that arrive out of order.
	KindInvariant
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindRemote:
		return "remote"
	case KindData:
		return "data"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// PipelineError wraps a failure with the pipeline context it happened in.
type PipelineError struct {
	Err       error
	Kind      ErrorKind
	Component string
	Action    string
	Speaker   string
	Timestamp time.Time
	Context   map[string]interface{}
}

// NewPipelineError creates a PipelineError, deriving the kind from err.
func NewPipelineError(err error, component, action string) *PipelineError {
	return &PipelineError{
		Err:       err,
		Kind:      KindOf(err),
		Component: component,
		Action:    action,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Speaker != "" {
		return fmt.Sprintf("%s %s for %s: %v", e.Component, e.Action, e.Speaker, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Component, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ForSpeaker records the speaker the failure concerns.
func (e *PipelineError) ForSpeaker(speaker string) *PipelineError {
	e.Speaker = speaker
	return e
}

// WithContext adds context information to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Notify reports whether the failure deserves a user-visible notice.
// Empty text and out-of-order signals are only logged.
func (e *PipelineError) Notify() bool {
	switch {
	case e.Kind == KindInvariant:
		return false
	case errors.Is(e.Err, ErrEmptyText):
		return false
	default:
		return true
	}
}

// KindOf classifies an error into the pipeline taxonomy.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	var payload *PayloadError
	switch {
	case err == nil:
		return KindInvariant
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrVoiceDisabled),
		errors.Is(err, ErrVoiceNotFound):
		return KindConfig
	case errors.Is(err, ErrEmptyText),
		errors.Is(err, ErrEmptyAudio),
		errors.As(err, &payload):
		return KindData
	case errors.Is(err, ErrNoActiveJob),
		errors.Is(err, ErrStaleGeneration):
		return KindInvariant
	default:
		return KindRemote
	}
}

// IsRecoverable reports whether the pipeline keeps running after err.
// Every narration failure only costs the affected utterance; a closed
// player is the one condition that needs a restart.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrPlayerClosed)
}
