package tts

import (
	"strings"

	"github.com/google/uuid"
)

// Reserved voice map values.
const (
	// DefaultVoice is both the key of the default voice map entry and the
	// value meaning "use whatever the default entry says".
	DefaultVoice = "[Default Voice]"
	// DisabledVoice marks a speaker that must never be synthesized.
	DisabledVoice = "disabled"
	// SystemSpeaker is the chat frontend's narrator identity. It is never
	// given its own voice map entry and narrates with the default voice.
	SystemSpeaker = "System"
)

// NarrationJob is one message-sized unit of text awaiting transformation
// and synthesis. Jobs are never mutated once queued; derived jobs are built
// with WithText.
type NarrationJob struct {
	ID            string
	Text          string
	Speaker       string
	ToneProcessed bool
}

// NewNarrationJob creates a job for raw message text.
func NewNarrationJob(text, speaker string) NarrationJob {
	return NarrationJob{
		ID:      uuid.NewString(),
		Text:    text,
		Speaker: speaker,
	}
}

// WithText returns a tone-processed copy of the job carrying text.
func (j NarrationJob) WithText(text string) NarrationJob {
	return NarrationJob{
		ID:            uuid.NewString(),
		Text:          text,
		Speaker:       j.Speaker,
		ToneProcessed: true,
	}
}

// SourceKind tags the variant held by an AudioSource.
type SourceKind int

const (
	// SourceNone is the zero AudioSource.
	SourceNone SourceKind = iota
	// SourceInline carries encoded audio bytes.
	SourceInline
	// SourceReference points at audio by URI.
	SourceReference
)

// String returns the string representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceInline:
		return "inline"
	case SourceReference:
		return "reference"
	default:
		return "none"
	}
}

// AudioSource is a synthesized payload: either inline bytes with a MIME type
// or a reference URI the player resolves itself.
type AudioSource struct {
	kind     SourceKind
	data     []byte
	mimeType string
	uri      string
}

// Inline wraps encoded audio bytes.
func Inline(data []byte, mimeType string) AudioSource {
	return AudioSource{kind: SourceInline, data: data, mimeType: mimeType}
}

// Reference wraps an audio URI.
func Reference(uri string) AudioSource {
	return AudioSource{kind: SourceReference, uri: uri}
}

// Kind reports which variant the source holds.
func (s AudioSource) Kind() SourceKind { return s.kind }

// Data returns the inline bytes, or nil for references.
func (s AudioSource) Data() []byte { return s.data }

// MIMEType returns the MIME type of inline data.
func (s AudioSource) MIMEType() string { return s.mimeType }

// URI returns the reference URI, or "" for inline data.
func (s AudioSource) URI() string { return s.uri }

// Validate checks that the payload is something the player can accept.
func (s AudioSource) Validate() error {
	switch s.kind {
	case SourceInline:
		if len(s.data) == 0 {
			return ErrEmptyAudio
		}
		if !strings.HasPrefix(strings.ToLower(s.mimeType), "audio/") {
			return &PayloadError{MIMEType: s.mimeType}
		}
		return nil
	case SourceReference:
		if strings.TrimSpace(s.uri) == "" {
			return ErrEmptyAudio
		}
		return nil
	default:
		return ErrEmptyAudio
	}
}

// AudioJob is one synthesized payload awaiting playback.
type AudioJob struct {
	Source     AudioSource
	Speaker    string
	Generation uint64
}

// Voice describes a voice offered by the synthesis provider.
type Voice struct {
	ID       string
	Name     string
	Language string
	Gender   string
}

// Message is a chat message as delivered by the chat frontend.
type Message struct {
	ID       int    `json:"id"`
	Speaker  string `json:"name"`
	Text     string `json:"text"`
	IsUser   bool   `json:"is_user,omitempty"`
	IsSystem bool   `json:"is_system,omitempty"`
	SwipeID  int    `json:"swipe_id,omitempty"`
}

// Speakable reports whether the message carries text worth narrating.
func (m Message) Speakable() bool {
	return !m.IsSystem && m.Text != "..." && m.Text != ""
}
