package tts

import "context"

// ToneRequest carries the style configuration for one tone rewrite.
type ToneRequest struct {
	Prompt              string
	TranslationTemplate string
	// Language is the target language, or "disabled" to keep the original.
	Language string
	Model    string
}

// ToneAnalyzer rewrites narration into style instructions and dialogue lines.
type ToneAnalyzer interface {
	AnalyzeTone(ctx context.Context, text string, req ToneRequest) (string, error)
}

// Synthesizer turns text into an audio payload using a provider voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (AudioSource, error)
}

// VoiceConverter is an optional post-filter applied to synthesized audio.
type VoiceConverter interface {
	Convert(ctx context.Context, src AudioSource, speaker, text string) (AudioSource, error)
}

// VoiceCatalog lists the voices a provider offers.
type VoiceCatalog interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Engine is a synthesis provider that also publishes its voice catalog.
type Engine interface {
	Synthesizer
	VoiceCatalog
	Name() string
}

// Roster reports the speakers of the current chat.
type Roster interface {
	ChatID() string
	// Speakers returns the speakers in scope, starting with DefaultVoice.
	// With unrestricted set it returns every known character instead of
	// the current chat's members.
	Speakers(unrestricted bool) []string
}

// AudioPlayer plays one payload at a time on the output device.
type AudioPlayer interface {
	// Play starts playback and returns a channel that yields exactly once
	// when playback ends: nil on natural completion, an error otherwise.
	// Cancelling ctx stops playback.
	Play(ctx context.Context, src AudioSource, rate float64) (<-chan error, error)
	Stop() error
	IsPlaying() bool
}

// SettingsStore holds the flat narration settings with deferred persistence.
type SettingsStore interface {
	Settings() Settings
	Update(fn func(*Settings)) error
}

// Notifier receives user-facing notices.
type Notifier interface {
	Notify(level NoticeLevel, msg string)
}

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

// String returns the string representation of the level.
func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeWarn:
		return "warn"
	case NoticeError:
		return "error"
	default:
		return "unknown"
	}
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level NoticeLevel, msg string)

// Notify calls f.
func (f NotifierFunc) Notify(level NoticeLevel, msg string) { f(level, msg) }
