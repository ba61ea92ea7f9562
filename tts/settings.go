package tts

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the flat key-value blob that drives narration. It is owned by
// a SettingsStore and read fresh on every tick.
type Settings struct {
	Enabled             bool              `yaml:"enabled"`
	AutoGeneration      bool              `yaml:"auto_generation"`
	PlaybackRate        float64           `yaml:"playback_rate"`
	SequentialNarration bool              `yaml:"sequential_narration"`
	DirectTone          bool              `yaml:"direct_tone"`
	ToneModel           string            `yaml:"tone_model"`
	TonePrompt          string            `yaml:"tone_prompt"`
	TranslationPrompt   string            `yaml:"translation_prompt"`
	ToneLanguage        string            `yaml:"tone_language"`
	CustomLanguages     []string          `yaml:"custom_languages"`
	PrefixPrompt        string            `yaml:"prefix_prompt"`
	PrefixEveryDialogue bool              `yaml:"prefix_every_dialogue"`
	ShowSpeakerNames    bool              `yaml:"show_speaker_names"`
	UserName            string            `yaml:"user_name"`
	Macros              map[string]string `yaml:"macros"`
	VoiceMap            VoiceMapSetting   `yaml:"voice_map"`
}

// LanguageDisabled turns off tone translation.
const LanguageDisabled = "disabled"

// DefaultToneModel is used when no tone model is configured.
const DefaultToneModel = "gemini-2.5-flash"

// DefaultToneLanguages are always offered as translation targets.
var DefaultToneLanguages = []string{LanguageDisabled, "English", "Korean", "Japanese", "Spanish"}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           false,
		AutoGeneration:    true,
		PlaybackRate:      1,
		ToneModel:         DefaultToneModel,
		TonePrompt:        DefaultTonePrompt,
		TranslationPrompt: DefaultTranslationPrompt,
		ToneLanguage:      LanguageDisabled,
		CustomLanguages:   []string{},
		UserName:          "User",
		Macros:            map[string]string{},
		VoiceMap:          VoiceMapSetting{},
	}
}

// Clone returns a deep copy so callers can read without holding the store lock.
func (s Settings) Clone() Settings {
	c := s
	c.CustomLanguages = slices.Clone(s.CustomLanguages)
	c.Macros = maps.Clone(s.Macros)
	c.VoiceMap = maps.Clone(s.VoiceMap)
	return c
}

// Validate checks if the settings are usable.
func (s *Settings) Validate() error {
	if s.PlaybackRate < 0.5 || s.PlaybackRate > 3.0 {
		return fmt.Errorf("playback_rate must be between 0.5 and 3.0, got %.2f", s.PlaybackRate)
	}
	if !s.DirectTone && strings.TrimSpace(s.TonePrompt) == "" {
		return fmt.Errorf("tone_prompt cannot be empty unless direct_tone is enabled")
	}
	if s.ToneLanguage != LanguageDisabled && !strings.Contains(s.TranslationPrompt, "{{language}}") {
		return fmt.Errorf("translation_prompt must contain {{language}} when tone_language is %q", s.ToneLanguage)
	}
	for speaker, voice := range s.VoiceMap {
		if speaker == DefaultVoice && voice == DefaultVoice {
			return fmt.Errorf("default voice entry cannot point at itself")
		}
	}
	return nil
}

// ToneRequest builds the tone-analysis style configuration.
func (s Settings) ToneRequest() ToneRequest {
	model := s.ToneModel
	if model == "" {
		model = DefaultToneModel
	}
	return ToneRequest{
		Prompt:              s.TonePrompt,
		TranslationTemplate: s.TranslationPrompt,
		Language:            s.ToneLanguage,
		Model:               model,
	}
}

// ToneLanguages returns the default languages followed by custom ones,
// without duplicates.
func (s Settings) ToneLanguages() []string {
	langs := slices.Clone(DefaultToneLanguages)
	for _, lang := range s.CustomLanguages {
		if !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	return langs
}

// SetToneLanguage selects lang, registering it as a custom language first
// when it is not known yet.
func (s *Settings) SetToneLanguage(lang string) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return
	}
	if !slices.Contains(s.ToneLanguages(), lang) {
		s.CustomLanguages = append(s.CustomLanguages, lang)
	}
	s.ToneLanguage = lang
}

// VoiceMapSetting is the persisted speaker to voice mapping. It also
// accepts the legacy "name:voice,name:voice" string form.
type VoiceMapSetting map[string]string

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *VoiceMapSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*v = ParseVoiceMap(value.Value)
		return nil
	}
	m := map[string]string{}
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("voice_map: %w", err)
	}
	*v = m
	return nil
}

// ParseVoiceMap parses the legacy "name:voice,name:voice" format. Pairs
// missing either side are ignored.
func ParseVoiceMap(s string) VoiceMapSetting {
	parsed := VoiceMapSetting{}
	for _, pair := range strings.Split(s, ",") {
		name, voice, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		name, voice = strings.TrimSpace(name), strings.TrimSpace(voice)
		if name == "" || voice == "" {
			continue
		}
		parsed[name] = voice
	}
	return parsed
}
