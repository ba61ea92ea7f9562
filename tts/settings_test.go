package tts_test

import (
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrator/tts"
)

func TestDefaultSettings(t *testing.T) {
	s := tts.DefaultSettings()

	if s.Enabled {
		t.Error("Narration should start disabled")
	}
	if !s.AutoGeneration || s.PlaybackRate != 1 {
		t.Errorf("Unexpected defaults: %+v", s)
	}
	if s.ToneLanguage != tts.LanguageDisabled || s.ToneModel != tts.DefaultToneModel {
		t.Errorf("Unexpected tone defaults: %q %q", s.ToneLanguage, s.ToneModel)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*tts.Settings)
		wantErr string
	}{
		{"rate too low", func(s *tts.Settings) { s.PlaybackRate = 0.2 }, "playback_rate"},
		{"rate too high", func(s *tts.Settings) { s.PlaybackRate = 4 }, "playback_rate"},
		{"empty tone prompt", func(s *tts.Settings) { s.TonePrompt = "  " }, "tone_prompt"},
		{"empty tone prompt direct", func(s *tts.Settings) { s.TonePrompt = ""; s.DirectTone = true }, ""},
		{"translation without placeholder", func(s *tts.Settings) {
			s.ToneLanguage = "Korean"
			s.TranslationPrompt = "Translate please"
		}, "{{language}}"},
		{"self referencing default", func(s *tts.Settings) {
			s.VoiceMap = tts.VoiceMapSetting{tts.DefaultVoice: tts.DefaultVoice}
		}, "default voice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tts.DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsClone(t *testing.T) {
	s := tts.DefaultSettings()
	s.VoiceMap["Alice"] = "v1"
	s.Macros["place"] = "Paris"

	c := s.Clone()
	c.VoiceMap["Alice"] = "v2"
	c.Macros["place"] = "Rome"
	c.CustomLanguages = append(c.CustomLanguages, "Klingon")

	if s.VoiceMap["Alice"] != "v1" || s.Macros["place"] != "Paris" || len(s.CustomLanguages) != 0 {
		t.Error("Clone shares state with the original")
	}
}

func TestToneLanguages(t *testing.T) {
	s := tts.DefaultSettings()
	s.SetToneLanguage("Korean")
	s.SetToneLanguage("  ")
	if s.ToneLanguage != "Korean" || len(s.CustomLanguages) != 0 {
		t.Errorf("Known language should not be registered: %+v", s.CustomLanguages)
	}

	s.SetToneLanguage(" Klingon ")
	s.SetToneLanguage("Klingon")
	if s.ToneLanguage != "Klingon" {
		t.Errorf("ToneLanguage = %q", s.ToneLanguage)
	}
	langs := s.ToneLanguages()
	if !slices.Equal(langs[:len(tts.DefaultToneLanguages)], tts.DefaultToneLanguages) {
		t.Errorf("Defaults should come first: %v", langs)
	}
	if langs[len(langs)-1] != "Klingon" || len(langs) != len(tts.DefaultToneLanguages)+1 {
		t.Errorf("Custom language not appended once: %v", langs)
	}
}

func TestToneRequest(t *testing.T) {
	s := tts.DefaultSettings()
	s.ToneModel = ""
	s.ToneLanguage = "Japanese"

	req := s.ToneRequest()
	if req.Model != tts.DefaultToneModel || req.Language != "Japanese" || req.Prompt != tts.DefaultTonePrompt {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestParseVoiceMap(t *testing.T) {
	got := tts.ParseVoiceMap("Alice:en-US-Wavenet-A, Bob : v2,broken,:nobody,Carol:,[Default Voice]:v3")
	want := tts.VoiceMapSetting{
		"Alice":          "en-US-Wavenet-A",
		"Bob":            "v2",
		tts.DefaultVoice: "v3",
	}
	if len(got) != len(want) {
		t.Fatalf("ParseVoiceMap = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%q = %q, want %q", k, got[k], v)
		}
	}
}

func TestVoiceMapSettingYAML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"mapping", "voice_map:\n  Alice: v1\n  Bob: v2\n"},
		{"legacy string", "voice_map: \"Alice:v1,Bob:v2\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s tts.Settings
			if err := yaml.Unmarshal([]byte(tt.doc), &s); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if s.VoiceMap["Alice"] != "v1" || s.VoiceMap["Bob"] != "v2" {
				t.Errorf("VoiceMap = %v", s.VoiceMap)
			}
		})
	}
}
