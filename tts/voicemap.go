package tts

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Resolution is the outcome of a voice lookup.
type Resolution int

const (
	// Resolved means a concrete provider voice was found.
	Resolved Resolution = iota
	// Disabled means the speaker must not be narrated.
	Disabled
	// NotFound means the speaker has no usable mapping.
	NotFound
)

// String returns the string representation of the resolution.
func (r Resolution) String() string {
	switch r {
	case Resolved:
		return "resolved"
	case Disabled:
		return "disabled"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error matching the resolution, or nil.
func (r Resolution) Err() error {
	switch r {
	case Disabled:
		return ErrVoiceDisabled
	case NotFound:
		return ErrVoiceNotFound
	default:
		return nil
	}
}

// VoiceMap maps speakers to provider voices. It is rebuilt from the roster
// whenever the chat changes and persisted through the settings store.
type VoiceMap struct {
	mu      sync.RWMutex
	entries map[string]string

	store   SettingsStore
	roster  Roster
	catalog VoiceCatalog
	log     *log.Logger

	group   singleflight.Group
	chatGen atomic.Uint64
}

// NewVoiceMap creates a voice map seeded from the saved settings.
func NewVoiceMap(store SettingsStore, roster Roster, catalog VoiceCatalog, logger *log.Logger) *VoiceMap {
	if logger == nil {
		logger = log.Default()
	}
	return &VoiceMap{
		entries: maps.Clone(store.Settings().VoiceMap),
		store:   store,
		roster:  roster,
		catalog: catalog,
		log:     logger.WithPrefix("voicemap"),
	}
}

// Resolve looks up the voice for speaker. A stored DefaultVoice resolves
// through the default entry, and the System speaker always does.
func (m *VoiceMap) Resolve(speaker string) (string, Resolution) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := speaker
	if speaker == SystemSpeaker {
		key = DefaultVoice
	}
	voice, ok := m.entries[key]
	if !ok {
		return "", NotFound
	}
	if voice == DefaultVoice {
		if voice, ok = m.entries[DefaultVoice]; !ok {
			return "", NotFound
		}
	}
	switch voice {
	case DisabledVoice:
		return "", Disabled
	case "", DefaultVoice:
		return "", NotFound
	}
	return voice, Resolved
}

// Entries returns a copy of the current mapping.
func (m *VoiceMap) Entries() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}

// Speakers returns the mapped speakers in sorted order.
func (m *VoiceMap) Speakers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.entries))
}

// Set maps speaker to voice and persists the change.
func (m *VoiceMap) Set(speaker, voice string) error {
	if speaker == "" || voice == "" {
		return fmt.Errorf("speaker and voice are required")
	}
	if speaker == DefaultVoice && voice == DefaultVoice {
		return fmt.Errorf("default voice entry cannot point at itself")
	}

	m.mu.Lock()
	m.entries[speaker] = voice
	m.mu.Unlock()

	return m.store.Update(func(s *Settings) {
		if s.VoiceMap == nil {
			s.VoiceMap = VoiceMapSetting{}
		}
		s.VoiceMap[speaker] = voice
	})
}

// Sync applies voice assignments edited outside the process. Only
// speakers already in scope are updated; an empty map adopts saved whole.
func (m *VoiceMap) Sync(saved VoiceMapSetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		m.entries = maps.Clone(saved)
		return
	}
	for speaker := range m.entries {
		if voice, ok := saved[speaker]; ok {
			m.entries[speaker] = voice
		}
	}
}

// ChatChanged marks the roster as changed. An Init running concurrently
// will start over once it finishes.
func (m *VoiceMap) ChatChanged() {
	m.chatGen.Add(1)
}

// Init rebuilds the map from the roster. Concurrent calls with the same
// scope share one rebuild. If the chat changes while a rebuild runs, it is
// repeated once.
func (m *VoiceMap) Init(ctx context.Context, unrestricted bool) error {
	key := "restricted"
	if unrestricted {
		key = "unrestricted"
	}
	_, err, _ := m.group.Do(key, func() (interface{}, error) {
		for attempt := 0; attempt < 2; attempt++ {
			gen := m.chatGen.Load()
			if err := m.rebuild(ctx, unrestricted); err != nil {
				return nil, err
			}
			if m.chatGen.Load() == gen {
				return nil, nil
			}
			m.log.Debug("chat changed during voice map init, rebuilding")
		}
		return nil, nil
	})
	return err
}

func (m *VoiceMap) rebuild(ctx context.Context, unrestricted bool) error {
	settings := m.store.Settings()
	if !settings.Enabled {
		return nil
	}

	voices, err := m.catalog.ListVoices(ctx)
	if err != nil {
		return NewPipelineError(err, "voicemap", "list voices")
	}
	known := make(map[string]bool, len(voices))
	for _, v := range voices {
		known[v.ID] = true
	}

	saved := settings.VoiceMap
	rebuilt := make(map[string]string)
	for _, speaker := range m.roster.Speakers(unrestricted) {
		if speaker == SystemSpeaker || speaker == "" {
			continue
		}
		voice, ok := saved[speaker]
		switch {
		case ok:
			if voice != DefaultVoice && voice != DisabledVoice && !known[voice] {
				m.log.Warn("mapped voice not offered by provider", "speaker", speaker, "voice", voice)
			}
		case speaker == DefaultVoice:
			voice = DisabledVoice
		default:
			voice = DefaultVoice
		}
		rebuilt[speaker] = voice
	}
	if len(rebuilt) == 0 {
		return nil
	}

	m.mu.Lock()
	m.entries = rebuilt
	m.mu.Unlock()
	m.log.Debug("voice map updated", "entries", len(rebuilt), "unrestricted", unrestricted)

	return m.store.Update(func(s *Settings) {
		if s.VoiceMap == nil {
			s.VoiceMap = VoiceMapSetting{}
		}
		for speaker, voice := range rebuilt {
			s.VoiceMap[speaker] = voice
		}
	})
}
