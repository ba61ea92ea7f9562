// Package settings persists the runtime narration settings as a YAML file.
// Writes are debounced and edits made to the file by hand are picked up
// while the store is watching.
package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrator/tts"
)

// DefaultSaveDelay is how long the store waits after the last update
// before writing the file.
const DefaultSaveDelay = time.Second

// FileName is the settings file created in the config directory.
const FileName = "settings.yml"

// ErrClosed is returned by updates after Close.
var ErrClosed = errors.New("settings store closed")

// Store implements tts.SettingsStore on top of a YAML file.
type Store struct {
	path  string
	delay time.Duration
	log   *log.Logger

	mu        sync.RWMutex
	settings  tts.Settings
	timer     *time.Timer
	dirty     bool
	lastWrite []byte
	closed    bool

	observersMu sync.RWMutex
	observers   []func(tts.Settings)
}

// Open loads the settings at path. A missing file yields the defaults; the
// file is only created once something changes.
func Open(path string, delay time.Duration, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	path = filepath.Clean(path)

	s := &Store{
		path:     path,
		delay:    delay,
		log:      logger.WithPrefix("settings"),
		settings: tts.DefaultSettings(),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Debug("no settings file, using defaults", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.settings = settings
	s.lastWrite = data
	return s, nil
}

func decode(data []byte) (tts.Settings, error) {
	settings := tts.DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return tts.Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.VoiceMap == nil {
		settings.VoiceMap = tts.VoiceMapSetting{}
	}
	if settings.Macros == nil {
		settings.Macros = map[string]string{}
	}
	if err := settings.Validate(); err != nil {
		return tts.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Settings returns a copy of the current settings.
func (s *Store) Settings() tts.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Update applies fn to a copy of the settings and commits it if the result
// validates. The file is written once updates stop for the save delay.
func (s *Store) Update(fn func(*tts.Settings)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	next := s.settings.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.dirty = true

	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.save)
	} else {
		s.timer.Reset(s.delay)
	}
	s.mu.Unlock()

	s.notify(next.Clone())
	return nil
}

// OnChange registers fn to run after every committed update or reload.
func (s *Store) OnChange(fn func(tts.Settings)) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(settings tts.Settings) {
	s.observersMu.RLock()
	defer s.observersMu.RUnlock()
	for _, fn := range s.observers {
		fn(settings)
	}
}

func (s *Store) save() {
	if err := s.Flush(); err != nil {
		s.log.Error("failed to save settings", "path", s.path, "err", err)
	}
}

// Flush writes pending changes immediately.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	data, err := yaml.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := writeFile(s.path, data); err != nil {
		return err
	}
	s.dirty = false
	s.lastWrite = data
	s.log.Debug("settings saved", "path", s.path)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Reload re-reads the file. Content identical to the last write is
// ignored, and an invalid file leaves the current settings in place.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastWrite) {
		s.mu.Unlock()
		return nil
	}
	settings, err := decode(data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = settings
	s.lastWrite = data
	s.dirty = false
	s.mu.Unlock()

	s.log.Info("settings reloaded", "path", s.path)
	s.notify(settings.Clone())
	return nil
}

// Watch reloads the settings whenever the file is written by someone else,
// until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.log.Debug("watching settings", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			if err := s.Reload(); err != nil {
				s.log.Warn("ignoring settings change", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Debug("fsnotify error", "dir", dir, "err", err)
		}
	}
}

// Close flushes pending changes and rejects further updates.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.Flush()
}
