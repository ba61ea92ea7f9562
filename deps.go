package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/settings"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/dgnsrekt/narrator/tts/engines"
	"github.com/dgnsrekt/narrator/tts/tone"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg   tts.Config
	creds tts.Credentials
	log   *log.Logger

	cache    *cache.Manager
	engine   tts.Engine
	settings *settings.Store
	roster   *tts.ChatRoster
	voices   *tts.VoiceMap
	player   tts.AudioPlayer
	pipeline *tts.Pipeline
	narrator *tts.Narrator

	notices *noticeSet
}

// noticeSet fans notices out to notifiers registered after the pipeline
// was built.
type noticeSet struct {
	mu   sync.RWMutex
	list []tts.Notifier
}

func (s *noticeSet) Add(n tts.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, n)
}

func (s *noticeSet) Notify(level tts.NoticeLevel, msg string) {
	s.mu.RLock()
	n := tts.MultiNotifier(s.list...)
	s.mu.RUnlock()
	n.Notify(level, msg)
}

// logNotifier writes notices to logger.
func logNotifier(logger *log.Logger) tts.Notifier {
	return tts.NotifierFunc(func(level tts.NoticeLevel, msg string) {
		switch level {
		case tts.NoticeError:
			logger.Error(msg)
		case tts.NoticeWarn:
			logger.Warn(msg)
		default:
			logger.Info(msg)
		}
	})
}

func settingsPath(cfg tts.Config) (string, error) {
	if cfg.SettingsPath != "" {
		return homedir.Expand(cfg.SettingsPath)
	}
	return gap.NewScope(gap.User, "narrator").DataPath(settings.FileName)
}

func cacheConfig(cfg tts.CacheConfig) (cache.Config, error) {
	c := cache.DefaultConfig()
	if cfg.Dir != "" {
		dir, err := homedir.Expand(cfg.Dir)
		if err != nil {
			return cache.Config{}, err
		}
		c.DiskPath = dir
	}
	c.MemoryEntries = cfg.MemoryEntries
	c.DiskCapacity = int64(cfg.MaxSizeMB) << 20
	c.CompressionLevel = cfg.CompressionLevel
	return c, nil
}

// newApp builds every collaborator. Close releases them.
func newApp(ctx context.Context, cfg tts.Config, creds tts.Credentials, logger *log.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, creds: creds, log: logger, notices: &noticeSet{}}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	path, err := settingsPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to locate settings: %w", err)
	}
	a.settings, err = settings.Open(path, settings.DefaultSaveDelay, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		cc, err := cacheConfig(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("invalid cache dir: %w", err)
		}
		a.cache, err = cache.NewManager(cc, logger)
		if err != nil {
			return nil, err
		}
	}

	a.engine, err = engines.New(ctx, cfg, creds, a.cache, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s engine: %w", cfg.Engine, err)
	}

	analyzer, err := tone.New(cfg.Tone, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to create tone analyzer: %w", err)
	}

	a.player, err = audio.New(cfg.Player, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}

	a.roster = tts.NewChatRoster()
	a.voices = tts.NewVoiceMap(a.settings, a.roster, a.engine, logger)
	a.settings.OnChange(func(s tts.Settings) { a.voices.Sync(s.VoiceMap) })

	a.pipeline = tts.NewPipeline(tts.PipelineOptions{
		Store:       a.settings,
		Voices:      a.voices,
		Analyzer:    analyzer,
		Synthesizer: a.engine,
		Converter:   engines.NewConverter(cfg.Converter, logger),
		Player:      a.player,
		Notifier:    a.notices,
		Logger:      logger,
		Interval:    cfg.TickInterval,
	})
	a.narrator = tts.NewNarrator(a.pipeline, a.roster, a.voices, a.settings, a.notices, logger)

	ok = true
	return a, nil
}

// Close stops the pipeline and flushes settings and cache.
func (a *app) Close() {
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if c, ok := a.player.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Debug("failed to close audio device", "err", err)
		}
	}
	if a.settings != nil {
		if err := a.settings.Close(); err != nil {
			a.log.Error("failed to save settings", "err", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Debug("failed to close cache", "err", err)
		}
	}
}
