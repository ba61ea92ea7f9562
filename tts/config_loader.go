package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the service configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("engine") {
		cfg.Engine = viper.GetString("engine")
	}
	if viper.IsSet("fallback_engine") {
		cfg.FallbackEngine = viper.GetString("fallback_engine")
	}
	if viper.IsSet("max_failures") {
		cfg.MaxFailures = viper.GetInt("max_failures")
	}
	if viper.IsSet("tick_interval") {
		if d, err := time.ParseDuration(viper.GetString("tick_interval")); err == nil {
			cfg.TickInterval = d
		}
	}
	if viper.IsSet("settings_path") {
		cfg.SettingsPath = viper.GetString("settings_path")
	}

	cfg.Tone = loadToneConfig(cfg.Tone)
	cfg.Google = loadGoogleConfig(cfg.Google)
	cfg.Polly = loadPollyConfig(cfg.Polly)
	cfg.Mock = loadMockConfig(cfg.Mock)

	if viper.IsSet("piper.binary") {
		cfg.Piper.Binary = viper.GetString("piper.binary")
	}
	if viper.IsSet("piper.models_dir") {
		cfg.Piper.ModelsDir = viper.GetString("piper.models_dir")
	}
	if viper.IsSet("piper.sample_rate") {
		cfg.Piper.SampleRate = viper.GetInt("piper.sample_rate")
	}

	if viper.IsSet("converter.endpoint") {
		cfg.Converter.Endpoint = viper.GetString("converter.endpoint")
	}

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.dir") {
		cfg.Cache.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.memory_entries") {
		cfg.Cache.MemoryEntries = viper.GetInt("cache.memory_entries")
	}
	if viper.IsSet("cache.max_size") {
		cfg.Cache.MaxSizeMB = viper.GetInt("cache.max_size")
	}
	if viper.IsSet("cache.compression_level") {
		cfg.Cache.CompressionLevel = viper.GetInt("cache.compression_level")
	}

	if viper.IsSet("player.backend") {
		cfg.Player.Backend = viper.GetString("player.backend")
	}
	if viper.IsSet("player.sample_rate") {
		cfg.Player.SampleRate = viper.GetInt("player.sample_rate")
	}

	if viper.IsSet("events.websocket.enabled") {
		cfg.Events.WebSocket.Enabled = viper.GetBool("events.websocket.enabled")
	}
	if viper.IsSet("events.websocket.addr") {
		cfg.Events.WebSocket.Addr = viper.GetString("events.websocket.addr")
	}
	if viper.IsSet("events.websocket.path") {
		cfg.Events.WebSocket.Path = viper.GetString("events.websocket.path")
	}
	if viper.IsSet("events.nats.enabled") {
		cfg.Events.NATS.Enabled = viper.GetBool("events.nats.enabled")
	}
	if viper.IsSet("events.nats.url") {
		cfg.Events.NATS.URL = viper.GetString("events.nats.url")
	}
	if viper.IsSet("events.nats.subject") {
		cfg.Events.NATS.Subject = viper.GetString("events.nats.subject")
	}

	if viper.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = viper.GetBool("metrics.enabled")
	}
	if viper.IsSet("metrics.addr") {
		cfg.Metrics.Addr = viper.GetString("metrics.addr")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid narrator configuration: %w", err)
	}

	return cfg, nil
}

func loadToneConfig(cfg ToneConfig) ToneConfig {
	if viper.IsSet("tone.provider") {
		cfg.Provider = viper.GetString("tone.provider")
	}
	if viper.IsSet("tone.endpoint") {
		cfg.Endpoint = viper.GetString("tone.endpoint")
	}
	if viper.IsSet("tone.model") {
		cfg.Model = viper.GetString("tone.model")
	}
	if viper.IsSet("tone.temperature") {
		cfg.Temperature = viper.GetFloat64("tone.temperature")
	}
	if viper.IsSet("tone.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("tone.requests_per_minute")
	}
	return cfg
}

func loadGoogleConfig(cfg GoogleConfig) GoogleConfig {
	if viper.IsSet("google.language_code") {
		cfg.LanguageCode = viper.GetString("google.language_code")
	}
	if viper.IsSet("google.sample_rate") {
		cfg.SampleRate = viper.GetInt("google.sample_rate")
	}
	if viper.IsSet("google.credentials_file") {
		cfg.CredentialsFile = viper.GetString("google.credentials_file")
	}
	if viper.IsSet("google.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("google.requests_per_minute")
	}
	return cfg
}

func loadPollyConfig(cfg PollyConfig) PollyConfig {
	if viper.IsSet("polly.region") {
		cfg.Region = viper.GetString("polly.region")
	}
	if viper.IsSet("polly.engine") {
		cfg.Engine = viper.GetString("polly.engine")
	}
	if viper.IsSet("polly.sample_rate") {
		cfg.SampleRate = viper.GetInt("polly.sample_rate")
	}
	if viper.IsSet("polly.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("polly.requests_per_minute")
	}
	return cfg
}

func loadMockConfig(cfg MockConfig) MockConfig {
	if viper.IsSet("mock.generation_delay") {
		if d, err := time.ParseDuration(viper.GetString("mock.generation_delay")); err == nil {
			cfg.GenerationDelay = d
		}
	}
	if viper.IsSet("mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("mock.words_per_minute")
	}
	return cfg
}

// SetDefaults sets default values in Viper for the service configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("engine", defaults.Engine)
	viper.SetDefault("max_failures", defaults.MaxFailures)
	viper.SetDefault("tick_interval", defaults.TickInterval.String())

	viper.SetDefault("tone.provider", defaults.Tone.Provider)
	viper.SetDefault("tone.temperature", defaults.Tone.Temperature)
	viper.SetDefault("tone.requests_per_minute", defaults.Tone.RequestsPerMinute)

	viper.SetDefault("google.language_code", defaults.Google.LanguageCode)
	viper.SetDefault("google.sample_rate", defaults.Google.SampleRate)
	viper.SetDefault("google.requests_per_minute", defaults.Google.RequestsPerMinute)

	viper.SetDefault("polly.region", defaults.Polly.Region)
	viper.SetDefault("polly.engine", defaults.Polly.Engine)
	viper.SetDefault("polly.sample_rate", defaults.Polly.SampleRate)
	viper.SetDefault("polly.requests_per_minute", defaults.Polly.RequestsPerMinute)

	viper.SetDefault("mock.generation_delay", defaults.Mock.GenerationDelay.String())
	viper.SetDefault("mock.words_per_minute", defaults.Mock.WordsPerMinute)

	viper.SetDefault("piper.models_dir", defaults.Piper.ModelsDir)
	viper.SetDefault("piper.sample_rate", defaults.Piper.SampleRate)

	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.memory_entries", defaults.Cache.MemoryEntries)
	viper.SetDefault("cache.max_size", defaults.Cache.MaxSizeMB)
	viper.SetDefault("cache.compression_level", defaults.Cache.CompressionLevel)

	viper.SetDefault("player.backend", defaults.Player.Backend)
	viper.SetDefault("player.sample_rate", defaults.Player.SampleRate)

	viper.SetDefault("events.websocket.enabled", defaults.Events.WebSocket.Enabled)
	viper.SetDefault("events.websocket.addr", defaults.Events.WebSocket.Addr)
	viper.SetDefault("events.websocket.path", defaults.Events.WebSocket.Path)
	viper.SetDefault("events.nats.enabled", defaults.Events.NATS.Enabled)
	viper.SetDefault("events.nats.url", defaults.Events.NATS.URL)
	viper.SetDefault("events.nats.subject", defaults.Events.NATS.Subject)

	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}
