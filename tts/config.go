package tts

import (
	"fmt"
	"strings"
	"time"
)

// Config contains the service wiring of the narrator: which collaborators
// to build and where they live. Narration behavior lives in Settings.
type Config struct {
	Engine       string        `yaml:"engine" env:"NARRATOR_ENGINE" envDefault:"mock"`
	// FallbackEngine takes over after MaxFailures consecutive failures of
	// Engine. Empty disables fallback.
	FallbackEngine string        `yaml:"fallback_engine" env:"NARRATOR_FALLBACK_ENGINE"`
	MaxFailures    int           `yaml:"max_failures" env:"NARRATOR_MAX_FAILURES" envDefault:"3"`
	TickInterval time.Duration `yaml:"tick_interval" env:"NARRATOR_TICK_INTERVAL" envDefault:"1s"`
	SettingsPath string        `yaml:"settings_path" env:"NARRATOR_SETTINGS_PATH"`

	Tone      ToneConfig      `yaml:"tone"`
	Google    GoogleConfig    `yaml:"google"`
	Polly     PollyConfig     `yaml:"polly"`
	Mock      MockConfig      `yaml:"mock"`
	Piper     PiperConfig     `yaml:"piper"`
	Converter ConverterConfig `yaml:"converter"`
	Cache     CacheConfig     `yaml:"cache"`
	Player    PlayerConfig    `yaml:"player"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ToneConfig selects and tunes the tone-analysis collaborator.
type ToneConfig struct {
	Provider          string  `yaml:"provider" env:"NARRATOR_TONE_PROVIDER" envDefault:"gemini"`
	Endpoint          string  `yaml:"endpoint" env:"NARRATOR_TONE_ENDPOINT"`
	// Model overrides the tone_model setting. Ollama needs a local model name.
	Model             string  `yaml:"model" env:"NARRATOR_TONE_MODEL"`
	Temperature       float64 `yaml:"temperature" env:"NARRATOR_TONE_TEMPERATURE" envDefault:"0.7"`
	RequestsPerMinute int     `yaml:"requests_per_minute" env:"NARRATOR_TONE_RPM" envDefault:"60"`
}

// GoogleConfig contains Google Cloud Text-to-Speech settings.
type GoogleConfig struct {
	LanguageCode      string `yaml:"language_code" env:"NARRATOR_GOOGLE_LANGUAGE_CODE" envDefault:"en-US"`
	SampleRate        int    `yaml:"sample_rate" env:"NARRATOR_GOOGLE_SAMPLE_RATE" envDefault:"24000"`
	CredentialsFile   string `yaml:"credentials_file" env:"NARRATOR_GOOGLE_CREDENTIALS_FILE"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"NARRATOR_GOOGLE_RPM" envDefault:"100"`
}

// PollyConfig contains AWS Polly settings.
type PollyConfig struct {
	Region            string `yaml:"region" env:"NARRATOR_POLLY_REGION" envDefault:"us-east-1"`
	Engine            string `yaml:"engine" env:"NARRATOR_POLLY_ENGINE" envDefault:"neural"`
	SampleRate        int    `yaml:"sample_rate" env:"NARRATOR_POLLY_SAMPLE_RATE" envDefault:"16000"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"NARRATOR_POLLY_RPM" envDefault:"80"`
}

// MockConfig contains settings for the offline mock engine.
type MockConfig struct {
	GenerationDelay time.Duration `yaml:"generation_delay" env:"NARRATOR_MOCK_GENERATION_DELAY" envDefault:"100ms"`
	WordsPerMinute  int           `yaml:"words_per_minute" env:"NARRATOR_MOCK_WORDS_PER_MINUTE" envDefault:"150"`
}

// PiperConfig locates the local Piper binary and its voice models.
type PiperConfig struct {
	Binary     string `yaml:"binary" env:"NARRATOR_PIPER_BINARY"`
	ModelsDir  string `yaml:"models_dir" env:"NARRATOR_PIPER_MODELS_DIR" envDefault:"~/.local/share/piper"`
	SampleRate int    `yaml:"sample_rate" env:"NARRATOR_PIPER_SAMPLE_RATE" envDefault:"22050"`
}

// ConverterConfig points at an optional voice-conversion service.
type ConverterConfig struct {
	Endpoint string `yaml:"endpoint" env:"NARRATOR_CONVERTER_ENDPOINT"`
}

// CacheConfig controls the synthesized audio cache.
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled" env:"NARRATOR_CACHE_ENABLED" envDefault:"true"`
	Dir              string `yaml:"dir" env:"NARRATOR_CACHE_DIR"`
	MemoryEntries    int    `yaml:"memory_entries" env:"NARRATOR_CACHE_MEMORY_ENTRIES" envDefault:"64"`
	MaxSizeMB        int    `yaml:"max_size" env:"NARRATOR_CACHE_MAX_SIZE" envDefault:"100"`
	CompressionLevel int    `yaml:"compression_level" env:"NARRATOR_CACHE_COMPRESSION" envDefault:"3"`
}

// PlayerConfig selects the output device.
type PlayerConfig struct {
	Backend    string `yaml:"backend" env:"NARRATOR_PLAYER" envDefault:"oto"`
	SampleRate int    `yaml:"sample_rate" env:"NARRATOR_PLAYER_SAMPLE_RATE" envDefault:"24000"`
}

// EventsConfig enables the inbound chat event transports.
type EventsConfig struct {
	WebSocket WebSocketConfig `yaml:"websocket"`
	NATS      NATSConfig      `yaml:"nats"`
}

// WebSocketConfig configures the chat frontend bridge.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled" env:"NARRATOR_WS_ENABLED" envDefault:"true"`
	Addr    string `yaml:"addr" env:"NARRATOR_WS_ADDR" envDefault:"127.0.0.1:7860"`
	Path    string `yaml:"path" env:"NARRATOR_WS_PATH" envDefault:"/events"`
}

// NATSConfig configures the NATS event subscription.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled" env:"NARRATOR_NATS_ENABLED" envDefault:"false"`
	URL     string `yaml:"url" env:"NARRATOR_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" env:"NARRATOR_NATS_SUBJECT" envDefault:"narrator.events.>"`
}

// MetricsConfig exposes pipeline metrics for Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"NARRATOR_METRICS_ENABLED" envDefault:"false"`
	Addr    string `yaml:"addr" env:"NARRATOR_METRICS_ADDR" envDefault:"127.0.0.1:9464"`
}

// Credentials are read from the environment only, never from config files.
type Credentials struct {
	GeminiAPIKey       string `env:"NARRATOR_GEMINI_API_KEY"`
	GoogleAPIKey       string `env:"NARRATOR_GOOGLE_API_KEY"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	NATSToken          string `env:"NARRATOR_NATS_TOKEN"`
}

// UpdateInterval is the default coordinator tick period.
const UpdateInterval = time.Second

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:       "mock",
		MaxFailures:  3,
		TickInterval: UpdateInterval,
		Tone: ToneConfig{
			Provider:          "gemini",
			Temperature:       0.7,
			RequestsPerMinute: 60,
		},
		Google: GoogleConfig{
			LanguageCode:      "en-US",
			SampleRate:        24000,
			RequestsPerMinute: 100,
		},
		Polly: PollyConfig{
			Region:            "us-east-1",
			Engine:            "neural",
			SampleRate:        16000,
			RequestsPerMinute: 80,
		},
		Mock: MockConfig{
			GenerationDelay: 100 * time.Millisecond,
			WordsPerMinute:  150,
		},
		Piper: PiperConfig{
			ModelsDir:  "~/.local/share/piper",
			SampleRate: 22050,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryEntries:    64,
			MaxSizeMB:        100,
			CompressionLevel: 3,
		},
		Player: PlayerConfig{
			Backend:    "oto",
			SampleRate: 24000,
		},
		Events: EventsConfig{
			WebSocket: WebSocketConfig{
				Enabled: true,
				Addr:    "127.0.0.1:7860",
				Path:    "/events",
			},
			NATS: NATSConfig{
				URL:     "nats://127.0.0.1:4222",
				Subject: "narrator.events.>",
			},
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// ValidEngines lists the synthesis engines the narrator can build.
var ValidEngines = []string{"mock", "google", "polly", "piper"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !oneOf(&c.Engine, ValidEngines) {
		return fmt.Errorf("invalid engine '%s': must be one of %v", c.Engine, ValidEngines)
	}

	if c.FallbackEngine != "" {
		if !oneOf(&c.FallbackEngine, ValidEngines) {
			return fmt.Errorf("invalid fallback engine '%s': must be one of %v", c.FallbackEngine, ValidEngines)
		}
		if c.FallbackEngine == c.Engine {
			return fmt.Errorf("fallback engine must differ from engine %q", c.Engine)
		}
		if c.MaxFailures < 1 {
			return fmt.Errorf("max_failures must be positive, got %d", c.MaxFailures)
		}
	}

	if c.TickInterval < 50*time.Millisecond || c.TickInterval > time.Minute {
		return fmt.Errorf("tick_interval must be between 50ms and 1m, got %v", c.TickInterval)
	}

	if err := c.Tone.Validate(); err != nil {
		return fmt.Errorf("tone config: %w", err)
	}

	switch c.Engine {
	case "google":
		if err := c.Google.Validate(); err != nil {
			return fmt.Errorf("google config: %w", err)
		}
	case "polly":
		if err := c.Polly.Validate(); err != nil {
			return fmt.Errorf("polly config: %w", err)
		}
	case "piper":
		if c.Piper.ModelsDir == "" {
			return fmt.Errorf("piper config: models_dir cannot be empty")
		}
	case "mock":
		if c.Mock.WordsPerMinute < 30 || c.Mock.WordsPerMinute > 600 {
			return fmt.Errorf("mock config: words_per_minute must be between 30 and 600, got %d", c.Mock.WordsPerMinute)
		}
	}

	if c.Cache.MaxSizeMB < 1 || c.Cache.MaxSizeMB > 10000 {
		return fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("cache compression_level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	}

	if !oneOf(&c.Player.Backend, []string{"oto", "mock"}) {
		return fmt.Errorf("invalid player backend '%s': must be oto or mock", c.Player.Backend)
	}
	if !validSampleRate(c.Player.SampleRate) {
		return fmt.Errorf("invalid player sample rate %d: must be one of %v", c.Player.SampleRate, sampleRates)
	}

	if c.Events.WebSocket.Enabled && !strings.HasPrefix(c.Events.WebSocket.Path, "/") {
		return fmt.Errorf("websocket path must start with '/', got %q", c.Events.WebSocket.Path)
	}
	if c.Events.NATS.Enabled && c.Events.NATS.Subject == "" {
		return fmt.Errorf("nats subject cannot be empty")
	}

	return nil
}

// Validate checks if the tone configuration is valid.
func (c *ToneConfig) Validate() error {
	if !oneOf(&c.Provider, []string{"gemini", "ollama", "static"}) {
		return fmt.Errorf("invalid tone provider '%s': must be gemini, ollama or static", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", c.Temperature)
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	return nil
}

// Validate checks if the Google configuration is valid.
func (c *GoogleConfig) Validate() error {
	if len(c.LanguageCode) < 2 || len(c.LanguageCode) > 8 {
		return fmt.Errorf("language_code must be 2-8 characters, got %q", c.LanguageCode)
	}
	if !validSampleRate(c.SampleRate) {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.SampleRate, sampleRates)
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	return nil
}

// Validate checks if the Polly configuration is valid.
func (c *PollyConfig) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("aws region required")
	}
	if !oneOf(&c.Engine, []string{"standard", "neural", "long-form", "generative"}) {
		return fmt.Errorf("invalid polly engine '%s'", c.Engine)
	}
	// Polly only emits PCM at 8kHz or 16kHz.
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		return fmt.Errorf("polly sample rate must be 8000 or 16000, got %d", c.SampleRate)
	}
	return nil
}

var sampleRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

func validSampleRate(rate int) bool {
	for _, sr := range sampleRates {
		if rate == sr {
			return true
		}
	}
	return false
}

// oneOf lower-cases *value in place when it matches one of choices.
func oneOf(value *string, choices []string) bool {
	for _, choice := range choices {
		if strings.EqualFold(*value, choice) {
			*value = strings.ToLower(*value)
			return true
		}
	}
	return false
}
