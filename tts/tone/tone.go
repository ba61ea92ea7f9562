package tone

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// New builds the analyzer selected by cfg.
func New(cfg tts.ToneConfig, creds tts.Credentials, logger *log.Logger) (tts.ToneAnalyzer, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGemini(GeminiConfig{
			Endpoint:          cfg.Endpoint,
			APIKey:            creds.GeminiAPIKey,
			Temperature:       cfg.Temperature,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, logger), nil
	case "ollama":
		return NewOllama(cfg.Endpoint, cfg.Model, cfg.Temperature, logger), nil
	case "static":
		return Static{}, nil
	default:
		return nil, fmt.Errorf("unknown tone provider %q", cfg.Provider)
	}
}
