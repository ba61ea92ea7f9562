package audio

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// New builds the player selected by cfg.
func New(cfg tts.PlayerConfig, logger *log.Logger) (tts.AudioPlayer, error) {
	switch cfg.Backend {
	case "mock":
		return NewMockPlayer(), nil
	case "oto", "":
		player, err := NewOtoPlayer(cfg.SampleRate, logger)
		if err != nil {
			return nil, err
		}
		return player, nil
	default:
		return nil, fmt.Errorf("unknown player backend %q", cfg.Backend)
	}
}
