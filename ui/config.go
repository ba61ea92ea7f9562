package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	AltScreen bool `env:"NARRATOR_TUI_ALTSCREEN"`
	// NoticeLimit is how many recent notices the panel keeps.
	NoticeLimit int `env:"NARRATOR_TUI_NOTICES" envDefault:"5"`
	// StatusMessageTimeout is how long key acknowledgements stay in the
	// status bar.
	StatusMessageTimeout time.Duration `env:"NARRATOR_TUI_MESSAGE_TIMEOUT" envDefault:"3s"`
}
