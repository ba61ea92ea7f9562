package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/dgnsrekt/narrator/tts"
)

// setupLog sends log output to the file named by NARRATOR_LOG, or to
// stderr. A value of "1" picks the default log path.
func setupLog() (func() error, error) {
	target := os.Getenv("NARRATOR_LOG")
	if target == "" {
		log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true}))
		return func() error { return nil }, nil
	}

	if target == "1" {
		var err error
		target, err = gap.NewScope(gap.User, "narrator").LogPath("narrator.log")
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}))
	return f.Close, nil
}

// loadCredentials reads provider secrets from the environment.
func loadCredentials() (tts.Credentials, error) {
	return env.ParseAs[tts.Credentials]()
}
