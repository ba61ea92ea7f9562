package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# synthesis engine: mock, google, polly or piper
engine: "mock"
# engine to use after max_failures consecutive failures (empty disables)
fallback_engine: ""
max_failures: 3
# coordinator tick period
tick_interval: "1s"
# narration settings file (default: user data dir)
# settings_path: "~/.local/share/narrator/settings.yml"

# tone rewriting: gemini, ollama or static
tone:
  provider: "gemini"
  # endpoint: "http://127.0.0.1:11434"
  # model: "llama3.1"
  temperature: 0.7
  requests_per_minute: 60

google:
  language_code: "en-US"
  sample_rate: 24000
  # credentials_file: "~/.config/gcloud/narrator.json"
  requests_per_minute: 100

polly:
  region: "us-east-1"
  engine: "neural"
  sample_rate: 16000
  requests_per_minute: 80

piper:
  # binary: "/usr/local/bin/piper"
  models_dir: "~/.local/share/piper"
  sample_rate: 22050

mock:
  generation_delay: "100ms"
  words_per_minute: 150

# optional voice conversion service
converter:
  endpoint: ""

cache:
  enabled: true
  # dir: "~/.cache/narrator/audio"
  memory_entries: 64
  max_size: 100
  compression_level: 3

player:
  backend: "oto"
  sample_rate: 24000

events:
  websocket:
    enabled: true
    addr: "127.0.0.1:7860"
    path: "/events"
  nats:
    enabled: false
    url: "nats://127.0.0.1:4222"
    subject: "narrator.events.>"

metrics:
  enabled: false
  addr: "127.0.0.1:9464"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/narrator.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
