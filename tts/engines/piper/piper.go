// Package piper runs the local Piper speech synthesizer.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/narrator/tts"
)

// Engine uses a fresh piper process for each request. Voices are the
// .onnx models found in the models directory.
type Engine struct {
	binary     string
	modelsDir  string
	sampleRate int
	log        *log.Logger
}

// modelConfig is the part of a model's .onnx.json we read.
type modelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
}

// New creates a Piper engine. An empty binary is looked up in the usual
// install locations.
func New(cfg tts.PiperConfig, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	binary := cfg.Binary
	if binary == "" {
		binary = findPiperBinary()
	}
	if binary == "" {
		return nil, fmt.Errorf("piper binary not found")
	}
	dir, err := homedir.Expand(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("piper models dir: %w", err)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	return &Engine{
		binary:     binary,
		modelsDir:  dir,
		sampleRate: cfg.SampleRate,
		log:        logger.WithPrefix("piper"),
	}, nil
}

// Name returns "piper".
func (e *Engine) Name() string { return "piper" }

// Synthesize converts text to raw PCM using a fresh Piper process.
func (e *Engine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	model := e.modelPath(voiceID)
	rate := e.sampleRate
	if cfg, err := readModelConfig(model); err == nil && cfg.Audio.SampleRate > 0 {
		rate = cfg.Audio.SampleRate
	}

	args := []string{"--model", model, "--output-raw"}
	e.log.Debug("running", "binary", e.binary, "args", args)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(strings.ReplaceAll(text, "\n", " ") + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return tts.AudioSource{}, ctx.Err()
		}
		return tts.AudioSource{}, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if len(output) < 2 {
		return tts.AudioSource{}, fmt.Errorf("piper: %w", tts.ErrEmptyAudio)
	}
	if len(output)%2 != 0 {
		output = output[:len(output)-1]
	}

	e.log.Debug("generated audio", "bytes", len(output), "elapsed", time.Since(start))
	return tts.Inline(output, fmt.Sprintf("audio/pcm;rate=%d", rate)), nil
}

// modelPath resolves a voice id to a model file. Ids that already name a
// file are used as is.
func (e *Engine) modelPath(voiceID string) string {
	if strings.HasSuffix(voiceID, ".onnx") || filepath.IsAbs(voiceID) {
		return voiceID
	}
	return filepath.Join(e.modelsDir, voiceID+".onnx")
}

// ListVoices returns one voice per model in the models directory.
func (e *Engine) ListVoices(context.Context) ([]tts.Voice, error) {
	models, err := filepath.Glob(filepath.Join(e.modelsDir, "*.onnx"))
	if err != nil {
		return nil, err
	}
	voices := make([]tts.Voice, 0, len(models))
	for _, model := range models {
		id := strings.TrimSuffix(filepath.Base(model), ".onnx")
		voice := tts.Voice{ID: id, Name: id}
		if cfg, err := readModelConfig(model); err == nil {
			voice.Language = strings.ReplaceAll(cfg.Language.Code, "_", "-")
		}
		voices = append(voices, voice)
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

func readModelConfig(model string) (modelConfig, error) {
	var cfg modelConfig
	data, err := os.ReadFile(model + ".json")
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(data, &cfg)
	return cfg, err
}

func findPiperBinary() string {
	// Check common locations
	locations := []string{
		"piper",
		"/usr/local/bin/piper",
		"/usr/bin/piper",
	}

	// Add user home directory locations
	if home, err := homedir.Dir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".local", "bin", "piper"),
			filepath.Join(home, "bin", "piper"),
		)
	}

	for _, loc := range locations {
		if path, err := exec.LookPath(loc); err == nil {
			return path
		}
	}
	return ""
}
