package tone

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// DefaultOllamaEndpoint is where a local Ollama server listens.
const DefaultOllamaEndpoint = "http://127.0.0.1:11434"

// Ollama rewrites text with a local model served by Ollama.
type Ollama struct {
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
	log         *log.Logger
}

// NewOllama creates an Ollama analyzer. model overrides the model named in
// each request when set, since Gemini model names mean nothing to Ollama.
func NewOllama(endpoint, model string, temperature float64, logger *log.Logger) *Ollama {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ollama{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		temperature: temperature,
		client:      http.DefaultClient,
		log:         logger.WithPrefix("tone"),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaStreamResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// AnalyzeTone streams the rewrite from the model and returns it whole.
func (o *Ollama) AnalyzeTone(ctx context.Context, text string, req tts.ToneRequest) (string, error) {
	model := o.model
	if model == "" {
		model = req.Model
	}
	payload := ollamaRequest{
		Model:   model,
		Prompt:  BuildPrompt(req, text),
		Stream:  true,
		Options: ollamaOptions{Temperature: o.temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk ollamaStreamResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode ollama chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama: %s", chunk.Error)
		}
		accumulated.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	result := strings.TrimSpace(accumulated.String())
	if result == "" {
		return "", fmt.Errorf("ollama: %w", tts.ErrToneAnalysis)
	}
	o.log.Debug("tone analysis", "model", model, "duration", time.Since(start))
	return result, nil
}
