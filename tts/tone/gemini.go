package tone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/tts"
)

// DefaultGeminiEndpoint is the Generative Language API base URL.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Gemini rewrites text with a Gemini model over the REST API.
type Gemini struct {
	endpoint    string
	apiKey      string
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter
	log         *log.Logger
}

// GeminiConfig holds configuration for the Gemini analyzer.
type GeminiConfig struct {
	// Endpoint overrides DefaultGeminiEndpoint.
	Endpoint string
	APIKey   string
	// Temperature defaults to 0.7.
	Temperature float64
	// RequestsPerMinute defaults to 60.
	RequestsPerMinute int
	Client            *http.Client
}

// NewGemini creates a Gemini analyzer. A missing API key is not an error
// here; every call fails fast with tts.ErrMissingCredential instead.
func NewGemini(cfg GeminiConfig, logger *log.Logger) *Gemini {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGeminiEndpoint
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Gemini{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		client:      cfg.Client,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:         logger.WithPrefix("tone"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// AnalyzeTone sends the tone prompt and text to the model and returns the
// raw rewrite.
func (g *Gemini) AnalyzeTone(ctx context.Context, text string, req tts.ToneRequest) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini: %w", tts.ErrMissingCredential)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: BuildPrompt(req, text)}},
		}},
	}
	payload.GenerationConfig.Temperature = g.temperature

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, url.PathEscape(req.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini response: %w", err)
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("gemini returned status %s", resp.Status)
		}
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("gemini returned %s: %s", out.Error.Status, out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini returned status %s", resp.Status)
	}

	var result strings.Builder
	if len(out.Candidates) > 0 {
		for _, part := range out.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
	}
	text = strings.TrimSpace(result.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", tts.ErrToneAnalysis)
	}

	g.log.Debug("tone analysis", "model", req.Model, "language", req.Language, "duration", time.Since(start))
	return text, nil
}
