package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// maxConvertedSize bounds the response of the conversion service.
const maxConvertedSize = 64 << 20

// HTTPConverter posts synthesized audio to a voice-conversion service and
// returns whatever audio it answers with. The speaker and text travel as
// query parameters so the service can pick a model per character.
type HTTPConverter struct {
	endpoint string
	client   *http.Client
	log      *log.Logger
}

// NewHTTPConverter creates a converter for endpoint. A nil client gets a
// two minute timeout.
func NewHTTPConverter(endpoint string, client *http.Client, logger *log.Logger) *HTTPConverter {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPConverter{endpoint: endpoint, client: client, log: logger.WithPrefix("converter")}
}

// Convert implements tts.VoiceConverter.
func (c *HTTPConverter) Convert(ctx context.Context, src tts.AudioSource, speaker, text string) (tts.AudioSource, error) {
	data, mimeType, err := audio.Load(ctx, c.client, src)
	if err != nil {
		return tts.AudioSource{}, fmt.Errorf("converter: load audio: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return tts.AudioSource{}, fmt.Errorf("converter: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("speaker", speaker)
	q.Set("text", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return tts.AudioSource{}, err
	}
	req.Header.Set("Content-Type", mimeType)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return tts.AudioSource{}, fmt.Errorf("converter: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConvertedSize))
	if err != nil {
		return tts.AudioSource{}, fmt.Errorf("converter: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return tts.AudioSource{}, fmt.Errorf("converter: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	outType := resp.Header.Get("Content-Type")
	if outType == "" || outType == "application/octet-stream" {
		outType = mimeType
	}
	c.log.Debug("converted audio", "speaker", speaker, "bytes", len(body), "elapsed", time.Since(start))
	return tts.Inline(body, outType), nil
}
