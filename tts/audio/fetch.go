package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/narrator/tts"
)

// maxFetchSize bounds remote payloads.
const maxFetchSize = 64 << 20

var extTypes = map[string]string{
	".wav": "audio/wav",
	".pcm": "audio/pcm",
	".raw": "audio/pcm",
}

// Load returns the encoded bytes and MIME type behind src. References may
// be http(s) URLs, data URIs, file URLs or plain paths.
func Load(ctx context.Context, client *http.Client, src tts.AudioSource) ([]byte, string, error) {
	if err := src.Validate(); err != nil {
		return nil, "", err
	}
	if src.Kind() == tts.SourceInline {
		return src.Data(), src.MIMEType(), nil
	}

	uri := src.URI()
	switch {
	case strings.HasPrefix(uri, "data:"):
		return decodeDataURI(uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return fetchHTTP(ctx, client, uri)
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse %q: %w", uri, err)
		}
		return readFile(u.Path)
	default:
		return readFile(uri)
	}
}

func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		s, err := url.PathUnescape(payload)
		return []byte(s), mimeType, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return data, mimeType, nil
}

func fetchHTTP(ctx context.Context, client *http.Client, uri string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch audio: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = typeByExtension(uri)
	}
	return data, mimeType, nil
}

func readFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	return data, typeByExtension(path), nil
}

func typeByExtension(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
