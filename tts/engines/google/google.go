// Package google synthesizes speech with Google Cloud Text-to-Speech.
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// MaxBytesPerRequest stays under the 5000 byte input limit of the API.
const MaxBytesPerRequest = 4500

// Engine implements tts.Engine on the Cloud Text-to-Speech REST API.
type Engine struct {
	svc          *texttospeech.Service
	languageCode string
	sampleRate   int
	limiter      *rate.Limiter
	log          *log.Logger
}

// New creates an engine. Credentials come from cfg.CredentialsFile, then
// apiKey, then the application default credentials. Extra client options
// are applied last.
func New(ctx context.Context, cfg tts.GoogleConfig, apiKey string, logger *log.Logger, opts ...option.ClientOption) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 100
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}

	var auth []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("google: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google: parse credentials: %w", err)
		}
		auth = append(auth, option.WithCredentials(creds))
	case apiKey != "":
		auth = append(auth, option.WithAPIKey(apiKey))
	}

	svc, err := texttospeech.NewService(ctx, append(auth, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	return &Engine{
		svc:          svc,
		languageCode: cfg.LanguageCode,
		sampleRate:   cfg.SampleRate,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:          logger.WithPrefix("google"),
	}, nil
}

// Name returns "google".
func (e *Engine) Name() string { return "google" }

// Synthesize returns LINEAR16 audio wrapped in a WAV header. Long text is
// split into chunks synthesized in parallel and joined.
func (e *Engine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	chunks := tts.ChunkText(text, MaxBytesPerRequest)
	results := make([][]byte, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			data, err := e.synthesizeChunk(gctx, chunk, voiceID)
			results[i] = data
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return tts.AudioSource{}, err
	}

	if len(results) == 1 {
		return tts.Inline(results[0], "audio/wav"), nil
	}
	joined, err := joinWAV(results)
	if err != nil {
		return tts.AudioSource{}, fmt.Errorf("google: join chunks: %w", err)
	}
	return tts.Inline(joined, "audio/wav"), nil
}

func (e *Engine) synthesizeChunk(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: e.languageFor(voiceID),
			Name:         voiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(e.sampleRate),
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google synthesize: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google: decode audio content: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("google: %w", tts.ErrEmptyAudio)
	}
	e.log.Debug("synthesized", "voice", voiceID, "chars", len(text), "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

// languageFor takes the language from a voice name such as
// "en-US-Wavenet-D", falling back to the configured language.
func (e *Engine) languageFor(voiceID string) string {
	parts := strings.SplitN(voiceID, "-", 3)
	if len(parts) == 3 && len(parts[0]) >= 2 && len(parts[0]) <= 3 {
		return parts[0] + "-" + parts[1]
	}
	return e.languageCode
}

// ListVoices returns the provider catalog sorted by id.
func (e *Engine) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := e.svc.Voices.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google list voices: %w", err)
	}

	voices := make([]tts.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voice := tts.Voice{
			ID:     v.Name,
			Name:   v.Name,
			Gender: strings.ToLower(v.SsmlGender),
		}
		if len(v.LanguageCodes) > 0 {
			voice.Language = v.LanguageCodes[0]
		}
		voices = append(voices, voice)
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

func joinWAV(parts [][]byte) ([]byte, error) {
	var joined audio.PCM
	for i, part := range parts {
		pcm, err := audio.Decode(part, "audio/wav")
		if err != nil {
			return nil, err
		}
		if i == 0 {
			joined = audio.PCM{SampleRate: pcm.SampleRate, Channels: pcm.Channels}
		} else if pcm.SampleRate != joined.SampleRate || pcm.Channels != joined.Channels {
			pcm = audio.Resample(pcm, joined.SampleRate, joined.Channels, 1)
		}
		joined.Data = append(joined.Data, pcm.Data...)
	}
	return audio.EncodeWAV(joined)
}
