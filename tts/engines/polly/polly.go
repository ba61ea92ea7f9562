// Package polly synthesizes speech with Amazon Polly.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/tts"
)

// MaxCharactersPerRequest is the maximum number of characters sent to Polly
// in one request.
const MaxCharactersPerRequest = 1500

// Engine implements tts.Engine on Amazon Polly. Audio is requested as raw
// PCM, which Polly always produces as signed 16-bit little-endian mono.
type Engine struct {
	svc        *polly.Polly
	engine     string
	sampleRate int
	limiter    *rate.Limiter
	log        *log.Logger
}

// NewSession returns a session with the given credentials. Without keys the
// default AWS credential chain is used.
func NewSession(accessKeyID, secretAccessKey, region string, cfgs ...*aws.Config) (*session.Session, error) {
	if region == "" {
		return nil, errors.New("aws region required")
	}

	cfg := &aws.Config{Region: aws.String(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}
	return session.NewSession(append([]*aws.Config{cfg}, cfgs...)...)
}

// New creates an engine from cfg and the AWS keys in creds. Extra configs
// are merged into the session, which tests use to point it at a fake
// endpoint.
func New(cfg tts.PollyConfig, creds tts.Credentials, logger *log.Logger, cfgs ...*aws.Config) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 80
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Engine == "" {
		cfg.Engine = polly.EngineNeural
	}

	sess, err := NewSession(creds.AWSAccessKeyID, creds.AWSSecretAccessKey, cfg.Region, cfgs...)
	if err != nil {
		return nil, fmt.Errorf("polly: %w", err)
	}

	return &Engine{
		svc:        polly.New(sess),
		engine:     cfg.Engine,
		sampleRate: cfg.SampleRate,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:        logger.WithPrefix("polly"),
	}, nil
}

// Name returns "polly".
func (e *Engine) Name() string { return "polly" }

// Synthesize encodes text to speech. Chunks of long text are synthesized in
// parallel and concatenated.
func (e *Engine) Synthesize(ctx context.Context, text, voiceID string) (tts.AudioSource, error) {
	chunks := tts.ChunkText(text, MaxCharactersPerRequest)
	results := make([][]byte, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		e.log.Debug("synthesizing chunk", "index", i, "len", len(chunk))
		g.Go(func() error {
			data, err := e.synthesizeChunk(gctx, chunk, voiceID)
			results[i] = data
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return tts.AudioSource{}, err
	}

	var data []byte
	for _, r := range results {
		data = append(data, r...)
	}
	if len(data) == 0 {
		return tts.AudioSource{}, fmt.Errorf("polly: %w", tts.ErrEmptyAudio)
	}
	return tts.Inline(data, fmt.Sprintf("audio/pcm;rate=%d", e.sampleRate)), nil
}

func (e *Engine) synthesizeChunk(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.svc.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Engine:       aws.String(e.engine),
		OutputFormat: aws.String(polly.OutputFormatPcm),
		SampleRate:   aws.String(strconv.Itoa(e.sampleRate)),
		Text:         aws.String(text),
		VoiceId:      aws.String(voiceID),
	})
	if resp != nil && resp.RequestCharacters != nil {
		e.log.Debug("response", "chars", aws.Int64Value(resp.RequestCharacters))
	}
	if err != nil {
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly: read audio: %w", err)
	}
	// A dangling byte would misalign every later chunk.
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	return data, nil
}

// ListVoices returns the voices available for the configured Polly engine.
func (e *Engine) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	input := &polly.DescribeVoicesInput{Engine: aws.String(e.engine)}
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := e.svc.DescribeVoicesWithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("polly describe voices: %w", err)
		}
		for _, v := range resp.Voices {
			voices = append(voices, tts.Voice{
				ID:       aws.StringValue(v.Id),
				Name:     aws.StringValue(v.Name),
				Language: aws.StringValue(v.LanguageCode),
				Gender:   strings.ToLower(aws.StringValue(v.Gender)),
			})
		}
		if aws.StringValue(resp.NextToken) == "" {
			break
		}
		input.NextToken = resp.NextToken
	}

	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}
