package tts

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dgnsrekt/narrator/tts"

// Metrics holds the pipeline instruments. Until a meter provider is
// installed the global no-op provider records nothing.
type Metrics struct {
	enqueued  metric.Int64Counter
	aborted   metric.Int64Counter
	played    metric.Int64Counter
	synthesis metric.Float64Histogram
}

func newMetrics(depth func() (jobs, audio int64)) (*Metrics, error) {
	meter := otel.Meter(meterName)

	enqueued, err := meter.Int64Counter("narrator.jobs.enqueued",
		metric.WithDescription("Narration jobs added to the queue"))
	if err != nil {
		return nil, err
	}
	aborted, err := meter.Int64Counter("narrator.jobs.aborted",
		metric.WithDescription("Narration jobs dropped without audio"))
	if err != nil {
		return nil, err
	}
	played, err := meter.Int64Counter("narrator.utterances.played",
		metric.WithDescription("Utterances played to completion"))
	if err != nil {
		return nil, err
	}
	synthesis, err := meter.Float64Histogram("narrator.synthesis.duration",
		metric.WithDescription("Synthesis call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	jobsGauge, err := meter.Int64ObservableGauge("narrator.queue.jobs",
		metric.WithDescription("Narration jobs waiting"))
	if err != nil {
		return nil, err
	}
	audioGauge, err := meter.Int64ObservableGauge("narrator.queue.audio",
		metric.WithDescription("Synthesized utterances waiting for playback"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		jobs, audio := depth()
		obs.ObserveInt64(jobsGauge, jobs)
		obs.ObserveInt64(audioGauge, audio)
		return nil
	}, jobsGauge, audioGauge)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		enqueued:  enqueued,
		aborted:   aborted,
		played:    played,
		synthesis: synthesis,
	}, nil
}

func (m *Metrics) jobEnqueued(n int) {
	if m == nil {
		return
	}
	m.enqueued.Add(context.Background(), int64(n))
}

func (m *Metrics) jobAborted(err error) {
	if m == nil {
		return
	}
	m.aborted.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", abortReason(err))))
}

func (m *Metrics) utterancePlayed() {
	if m == nil {
		return
	}
	m.played.Add(context.Background(), 1)
}

func (m *Metrics) synthesized(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.synthesis.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.Bool("error", err != nil)))
}

func abortReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrVoiceDisabled):
		return "voice_disabled"
	case errors.Is(err, ErrVoiceNotFound):
		return "voice_not_found"
	case errors.Is(err, ErrEmptyText):
		return "empty_text"
	}
	return KindOf(err).String()
}
