package tts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/queue"
)

// VoiceResolver maps speakers to provider voices.
type VoiceResolver interface {
	Resolve(speaker string) (string, Resolution)
	// Init rebuilds the mapping from the roster.
	Init(ctx context.Context, unrestricted bool) error
}

// Status is the UI-visible state of the pipeline.
type Status struct {
	Enabled     bool
	Processing  bool
	Playing     bool
	Paused      bool
	Queued      int
	AudioQueued int
	Speaker     string
	JobState    JobState
	LastError   string
	Generation  uint64
}

// PipelineOptions wires the collaborators of a Pipeline.
type PipelineOptions struct {
	Store       SettingsStore
	Voices      VoiceResolver
	Analyzer    ToneAnalyzer
	Synthesizer Synthesizer
	// Converter is optional.
	Converter VoiceConverter
	Player    AudioPlayer
	Notifier  Notifier
	Logger    *log.Logger
	// Interval is the coordinator period; zero means UpdateInterval.
	Interval time.Duration
}

type activeJob struct {
	job     NarrationJob
	machine *StateMachine
	gen     uint64
	started time.Time
}

// Pipeline is the coordinator of the dual narration and audio queues. One
// narration job and one audio job are in flight at most. Each tick starts
// whatever the single-flight slots allow; remote calls run in their own
// goroutines and report back through generation-checked completions.
type Pipeline struct {
	mu sync.Mutex

	jobs  *queue.Queue[NarrationJob]
	audio *queue.Queue[AudioJob]

	active *activeJob
	paused bool

	generation uint64
	genCtx     context.Context
	cancel     context.CancelFunc

	store       SettingsStore
	voices      VoiceResolver
	transformer *Transformer
	synth       Synthesizer
	converter   VoiceConverter
	playback    *Playback
	notifier    Notifier
	metrics     *Metrics
	log         *log.Logger

	interval  time.Duration
	wake      chan struct{}
	lastError string

	observersMu sync.RWMutex
	observers   []func(Status)
}

// NewPipeline creates a pipeline. It does not tick until Run is called or
// Tick is invoked directly.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = UpdateInterval
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(NoticeLevel, string) {})
	}

	p := &Pipeline{
		jobs:        queue.New[NarrationJob](0),
		audio:       queue.New[AudioJob](0),
		store:       opts.Store,
		voices:      opts.Voices,
		transformer: NewTransformer(opts.Analyzer, logger),
		synth:       opts.Synthesizer,
		converter:   opts.Converter,
		playback:    NewPlayback(opts.Player, logger),
		notifier:    notifier,
		log:         logger.WithPrefix("pipeline"),
		interval:    interval,
		wake:        make(chan struct{}, 1),
	}
	p.genCtx, p.cancel = context.WithCancel(context.Background())

	metrics, err := newMetrics(func() (int64, int64) {
		return int64(p.jobs.Len()), int64(p.audio.Len())
	})
	if err != nil {
		p.log.Warn("failed to initialize metrics", "err", err)
	}
	p.metrics = metrics

	return p
}

// Run ticks on the configured interval and whenever an event wakes the
// pipeline, until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Close()
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		case <-p.wake:
			p.Tick()
		}
	}
}

// Close aborts in-flight work and releases the device.
func (p *Pipeline) Close() {
	p.Reset()
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()
	_ = p.jobs.Close()
	_ = p.audio.Close()
}

// Enqueue appends jobs to the narration queue in order.
func (p *Pipeline) Enqueue(jobs ...NarrationJob) error {
	for _, job := range jobs {
		if err := p.jobs.Push(job); err != nil {
			return err
		}
		p.log.Debug("job queued", "job", job.ID, "speaker", job.Speaker)
	}
	p.metrics.jobEnqueued(len(jobs))
	p.signal()
	return nil
}

// Tick runs one coordinator pass: start the next narration job if the slot
// is free, start the next utterance if the gate is open, then publish the
// status. With nothing pending it changes nothing.
func (p *Pipeline) Tick() {
	settings := p.store.Settings()
	if !settings.Enabled {
		return
	}

	p.processNarrationQueue(settings)
	p.processAudioQueue(settings)
	p.publish(p.Status())
}

func (p *Pipeline) processNarrationQueue(settings Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil || p.paused {
		return
	}
	job, ok := p.jobs.Pop()
	if !ok {
		return
	}

	machine := NewStateMachine()
	machine.Transition(StateTransforming)
	a := &activeJob{job: job, machine: machine, gen: p.generation, started: time.Now()}
	p.active = a

	go p.runJob(p.genCtx, a, settings)
}

func (p *Pipeline) runJob(ctx context.Context, a *activeJob, settings Settings) {
	voice, err := p.resolveVoice(ctx, a.job.Speaker)
	if err != nil {
		p.abort(a, err)
		return
	}

	out, err := p.transformer.Transform(ctx, a.job, settings)
	if err != nil {
		p.abort(a, err)
		return
	}
	if out.Split {
		p.split(a, out.SubJobs)
		return
	}

	if !p.advance(a, StateSynthesizing) {
		return
	}
	p.log.Debug("synthesizing", "job", a.job.ID, "speaker", a.job.Speaker, "voice", voice, "text", out.Text)

	start := time.Now()
	src, err := p.synth.Synthesize(ctx, out.Text, voice)
	p.metrics.synthesized(time.Since(start), err)
	if err == nil && p.converter != nil {
		src, err = p.converter.Convert(ctx, src, a.job.Speaker, out.Text)
	}
	if err == nil {
		err = src.Validate()
	}
	if err != nil {
		p.abort(a, NewPipelineError(err, "synthesis", "synthesize").ForSpeaker(a.job.Speaker))
		return
	}

	p.finish(a, AudioJob{Source: src, Speaker: a.job.Speaker, Generation: a.gen})
}

// resolveVoice looks the speaker up, rebuilding the voice map once when
// the speaker is unknown.
func (p *Pipeline) resolveVoice(ctx context.Context, speaker string) (string, error) {
	voice, res := p.voices.Resolve(speaker)
	if res == NotFound {
		if err := p.voices.Init(ctx, false); err != nil {
			p.log.Warn("voice map init failed", "speaker", speaker, "err", err)
		}
		voice, res = p.voices.Resolve(speaker)
	}
	if res != Resolved {
		return "", NewPipelineError(res.Err(), "voicemap", "resolve").ForSpeaker(speaker)
	}
	return voice, nil
}

// owns reports whether a still holds the narration slot. Callers hold mu.
func (p *Pipeline) owns(a *activeJob) bool {
	return p.active == a && a.gen == p.generation
}

func (p *Pipeline) advance(a *activeJob, to JobState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.owns(a) {
		p.log.Debug("dropping stale job", "job", a.job.ID, "state", to)
		return false
	}
	return a.machine.Transition(to)
}

func (p *Pipeline) split(a *activeJob, jobs []NarrationJob) {
	p.mu.Lock()
	if !p.owns(a) {
		p.mu.Unlock()
		p.log.Debug("dropping stale split", "job", a.job.ID, "parts", len(jobs))
		return
	}
	if err := p.jobs.PushFront(jobs...); err != nil {
		p.mu.Unlock()
		p.abort(a, NewPipelineError(err, "pipeline", "split").ForSpeaker(a.job.Speaker))
		return
	}
	a.machine.Transition(StateDone)
	p.active = nil
	p.mu.Unlock()

	p.log.Debug("job split", "job", a.job.ID, "parts", len(jobs))
	p.metrics.jobEnqueued(len(jobs))
	p.signal()
}

func (p *Pipeline) finish(a *activeJob, job AudioJob) {
	p.mu.Lock()
	if !p.owns(a) {
		p.mu.Unlock()
		p.log.Debug("dropping stale audio", "job", a.job.ID, "speaker", job.Speaker)
		return
	}
	if err := p.audio.Push(job); err != nil {
		p.mu.Unlock()
		p.abort(a, NewPipelineError(err, "pipeline", "queue audio").ForSpeaker(a.job.Speaker))
		return
	}
	a.machine.Transition(StateDone)
	p.active = nil
	p.mu.Unlock()

	p.log.Debug("job done", "job", a.job.ID, "elapsed", time.Since(a.started))
	p.signal()
}

func (p *Pipeline) abort(a *activeJob, err error) {
	p.mu.Lock()
	if !p.owns(a) {
		p.mu.Unlock()
		p.log.Debug("ignoring error from stale job", "job", a.job.ID, "err", err)
		return
	}
	a.machine.Transition(StateAborted)
	p.active = nil
	p.lastError = err.Error()
	p.mu.Unlock()

	p.metrics.jobAborted(err)
	p.report(err)
	p.signal()
}

func (p *Pipeline) processAudioQueue(settings Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused || !p.playback.Ready() {
		return
	}
	job, ok := p.audio.Pop()
	if !ok {
		return
	}
	if err := p.playback.Start(p.genCtx, job, settings.PlaybackRate, p.playbackDone); err != nil {
		p.lastError = err.Error()
		go p.report(NewPipelineError(err, "playback", "play").ForSpeaker(job.Speaker))
		p.signal()
	}
}

func (p *Pipeline) playbackDone(gen uint64, err error) {
	p.mu.Lock()
	if gen != p.generation || !p.playback.Complete(gen) {
		p.mu.Unlock()
		p.log.Debug("ignoring playback completion", "generation", gen)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		p.lastError = err.Error()
	}
	p.mu.Unlock()

	switch {
	case err == nil:
		p.metrics.utterancePlayed()
	case errors.Is(err, context.Canceled):
	default:
		p.report(NewPipelineError(err, "playback", "play"))
	}
	p.signal()
}

// Reset drops both queues and everything in flight. Results of work started
// before the reset are discarded when they arrive.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.cancel()
	p.generation++
	p.genCtx, p.cancel = context.WithCancel(context.Background())

	jobs := p.jobs.Clear()
	audio := p.audio.Clear()
	if p.active != nil {
		p.active.machine.Transition(StateAborted)
		p.active = nil
	}
	if err := p.playback.Stop(); err != nil {
		p.log.Warn("failed to stop player", "err", err)
	}
	gen := p.generation
	p.mu.Unlock()

	p.log.Debug("pipeline reset", "generation", gen, "jobs", jobs, "audio", audio)
	p.publish(p.Status())
}

// Pause stops new jobs and utterances from starting. Work in flight
// finishes.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	p.publish(p.Status())
}

// Resume undoes Pause.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.publish(p.Status())
	p.signal()
}

// Processing reports whether anything is queued, in flight or playing.
func (p *Pipeline) Processing() bool {
	return p.Status().Processing
}

// Status returns a snapshot of the pipeline state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Enabled:     p.store.Settings().Enabled,
		Paused:      p.paused,
		Queued:      p.jobs.Len(),
		AudioQueued: p.audio.Len(),
		LastError:   p.lastError,
		Generation:  p.generation,
	}
	if p.active != nil {
		s.Speaker = p.active.job.Speaker
		s.JobState = p.active.machine.Current()
	}
	if job, ok := p.playback.Current(); ok {
		s.Playing = true
		s.Speaker = job.Speaker
	}
	s.Processing = s.Queued > 0 || s.AudioQueued > 0 || p.active != nil || s.Playing
	return s
}

// OnStatus registers fn to receive a status snapshot after every tick.
func (p *Pipeline) OnStatus(fn func(Status)) {
	p.observersMu.Lock()
	defer p.observersMu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *Pipeline) publish(s Status) {
	p.observersMu.RLock()
	defer p.observersMu.RUnlock()
	for _, fn := range p.observers {
		fn(s)
	}
}

func (p *Pipeline) report(err error) {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		pe = NewPipelineError(err, "pipeline", "process")
	}
	if !pe.Notify() {
		p.log.Debug("job dropped", "err", pe)
		return
	}
	level := NoticeError
	if pe.Kind == KindConfig {
		level = NoticeWarn
	}
	p.log.Error("narration failed", "component", pe.Component, "action", pe.Action, "speaker", pe.Speaker, "err", pe.Err)
	msg := pe.Error()
	if !IsRecoverable(pe.Err) {
		msg += "; restart narrator to reopen the audio device"
	}
	p.notifier.Notify(level, msg)
}

func (p *Pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
