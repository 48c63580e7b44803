package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/voxpaste/internal/audio"
	"github.com/chaz8081/voxpaste/internal/history"
	"github.com/chaz8081/voxpaste/internal/observe"
	"github.com/chaz8081/voxpaste/internal/refine"
)

// Command is a user gesture delivered to the orchestrator.
type Command int

const (
	CommandStart Command = iota
	CommandStop
	CommandToggleHistory
	CommandClearHistory
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandToggleHistory:
		return "toggle_history"
	case CommandClearHistory:
		return "clear_history"
	default:
		return "unknown"
	}
}

// Capture records audio between Start and Stop.
type Capture interface {
	Start() error
	Stop() audio.Clip
}

// Transcriber turns a clip into raw text.
type Transcriber interface {
	Transcribe(clip audio.Clip) (string, error)
}

// Refiner decides on and performs refinement. It never fails.
type Refiner interface {
	Refine(ctx context.Context, raw string) refine.Result
}

// Injector delivers text to the focused application.
type Injector interface {
	Inject(text string) error
}

// Deps are the collaborators of an Orchestrator. All are required.
type Deps struct {
	Capture     Capture
	Transcriber Transcriber
	Refiner     Refiner
	Injector    Injector
	History     *history.Store
	Sink        StatusSink
}

// Orchestrator runs at most one session at a time. Commands arrive on one
// goroutine (Run); the stages after capture run on a worker goroutine so
// that inference and delivery delays never block command handling.
type Orchestrator struct {
	deps        Deps
	metrics     *observe.Metrics
	minDuration time.Duration
	dumpDir     string
	newID       func() uuid.UUID
	now         func() time.Time

	mu         sync.Mutex
	active     *Session
	stageStart time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records stage durations and outcomes to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMinDuration treats clips shorter than d like silence.
func WithMinDuration(d time.Duration) Option {
	return func(o *Orchestrator) { o.minDuration = d }
}

// WithDumpDir writes every non-silent clip to dir as a WAV file named by
// session id.
func WithDumpDir(dir string) Option {
	return func(o *Orchestrator) { o.dumpDir = dir }
}

// WithIDs replaces uuid.New, for tests.
func WithIDs(fn func() uuid.UUID) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// New creates an Orchestrator.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:    deps,
		metrics: observe.Discard(),
		newID:   uuid.New,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Active returns a copy of the in-flight session, if any.
func (o *Orchestrator) Active() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return Session{}, false
	}
	return *o.active, true
}

// Run handles commands until ctx is done or cmds is closed, then waits for
// the in-flight session to finish.
func (o *Orchestrator) Run(ctx context.Context, cmds <-chan Command) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			o.abandonRecording(ctx)
			return nil
		case cmd, ok := <-cmds:
			if !ok {
				o.abandonRecording(ctx)
				return nil
			}
			switch cmd {
			case CommandStart:
				if err := o.start(ctx); err != nil {
					slog.Warn("pipeline: start ignored", "error", err)
				}
			case CommandStop:
				s, clip, ok := o.stop()
				if !ok {
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					o.process(ctx, s, clip)
				}()
			case CommandToggleHistory:
				o.deps.Sink.Publish(Event{Kind: EventHistoryToggle, Items: o.deps.History.List()})
			case CommandClearHistory:
				o.deps.History.Clear()
				o.deps.Sink.Publish(Event{Kind: EventHistory, Items: o.deps.History.List()})
			}
		}
	}
}

// start opens a session and begins capture.
func (o *Orchestrator) start(ctx context.Context) error {
	o.mu.Lock()
	if o.active != nil {
		id := o.active.ID
		o.mu.Unlock()
		slog.Debug("pipeline: capture start rejected", "active_session", id)
		return ErrSessionActive
	}
	s := newSession(o.newID())
	o.active = s
	o.stageStart = o.now()
	o.mu.Unlock()

	if err := o.deps.Capture.Start(); err != nil {
		o.fail(ctx, s, &SessionError{Stage: StageRecording, Kind: CaptureFailure, Err: err})
		return err
	}
	return o.transition(ctx, s, StageRecording)
}

// stop ends capture for a recording session and hands it to the worker.
// Repeated stops for the same session are ignored.
func (o *Orchestrator) stop() (*Session, audio.Clip, bool) {
	o.mu.Lock()
	s := o.active
	if s == nil || s.Stage != StageRecording || s.stopped {
		o.mu.Unlock()
		return nil, audio.Clip{}, false
	}
	s.stopped = true
	o.mu.Unlock()
	return s, o.deps.Capture.Stop(), true
}

// abandonRecording drops a session still capturing at shutdown.
func (o *Orchestrator) abandonRecording(ctx context.Context) {
	s, _, ok := o.stop()
	if !ok {
		return
	}
	slog.Info("pipeline: recording abandoned", "session", s.ID)
	o.finish(ctx, s, "abandoned")
}

// process runs the stages after capture for one session.
func (o *Orchestrator) process(ctx context.Context, s *Session, clip audio.Clip) {
	if clip.Duration() < o.minDuration || clip.Silent() {
		slog.Info("pipeline: no speech captured", "session", s.ID,
			"duration", clip.Duration().Round(time.Millisecond), "rms", clip.RMS())
		o.finish(ctx, s, "silent")
		return
	}

	if o.dumpDir != "" {
		path := filepath.Join(o.dumpDir, s.ID.String()+".wav")
		if err := audio.WriteWAV(path, clip); err != nil {
			slog.Warn("pipeline: dump audio", "path", path, "error", err)
		}
	}

	if o.transition(ctx, s, StageTranscribing) != nil {
		return
	}
	text, err := o.deps.Transcriber.Transcribe(clip)
	if err != nil {
		o.fail(ctx, s, &SessionError{Stage: StageTranscribing, Kind: EngineFailure, Err: err})
		return
	}
	raw := Normalize(text)
	o.mu.Lock()
	s.Raw = raw
	o.mu.Unlock()
	slog.Debug("pipeline: transcribed", "session", s.ID, "text", raw)
	if raw == "" {
		slog.Info("pipeline: empty transcript", "session", s.ID)
		o.finish(ctx, s, "empty")
		return
	}

	if o.transition(ctx, s, StageRefining) != nil {
		return
	}
	res := o.deps.Refiner.Refine(ctx, raw)
	o.metrics.RecordRefine(ctx, string(res.Outcome))
	o.mu.Lock()
	if res.Outcome == refine.OutcomeRefined {
		s.Refined = res.Text
	}
	final := s.Final()
	o.mu.Unlock()
	slog.Debug("pipeline: refined", "session", s.ID, "outcome", res.Outcome, "text", final)

	if o.transition(ctx, s, StageInjecting) != nil {
		return
	}
	if err := o.deps.Injector.Inject(final); err != nil {
		o.fail(ctx, s, &SessionError{Stage: StageInjecting, Kind: classifyInjectErr(err), Err: err})
		return
	}

	if o.deps.History.Add(final) {
		o.deps.Sink.Publish(Event{Kind: EventHistory, SessionID: s.ID, Items: o.deps.History.List()})
	}
	o.deps.Sink.Publish(Event{Kind: EventInjected, SessionID: s.ID, Text: Preview(final, PreviewRunes)})
	o.finish(ctx, s, "injected")
}

// transition advances s, records how long the previous stage took and
// publishes the new stage. A rejected transition is logged and returned;
// the caller must abandon the session's remaining stages.
func (o *Orchestrator) transition(ctx context.Context, s *Session, next Stage) error {
	o.mu.Lock()
	prev := s.Stage
	if err := s.advance(next); err != nil {
		o.mu.Unlock()
		slog.Error("pipeline: transition rejected", "session", s.ID, "error", err)
		return err
	}
	now := o.now()
	elapsed := now.Sub(o.stageStart)
	o.stageStart = now
	if s.done {
		o.active = nil
	}
	o.mu.Unlock()

	if prev != StageIdle {
		o.metrics.RecordStage(ctx, prev.String(), elapsed)
	}
	slog.Info("pipeline: stage", "session", s.ID, "from", prev, "to", next, "elapsed", elapsed.Round(time.Millisecond))

	if kind, ok := stageEvent(next); ok {
		o.deps.Sink.Publish(Event{Kind: kind, SessionID: s.ID})
	}
	return nil
}

// fail moves s through Error back to Idle.
func (o *Orchestrator) fail(ctx context.Context, s *Session, serr *SessionError) {
	slog.Error("pipeline: session failed", "session", s.ID, "stage", serr.Stage, "kind", serr.Kind, "error", serr.Err)
	o.mu.Lock()
	s.Err = serr
	o.mu.Unlock()
	if o.transition(ctx, s, StageError) != nil {
		return
	}
	o.deps.Sink.Publish(Event{Kind: EventError, SessionID: s.ID, Text: serr.UserMessage()})
	o.finish(ctx, s, "error")
}

// finish returns s to Idle and counts the outcome.
func (o *Orchestrator) finish(ctx context.Context, s *Session, outcome string) {
	if o.transition(ctx, s, StageIdle) != nil {
		return
	}
	o.metrics.RecordSession(ctx, outcome)
}

// stageEvent maps a stage to the event announcing it. Error is announced
// by fail together with its message.
func stageEvent(s Stage) (EventKind, bool) {
	switch s {
	case StageRecording:
		return EventRecording, true
	case StageTranscribing:
		return EventTranscribing, true
	case StageRefining:
		return EventRefining, true
	case StageIdle:
		return EventIdle, true
	default:
		return 0, false
	}
}
