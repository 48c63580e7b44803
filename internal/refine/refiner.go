package refine

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Engine completes a prompt with a language model.
type Engine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Outcome records how a transcript left the refinement stage. Every outcome
// is a success for the pipeline.
type Outcome string

const (
	OutcomeRefined  Outcome = "refined"
	OutcomeSkipped  Outcome = "skipped"  // blank or mostly English
	OutcomeNoModel  Outcome = "no_model" // no refinement engine available
	OutcomeFailed   Outcome = "failed"   // engine error or timeout, raw kept
	OutcomeEmpty    Outcome = "empty"    // model output post-processed to nothing, raw kept
	OutcomeDisabled Outcome = "disabled" // refinement turned off in config
)

// Result is the final text of the refinement stage.
type Result struct {
	Text    string
	Outcome Outcome
}

// Refiner applies the refinement policy around an Engine. A nil engine means
// no model is available and every transcript passes through unchanged.
type Refiner struct {
	engine  Engine
	timeout time.Duration
	enabled bool
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithTimeout bounds each engine call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Refiner) { r.timeout = d }
}

// WithEnabled turns refinement on or off.
func WithEnabled(on bool) Option {
	return func(r *Refiner) { r.enabled = on }
}

// New returns a Refiner over engine, which may be nil.
func New(engine Engine, opts ...Option) *Refiner {
	r := &Refiner{engine: engine, enabled: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Available reports whether an engine is attached and enabled.
func (r *Refiner) Available() bool {
	return r.enabled && r.engine != nil
}

// Refine returns the text to deliver for raw. It never fails: skips, missing
// models and engine errors all fall back to raw.
func (r *Refiner) Refine(ctx context.Context, raw string) Result {
	if !r.enabled {
		return Result{Text: raw, Outcome: OutcomeDisabled}
	}
	if ShouldSkip(raw) {
		return Result{Text: raw, Outcome: OutcomeSkipped}
	}
	if r.engine == nil {
		return Result{Text: raw, Outcome: OutcomeNoModel}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.engine.Complete(ctx, BuildPrompt(raw))
	if err != nil {
		slog.Warn("refine: engine failed, using raw transcript", "error", err)
		return Result{Text: raw, Outcome: OutcomeFailed}
	}

	text := PostProcess(raw, out)
	if strings.TrimSpace(text) == "" {
		slog.Debug("refine: empty model output, using raw transcript")
		return Result{Text: raw, Outcome: OutcomeEmpty}
	}
	return Result{Text: text, Outcome: OutcomeRefined}
}
