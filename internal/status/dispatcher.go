// Package status carries pipeline events to the goroutine that owns the
// user interface and renders them.
package status

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chaz8081/voxpaste/internal/pipeline"
)

// Renderer presents events. It is only ever called from Dispatcher.Run.
type Renderer interface {
	Render(ev pipeline.Event)
}

// Dispatcher queues events in publish order and hands them to a Renderer
// on the goroutine that calls Run.
type Dispatcher struct {
	ch   chan pipeline.Event
	done chan struct{}
	once sync.Once
}

// Compile-time interface satisfaction check.
var _ pipeline.StatusSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher holding up to buffer pending events.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		ch:   make(chan pipeline.Event, buffer),
		done: make(chan struct{}),
	}
}

// Publish enqueues ev. It blocks while the queue is full and drops ev once
// the dispatcher has stopped.
func (d *Dispatcher) Publish(ev pipeline.Event) {
	select {
	case <-d.done:
		slog.Debug("status: dropped event after stop", "kind", ev.Kind)
	case d.ch <- ev:
	}
}

// Run renders events until ctx is done, then renders whatever is still
// queued.
func (d *Dispatcher) Run(ctx context.Context, r Renderer) {
	defer d.stop()
	for {
		select {
		case ev := <-d.ch:
			r.Render(ev)
		case <-ctx.Done():
			d.stop()
			d.drain(r)
			return
		}
	}
}

func (d *Dispatcher) drain(r Renderer) {
	for {
		select {
		case ev := <-d.ch:
			r.Render(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) stop() {
	d.once.Do(func() { close(d.done) })
}
