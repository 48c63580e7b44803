package status

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/voxpaste/internal/history"
	"github.com/chaz8081/voxpaste/internal/pipeline"
)

type recordRenderer struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recordRenderer) Render(ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordRenderer) kinds() []pipeline.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pipeline.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func TestDispatcherPreservesOrder(t *testing.T) {
	d := NewDispatcher(4)
	r := &recordRenderer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, r)
		close(done)
	}()

	want := []pipeline.EventKind{
		pipeline.EventRecording,
		pipeline.EventTranscribing,
		pipeline.EventRefining,
		pipeline.EventInjected,
		pipeline.EventIdle,
	}
	for i := 0; i < 20; i++ {
		for _, k := range want {
			d.Publish(pipeline.Event{Kind: k})
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(r.kinds()) < 20*len(want) {
		if time.Now().After(deadline) {
			t.Fatalf("rendered %d events, want %d", len(r.kinds()), 20*len(want))
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	got := r.kinds()
	for i, k := range got {
		if k != want[i%len(want)] {
			t.Fatalf("event %d = %s, want %s", i, k, want[i%len(want)])
		}
	}
}

func TestDispatcherDrainsOnStop(t *testing.T) {
	d := NewDispatcher(8)
	d.Publish(pipeline.Event{Kind: pipeline.EventRecording})
	d.Publish(pipeline.Event{Kind: pipeline.EventIdle})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &recordRenderer{}
	d.Run(ctx, r)

	if got := r.kinds(); len(got) != 2 {
		t.Fatalf("rendered %v, want both queued events", got)
	}

	// Publishing after stop must not block.
	published := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			d.Publish(pipeline.Event{Kind: pipeline.EventIdle})
		}
		close(published)
	}()
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after Run returned")
	}
}

func TestConsoleRender(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Render(pipeline.Event{Kind: pipeline.EventRecording})
	c.Render(pipeline.Event{Kind: pipeline.EventInjected, Text: "hello"})
	c.Render(pipeline.Event{Kind: pipeline.EventError, Text: "Could not paste"})

	out := buf.String()
	for _, want := range []string{"Recording", "✓ hello", "✗ Could not paste"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestConsoleHistoryToggle(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	items := []history.Item{
		{Text: "second", CreatedAt: time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)},
		{Text: "first", CreatedAt: time.Date(2026, 1, 1, 9, 29, 0, 0, time.UTC)},
	}

	// Changes are not printed while history is hidden.
	c.Render(pipeline.Event{Kind: pipeline.EventHistory, Items: items})
	if buf.Len() != 0 {
		t.Fatalf("hidden history printed %q", buf.String())
	}

	c.Render(pipeline.Event{Kind: pipeline.EventHistoryToggle, Items: items})
	out := buf.String()
	if !strings.Contains(out, "History (2)") || strings.Index(out, "second") > strings.Index(out, "first") {
		t.Errorf("history output = %q", out)
	}

	buf.Reset()
	c.Render(pipeline.Event{Kind: pipeline.EventHistory})
	if !strings.Contains(buf.String(), "History is empty") {
		t.Errorf("cleared history output = %q", buf.String())
	}

	buf.Reset()
	c.Render(pipeline.Event{Kind: pipeline.EventHistoryToggle})
	if !strings.Contains(buf.String(), "hidden") {
		t.Errorf("toggle off output = %q", buf.String())
	}
}
