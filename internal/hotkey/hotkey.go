// Package hotkey provides a global hotkey listener using gohook.
// It supports "hold" mode (press to start, release to stop) and
// "toggle" mode (press to start, press again to stop), plus an optional
// second combo that toggles the history view.
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType indicates what the user asked for.
type EventType int

const (
	// EventStart signals that the hotkey was activated (start recording).
	EventStart EventType = iota
	// EventStop signals that the hotkey was deactivated (stop recording).
	EventStop
	// EventToggleHistory signals that the history combo was pressed.
	EventToggleHistory
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventToggleHistory:
		return "toggle_history"
	default:
		return "unknown"
	}
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages the global hotkeys and emits events.
type Listener struct {
	keys        []string
	historyKeys []string
	mode        string // "hold" or "toggle"
	ch          chan Event
	done        chan struct{}
	once        sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "r"]).
// mode must be "hold" or "toggle". historyKeys may be empty.
func NewListener(keys []string, mode string, historyKeys []string) *Listener {
	return &Listener{
		keys:        keys,
		historyKeys: historyKeys,
		mode:        mode,
		ch:          make(chan Event, 16),
		done:        make(chan struct{}),
	}
}

// Combo formats keys for display, e.g. "ctrl+shift+r".
func Combo(keys []string) string {
	return strings.Join(keys, "+")
}

// Events returns the channel that receives hotkey events.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	switch l.mode {
	case "toggle":
		l.registerToggle()
	default: // "hold"
		l.registerHold()
	}
	if len(l.historyKeys) > 0 {
		hook.Register(hook.KeyDown, l.historyKeys, func(hook.Event) {
			l.emit(EventToggleHistory)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit sends without blocking; a full channel drops the event.
func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default:
	}
}

// registerHold implements hold-to-talk mode:
// KeyDown -> EventStart, KeyUp -> EventStop.
func (l *Listener) registerHold() {
	hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
		l.emit(EventStart)
	})
	hook.Register(hook.KeyUp, l.keys, func(hook.Event) {
		l.emit(EventStop)
	})
}

// registerToggle implements toggle mode:
// First press -> EventStart, second press -> EventStop, etc.
func (l *Listener) registerToggle() {
	var t toggle
	hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
		l.emit(t.press())
	})
}

// toggle alternates between start and stop on each press.
type toggle struct {
	mu        sync.Mutex
	recording bool
}

func (t *toggle) press() EventType {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = !t.recording
	if t.recording {
		return EventStart
	}
	return EventStop
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
