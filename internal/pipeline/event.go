package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chaz8081/voxpaste/internal/history"
)

// EventKind identifies a status event.
type EventKind int

const (
	EventRecording EventKind = iota
	EventTranscribing
	EventRefining
	EventInjected
	EventError
	EventIdle
	EventHistory       // history changed
	EventHistoryToggle // user asked to show or hide history
)

func (k EventKind) String() string {
	switch k {
	case EventRecording:
		return "recording"
	case EventTranscribing:
		return "transcribing"
	case EventRefining:
		return "refining"
	case EventInjected:
		return "injected"
	case EventError:
		return "error"
	case EventIdle:
		return "idle"
	case EventHistory:
		return "history"
	case EventHistoryToggle:
		return "history_toggle"
	default:
		return "unknown"
	}
}

// Event is one update for the presentation layer. Events of one session
// are published in stage order.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID

	// Text is the preview for EventInjected and the message for EventError.
	Text string

	// Items is a history snapshot for EventHistory and EventHistoryToggle.
	Items []history.Item
}

// StatusSink receives events. Publish must not block for long; the
// orchestrator calls it from its worker.
type StatusSink interface {
	Publish(ev Event)
}

// PreviewRunes is the longest preview carried by EventInjected.
const PreviewRunes = 64

// Preview shortens text to at most limit runes by replacing its middle
// with an ellipsis.
func Preview(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	r := []rune(text)
	keep := limit - 1
	head := (keep + 1) / 2
	tail := keep - head
	var b strings.Builder
	b.WriteString(string(r[:head]))
	b.WriteString("…")
	b.WriteString(string(r[len(r)-tail:]))
	return b.String()
}

// Normalize collapses runs of whitespace into single spaces and trims the
// ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
