package status

import (
	"fmt"
	"io"

	"github.com/chaz8081/voxpaste/internal/history"
	"github.com/chaz8081/voxpaste/internal/pipeline"
)

// Console prints status lines to a terminal.
type Console struct {
	w           io.Writer
	showHistory bool
	items       []history.Item
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Render implements Renderer.
func (c *Console) Render(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventRecording:
		fmt.Fprintln(c.w, "● Recording...")
	case pipeline.EventTranscribing:
		fmt.Fprintln(c.w, "  Transcribing...")
	case pipeline.EventRefining:
		fmt.Fprintln(c.w, "  Refining...")
	case pipeline.EventInjected:
		fmt.Fprintf(c.w, "✓ %s\n", ev.Text)
	case pipeline.EventError:
		fmt.Fprintf(c.w, "✗ %s\n", ev.Text)
	case pipeline.EventIdle:
		// nothing to show
	case pipeline.EventHistory:
		c.items = ev.Items
		if c.showHistory {
			c.printHistory()
		}
	case pipeline.EventHistoryToggle:
		c.items = ev.Items
		c.showHistory = !c.showHistory
		if c.showHistory {
			c.printHistory()
		} else {
			fmt.Fprintln(c.w, "  (history hidden)")
		}
	}
}

func (c *Console) printHistory() {
	if len(c.items) == 0 {
		fmt.Fprintln(c.w, "  History is empty")
		return
	}
	fmt.Fprintf(c.w, "  History (%d):\n", len(c.items))
	for i, it := range c.items {
		fmt.Fprintf(c.w, "  %2d. %s  %s\n", i+1, it.CreatedAt.Format("15:04:05"), pipeline.Preview(it.Text, pipeline.PreviewRunes))
	}
}
