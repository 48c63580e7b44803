// Package transcribe provides the speech-to-text engine used by the
// dictation pipeline.
package transcribe

import (
	"github.com/chaz8081/voxpaste/internal/audio"
)

// Transcriber converts a captured clip to text. Calls block until the engine
// returns; there is no mid-call cancellation.
type Transcriber interface {
	// Transcribe returns the raw transcript of clip. Clips at any sample rate
	// are accepted.
	Transcribe(clip audio.Clip) (string, error)
	// Close releases backend resources.
	Close() error
}
