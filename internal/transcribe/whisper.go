package transcribe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/chaz8081/voxpaste/internal/audio"
)

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	model    whisper.Model
	language string
}

// Option configures a WhisperTranscriber.
type Option func(*WhisperTranscriber)

// WithLanguage sets the decoding language ("auto" detects it per clip).
func WithLanguage(lang string) Option {
	return func(t *WhisperTranscriber) {
		if lang != "" {
			t.language = lang
		}
	}
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, opts ...Option) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	t := &WhisperTranscriber{model: model, language: "auto"}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe resamples clip to 16 kHz when needed and runs inference with a
// fresh whisper context.
func (t *WhisperTranscriber) Transcribe(clip audio.Clip) (string, error) {
	clip = clip.Resample(audio.WhisperSampleRate)

	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if t.model.IsMultilingual() {
		if err := ctx.SetLanguage(t.language); err != nil {
			slog.Warn("transcribe: failed to set language, using default", "language", t.language, "error", err)
		}
	}

	if err := ctx.Process(clip.Samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
