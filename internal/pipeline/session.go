// Package pipeline sequences one dictation session through capture,
// transcription, refinement and injection, and reports every stage change
// to the presentation layer.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// Stage is a phase of one session's lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageRecording
	StageTranscribing
	StageRefining
	StageInjecting
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRecording:
		return "recording"
	case StageTranscribing:
		return "transcribing"
	case StageRefining:
		return "refining"
	case StageInjecting:
		return "injecting"
	case StageError:
		return "error"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Session is one capture-to-injection attempt.
type Session struct {
	ID    uuid.UUID
	Stage Stage

	// Raw is the normalized transcript. Refined is set only when the
	// refinement engine rewrote Raw.
	Raw     string
	Refined string
	Err     error

	// stopped is set once capture has ended; a session is handed to the
	// worker only once.
	stopped bool
	done    bool
}

func newSession(id uuid.UUID) *Session {
	return &Session{ID: id, Stage: StageIdle}
}

// Final returns the text to deliver: Refined if present, else Raw.
func (s *Session) Final() string {
	if s.Refined != "" {
		return s.Refined
	}
	return s.Raw
}

// advance moves the session to next. Working stages only move forward;
// Error is reachable from any unfinished stage and Idle ends the session.
func (s *Session) advance(next Stage) error {
	if s.done {
		return fmt.Errorf("pipeline: session %s already finished", s.ID)
	}
	switch {
	case next == StageIdle:
		s.done = true
	case next == StageError:
		if s.Stage == StageError {
			return fmt.Errorf("pipeline: session %s already failed", s.ID)
		}
	case s.Stage == StageError || next <= s.Stage:
		return fmt.Errorf("pipeline: invalid transition %s -> %s", s.Stage, next)
	}
	s.Stage = next
	return nil
}
