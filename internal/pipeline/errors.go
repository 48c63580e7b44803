package pipeline

import (
	"errors"
	"fmt"

	"github.com/chaz8081/voxpaste/internal/inject"
)

// ErrSessionActive is returned when a capture starts while another session
// is still in flight.
var ErrSessionActive = errors.New("pipeline: session already active")

// ErrorKind classifies failures that end a session in the Error stage.
type ErrorKind int

const (
	PermissionDenied ErrorKind = iota
	EngineFailure
	DeliveryFailure
	CaptureFailure
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case EngineFailure:
		return "engine_failure"
	case DeliveryFailure:
		return "delivery_failure"
	case CaptureFailure:
		return "capture_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SessionError is an unrecoverable failure inside one stage.
type SessionError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("pipeline: %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// UserMessage is the text shown in the Error status.
func (e *SessionError) UserMessage() string {
	switch e.Kind {
	case PermissionDenied:
		var perr *inject.PermissionError
		if errors.As(e.Err, &perr) && perr.Remedy != "" {
			return "Accessibility permission required. " + perr.Remedy
		}
		return "Accessibility permission required."
	case EngineFailure:
		return "Transcription failed: " + e.Err.Error()
	case DeliveryFailure:
		return "Could not paste the text into the focused app."
	case CaptureFailure:
		return "Could not start recording: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

// classifyInjectErr maps an injection error to its kind.
func classifyInjectErr(err error) ErrorKind {
	if errors.Is(err, inject.ErrPermissionDenied) {
		return PermissionDenied
	}
	return DeliveryFailure
}
