package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chaz8081/voxpaste/internal/inject"
)

func TestSessionAdvance(t *testing.T) {
	tests := []struct {
		name    string
		path    []Stage
		wantErr bool
	}{
		{"full success", []Stage{StageRecording, StageTranscribing, StageRefining, StageInjecting, StageIdle}, false},
		{"silence", []Stage{StageRecording, StageIdle}, false},
		{"error from transcribing", []Stage{StageRecording, StageTranscribing, StageError, StageIdle}, false},
		{"error before recording", []Stage{StageError, StageIdle}, false},
		{"regression", []Stage{StageRecording, StageTranscribing, StageRecording}, true},
		{"repeat", []Stage{StageRecording, StageRecording}, true},
		{"after error", []Stage{StageRecording, StageError, StageInjecting}, true},
		{"double error", []Stage{StageRecording, StageError, StageError}, true},
		{"after idle", []Stage{StageRecording, StageIdle, StageTranscribing}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(uuid.New())
			var err error
			for _, st := range tt.path {
				if err = s.advance(st); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("advance error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionFinal(t *testing.T) {
	s := &Session{Raw: "raw"}
	if got := s.Final(); got != "raw" {
		t.Errorf("Final() = %q, want raw", got)
	}
	s.Refined = "refined"
	if got := s.Final(); got != "refined" {
		t.Errorf("Final() = %q, want refined", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"hello", "hello"},
		{"  帮我 \n写一下\t\t这个 ", "帮我 写一下 这个"},
		{"a\r\n\r\nb", "a b"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	short := "短文本"
	if got := Preview(short, 64); got != short {
		t.Errorf("Preview(short) = %q", got)
	}

	long := strings.Repeat("字", 100)
	got := Preview(long, 10)
	if n := len([]rune(got)); n != 10 {
		t.Errorf("Preview rune count = %d, want 10", n)
	}
	if !strings.Contains(got, "…") {
		t.Errorf("Preview(%q) has no ellipsis", got)
	}

	if got := Preview("abcdefghij", 5); got != "ab…ij" {
		t.Errorf("Preview = %q, want ab…ij", got)
	}
}

func TestSessionErrorUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		want string
	}{
		{
			name: "permission",
			err:  &SessionError{Kind: PermissionDenied, Err: &inject.PermissionError{Remedy: "Open Settings."}},
			want: "Accessibility permission required. Open Settings.",
		},
		{
			name: "engine",
			err:  &SessionError{Kind: EngineFailure, Err: errors.New("model crashed")},
			want: "Transcription failed: model crashed",
		},
		{
			name: "delivery",
			err:  &SessionError{Kind: DeliveryFailure, Err: inject.ErrDeliveryFailed},
			want: "Could not paste the text into the focused app.",
		},
		{
			name: "capture",
			err:  &SessionError{Kind: CaptureFailure, Err: errors.New("no device")},
			want: "Could not start recording: no device",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.UserMessage(); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyInjectErr(t *testing.T) {
	perm := fmt.Errorf("wrapped: %w", &inject.PermissionError{Remedy: "x"})
	if got := classifyInjectErr(perm); got != PermissionDenied {
		t.Errorf("classify(permission) = %v", got)
	}
	if got := classifyInjectErr(inject.ErrDeliveryFailed); got != DeliveryFailure {
		t.Errorf("classify(delivery) = %v", got)
	}
}

func TestStageString(t *testing.T) {
	if StageTranscribing.String() != "transcribing" || Stage(42).String() != "stage(42)" {
		t.Errorf("unexpected Stage strings: %s %s", StageTranscribing, Stage(42))
	}
}
