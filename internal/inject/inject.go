// Package inject delivers text into the application that has input focus by
// writing it to the system clipboard and synthesizing a paste chord.
//
// The user's previous clipboard contents are not saved or restored: a
// restore could overwrite something the user copies while a paste is in
// flight.
package inject

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Delivery timings. Slow targets such as terminal emulators need the long
// settle delay before the clipboard may change again.
const (
	DefaultAttempts     = 2
	DefaultClearDelay   = 20 * time.Millisecond
	DefaultWriteDelay   = 30 * time.Millisecond
	DefaultSettleDelay  = 350 * time.Millisecond
	DefaultRetryBackoff = 90 * time.Millisecond
)

var (
	// ErrPermissionDenied is returned when the process may not post
	// synthetic input events.
	ErrPermissionDenied = errors.New("inject: accessibility permission not granted")
	// ErrDeliveryFailed is returned when every delivery attempt failed.
	ErrDeliveryFailed = errors.New("inject: delivery failed")
)

// PermissionError tells the user where to grant the missing permission.
type PermissionError struct {
	Remedy string
}

func (e *PermissionError) Error() string {
	return ErrPermissionDenied.Error() + ": " + e.Remedy
}

// Unwrap makes errors.Is(err, ErrPermissionDenied) hold.
func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// TextInjector delivers text to the focused application.
type TextInjector interface {
	Inject(text string) error
}

// Permissions reports whether synthetic input is allowed.
type Permissions interface {
	Trusted() bool
	// Remedy names the settings panel where the permission is granted.
	Remedy() string
}

// Clipboard is the system clipboard's text slot.
type Clipboard interface {
	Clear() error
	WriteText(text string) error
}

// Keyboard posts the platform paste chord.
type Keyboard interface {
	Paste() error
}

// Timing holds the delays of one delivery attempt and the retry policy.
type Timing struct {
	Attempts     int
	ClearDelay   time.Duration
	WriteDelay   time.Duration
	SettleDelay  time.Duration
	RetryBackoff time.Duration
}

// DefaultTiming returns the tuned delivery timings.
func DefaultTiming() Timing {
	return Timing{
		Attempts:     DefaultAttempts,
		ClearDelay:   DefaultClearDelay,
		WriteDelay:   DefaultWriteDelay,
		SettleDelay:  DefaultSettleDelay,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Injector runs the clipboard paste sequence with retries. Calls must not
// overlap; the pipeline runs at most one delivery at a time.
type Injector struct {
	perms     Permissions
	clipboard Clipboard
	keyboard  Keyboard
	timing    Timing
	sleep     func(time.Duration)
	onAttempt func(attempt int, err error)
}

// Compile-time interface satisfaction check.
var _ TextInjector = (*Injector)(nil)

// Option configures an Injector.
type Option func(*Injector)

// WithTiming overrides the delivery timings. Attempts below 1 are raised to 1.
func WithTiming(t Timing) Option {
	return func(inj *Injector) {
		if t.Attempts < 1 {
			t.Attempts = 1
		}
		inj.timing = t
	}
}

// WithSleep replaces time.Sleep, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(inj *Injector) { inj.sleep = fn }
}

// WithAttemptHook is called after every delivery attempt with its 1-based
// number and outcome.
func WithAttemptHook(fn func(attempt int, err error)) Option {
	return func(inj *Injector) { inj.onAttempt = fn }
}

// NewInjector creates an Injector over the given OS substrate.
func NewInjector(perms Permissions, cb Clipboard, kb Keyboard, opts ...Option) *Injector {
	inj := &Injector{
		perms:     perms,
		clipboard: cb,
		keyboard:  kb,
		timing:    DefaultTiming(),
		sleep:     time.Sleep,
	}
	for _, o := range opts {
		o(inj)
	}
	return inj
}

// NewSystemInjector creates an Injector over the real clipboard, keyboard
// and accessibility permission.
func NewSystemInjector(opts ...Option) *Injector {
	return NewInjector(SystemPermissions{}, SystemClipboard{}, NewRobotKeyboard(), opts...)
}

// Inject delivers text to the focused application. Blank text succeeds
// without touching the clipboard or keyboard. The permission check happens
// before any clipboard mutation.
func (inj *Injector) Inject(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if !inj.perms.Trusted() {
		return &PermissionError{Remedy: inj.perms.Remedy()}
	}

	var lastErr error
	for attempt := 1; attempt <= inj.timing.Attempts; attempt++ {
		if attempt > 1 {
			inj.sleep(inj.timing.RetryBackoff)
		}
		lastErr = inj.deliver(text)
		if inj.onAttempt != nil {
			inj.onAttempt(attempt, lastErr)
		}
		if lastErr == nil {
			return nil
		}
		slog.Warn("inject: delivery attempt failed", "attempt", attempt, "error", lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, inj.timing.Attempts, lastErr)
}

// deliver runs one clear, write, paste, settle sequence.
func (inj *Injector) deliver(text string) error {
	if err := inj.clipboard.Clear(); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	inj.sleep(inj.timing.ClearDelay)

	if err := inj.clipboard.WriteText(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	inj.sleep(inj.timing.WriteDelay)

	if err := inj.keyboard.Paste(); err != nil {
		return fmt.Errorf("post paste chord: %w", err)
	}
	inj.sleep(inj.timing.SettleDelay)
	return nil
}
