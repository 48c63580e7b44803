package inject

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

// Clear empties the clipboard's text slot.
func (SystemClipboard) Clear() error {
	if err := clipboard.WriteAll(""); err != nil {
		return fmt.Errorf("inject: clear clipboard: %w", err)
	}
	return nil
}

// WriteText replaces the clipboard's text.
func (SystemClipboard) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write clipboard: %w", err)
	}
	return nil
}

// RobotKeyboard posts the paste chord as four separate key events so the
// focused application sees a real modifier press.
type RobotKeyboard struct {
	modifier string
}

// NewRobotKeyboard returns a keyboard using cmd on macOS and ctrl elsewhere.
func NewRobotKeyboard() RobotKeyboard {
	if runtime.GOOS == "darwin" {
		return RobotKeyboard{modifier: "cmd"}
	}
	return RobotKeyboard{modifier: "ctrl"}
}

// Paste sends modifier-down, v-down, v-up, modifier-up.
func (k RobotKeyboard) Paste() error {
	steps := []struct {
		key  string
		args []interface{}
	}{
		{k.modifier, []interface{}{"down"}},
		{"v", []interface{}{"down", k.modifier}},
		{"v", []interface{}{"up", k.modifier}},
		{k.modifier, []interface{}{"up"}},
	}
	for _, s := range steps {
		if err := robotgo.KeyToggle(s.key, s.args...); err != nil {
			// never leave the modifier held
			_ = robotgo.KeyToggle(k.modifier, "up")
			return fmt.Errorf("inject: key %s %v: %w", s.key, s.args[0], err)
		}
	}
	return nil
}
