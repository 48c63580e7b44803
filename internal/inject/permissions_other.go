//go:build !darwin

package inject

// SystemPermissions is always trusted outside macOS; X11 and Windows do not
// gate synthetic input.
type SystemPermissions struct{}

// Trusted reports true.
func (SystemPermissions) Trusted() bool { return true }

// Remedy is unused on this platform.
func (SystemPermissions) Remedy() string {
	return "Grant this process permission to control the keyboard."
}
