//go:build darwin

package inject

/*
#cgo darwin LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
*/
import "C"

// SystemPermissions queries the macOS accessibility trust list.
type SystemPermissions struct{}

// Trusted reports whether this process may post synthetic input events.
func (SystemPermissions) Trusted() bool {
	return bool(C.AXIsProcessTrusted())
}

// Remedy names the settings panel that grants the permission.
func (SystemPermissions) Remedy() string {
	return "Open System Settings > Privacy & Security > Accessibility and allow voxpaste (or your terminal), then restart it."
}
