// Package portal implements screen capture on Linux through the
// xdg-desktop-portal ScreenCast interface, with frames delivered by
// PipeWire. The portal owns target selection: the compositor presents
// its chooser during configure, so enumeration reports chooser entry
// points rather than concrete displays.
//
// Importing the package registers the backend (on Linux only) above
// fallback priority:
//
//	import _ "github.com/MichealReed/miniav/backend/portal"
//
// Selection falls through to the next candidate when no session bus or
// PipeWire library is present.
package portal

// Name is the backend identifier.
const Name = "portal"
