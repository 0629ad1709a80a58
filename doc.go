// Package miniav unifies camera, screen, microphone and system-loopback
// audio capture behind one buffer/context model.
//
// # Overview
//
// Each capture kind (camera, screen, audio input, loopback) is driven
// through a context: create it, configure a device and format, start
// capture with a callback, stop, destroy. Platform backends implement a
// fixed operation set and are tried in priority order at context
// creation time; the first backend that initializes wins.
//
//	cam, err := miniav.NewCamera()
//	if err != nil {
//	    // no camera backend available on this system
//	}
//	defer cam.Destroy()
//
//	if err := cam.Configure("", miniav.VideoFormat{}); err != nil {
//	    // device not found, format not supported, ...
//	}
//	err = cam.StartCapture(func(b *miniav.Buffer, userData any) {
//	    // b is valid only for the duration of this call
//	    defer b.Release()
//	    process(b)
//	}, nil)
//
// # Buffer ownership
//
// Buffers wrap native capture memory: CPU planes, DMA-BUF descriptors,
// GPU texture handles. The callback must not retain a Buffer beyond its
// own scope and must release it exactly once. Release dispatches to the
// backend that produced the buffer; the representation-specific cleanup
// (returning pooled memory, closing an fd, dropping a texture
// reference) never leaks into application code.
//
// # Backends
//
// Backend packages self-register on import, so enabling a backend is a
// blank import:
//
//	import _ "github.com/MichealReed/miniav/backend/synthetic"
//
// A system with no registered backend for a kind reports NotSupported
// at context creation, not a different API shape.
//
// # Threading
//
// The callback fires synchronously on the backend's own producer
// thread, one frame at a time, in production order. StopCapture blocks
// until no further callback invocation can occur. The package adds no
// internal queueing; backpressure follows the platform API's own
// drop or block policy.
package miniav
