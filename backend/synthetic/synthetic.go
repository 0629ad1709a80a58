// Package synthetic implements an always-available capture backend for
// every capture kind: a moving test pattern for video and a sine tone
// for audio. It exists so the capture pipeline can run without any
// platform subsystem (in tests, on CI, as a development fallback) while
// exercising the same buffer, payload and release contract a native
// backend does.
//
// Importing the package registers its backends at fallback priority:
//
//	import _ "github.com/MichealReed/miniav/backend/synthetic"
package synthetic

import (
	"github.com/MichealReed/miniav"
)

// Name is the backend identifier reported by every synthetic backend.
const Name = "synthetic"

func init() {
	miniav.RegisterCameraBackend(Name, miniav.PriorityFallback, func() miniav.CameraBackend {
		return newCameraBackend()
	})
	miniav.RegisterScreenBackend(Name, miniav.PriorityFallback, func() miniav.ScreenBackend {
		return newScreenBackend()
	})
	miniav.RegisterAudioInputBackend(Name, miniav.PriorityFallback, func() miniav.AudioInputBackend {
		return newAudioInputBackend()
	})
	miniav.RegisterLoopbackBackend(Name, miniav.PriorityFallback, func() miniav.LoopbackBackend {
		return newLoopbackBackend()
	})
}
