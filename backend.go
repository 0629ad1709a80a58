package miniav

// DeliverFunc is the path a backend uses to hand a produced buffer to
// the core. It must be invoked synchronously on the backend's producer
// thread, once per frame, in production order.
type DeliverFunc func(*Buffer)

// backendLifecycle is the slice of every backend contract the registry
// needs for selection.
type backendLifecycle interface {
	// Name identifies the backend (e.g. "portal", "synthetic").
	Name() string

	// Init probes availability and initializes platform state. A
	// failing Init means "try the next candidate", never a surfaced
	// error.
	Init() error

	// Destroy frees platform state. The backend is unusable afterward.
	Destroy() error
}

// CameraBackend is the fixed operation set a camera capture
// implementation exposes. Instances are strategy objects selected at
// context creation time; one instance serves exactly one context (or
// one short-lived enumeration) and its state is never shared.
type CameraBackend interface {
	backendLifecycle
	PayloadReleaser

	EnumerateDevices() ([]DeviceInfo, error)
	DefaultFormat(deviceID string) (VideoFormat, error)
	SupportedFormats(deviceID string) ([]VideoFormat, error)

	// Configure binds a device and negotiates the format, returning the
	// backend-adjusted actual format. An empty deviceID selects the
	// default device; a zero format requests the device default.
	Configure(deviceID string, format VideoFormat) (VideoFormat, error)

	// StartCapture starts the producer. It must return without blocking
	// for the first frame, and guarantee deliver fires exactly once per
	// produced frame until StopCapture or a fatal backend fault.
	StartCapture(deliver DeliverFunc) error

	// StopCapture silences the producer. It must not return before no
	// further deliver invocation can occur.
	StopCapture() error
}

// TargetKind classifies screen capture targets.
type TargetKind int32

const (
	TargetDisplay TargetKind = iota
	TargetWindow
)

func (k TargetKind) String() string {
	switch k {
	case TargetDisplay:
		return "display"
	case TargetWindow:
		return "window"
	default:
		return "unknown"
	}
}

// ScreenTarget is an enumerable display or window.
type ScreenTarget struct {
	ID        string
	Name      string
	Kind      TargetKind
	IsDefault bool
	Width     uint32
	Height    uint32
}

// Region is a sub-rectangle of a display, in display coordinates.
type Region struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// ScreenOptions carries the capture options shared by every screen
// configure variant.
type ScreenOptions struct {
	// IncludeAudio taps system audio alongside video where the backend
	// supports it.
	IncludeAudio bool

	// IncludeCursor embeds the cursor into delivered frames.
	IncludeCursor bool
}

// ScreenBackend is the fixed operation set of a screen capture
// implementation.
type ScreenBackend interface {
	backendLifecycle
	PayloadReleaser

	EnumerateTargets(kind TargetKind) ([]ScreenTarget, error)
	DefaultFormat(targetID string) (VideoFormat, error)

	ConfigureDisplay(targetID string, format VideoFormat, opts ScreenOptions) (VideoFormat, error)
	ConfigureWindow(targetID string, format VideoFormat, opts ScreenOptions) (VideoFormat, error)
	ConfigureRegion(targetID string, region Region, format VideoFormat, opts ScreenOptions) (VideoFormat, error)

	// AudioFormat reports the format of tapped audio after a configure
	// with IncludeAudio; zero when audio is not part of the session.
	AudioFormat() AudioFormat

	StartCapture(deliver DeliverFunc) error
	StopCapture() error
}

// AudioInputBackend is the fixed operation set of a microphone capture
// implementation.
type AudioInputBackend interface {
	backendLifecycle
	PayloadReleaser

	EnumerateDevices() ([]DeviceInfo, error)
	DefaultFormat(deviceID string) (AudioFormat, error)
	SupportedFormats(deviceID string) ([]AudioFormat, error)
	Configure(deviceID string, format AudioFormat) (AudioFormat, error)
	StartCapture(deliver DeliverFunc) error
	StopCapture() error
}

// LoopbackTargetKind classifies the audio source a loopback session
// taps.
type LoopbackTargetKind int32

const (
	LoopbackSystemOutput LoopbackTargetKind = iota
	LoopbackProcess
	LoopbackWindow
)

func (k LoopbackTargetKind) String() string {
	switch k {
	case LoopbackSystemOutput:
		return "system-output"
	case LoopbackProcess:
		return "process"
	case LoopbackWindow:
		return "window"
	default:
		return "unknown"
	}
}

// LoopbackTarget is an enumerable loopback source.
type LoopbackTarget struct {
	ID        string
	Name      string
	Kind      LoopbackTargetKind
	ProcessID uint32
	IsDefault bool
}

// LoopbackBackend is the fixed operation set of a system-audio loopback
// implementation.
type LoopbackBackend interface {
	backendLifecycle
	PayloadReleaser

	EnumerateTargets() ([]LoopbackTarget, error)
	DefaultFormat(targetID string) (AudioFormat, error)
	Configure(targetID string, format AudioFormat) (AudioFormat, error)
	StartCapture(deliver DeliverFunc) error
	StopCapture() error
}
