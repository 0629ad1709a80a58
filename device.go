package miniav

import "fmt"

// DeviceInfo identifies an enumerable capture device. Values are
// immutable and produced only by enumeration.
type DeviceInfo struct {
	// ID is the opaque identifier passed to Configure. Stable for the
	// lifetime of the device connection, not across reboots.
	ID string

	// Name is the human-readable device name.
	Name string

	// IsDefault marks the platform's default device.
	IsDefault bool
}

// PixelFormat enumerates the video pixel layouts a backend may deliver.
type PixelFormat int32

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatBGRA
	PixelFormatRGBA
	PixelFormatNV12
	PixelFormatI420
	PixelFormatYUY2
	PixelFormatMJPEG
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGRA:
		return "BGRA"
	case PixelFormatRGBA:
		return "RGBA"
	case PixelFormatNV12:
		return "NV12"
	case PixelFormatI420:
		return "I420"
	case PixelFormatYUY2:
		return "YUY2"
	case PixelFormatMJPEG:
		return "MJPEG"
	default:
		return "unknown"
	}
}

// OutputPreference selects where the application wants frame data to
// live. GPU output is a preference, not a guarantee: backends without a
// zero-copy path fall back to CPU.
type OutputPreference int32

const (
	OutputCPU OutputPreference = iota
	OutputGPUWhenAvailable
)

// FrameRate is an exact rational frame rate.
type FrameRate struct {
	Num uint32
	Den uint32
}

func (r FrameRate) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r FrameRate) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// VideoFormat describes a negotiated or requested video mode. A zero
// VideoFormat passed to Configure means "use the backend default".
type VideoFormat struct {
	Width       uint32
	Height      uint32
	PixelFormat PixelFormat
	FrameRate   FrameRate
	Output      OutputPreference
}

// IsZero reports whether the format carries no constraints.
func (f VideoFormat) IsZero() bool {
	return f.Width == 0 && f.Height == 0 &&
		f.PixelFormat == PixelFormatUnknown &&
		f.FrameRate == (FrameRate{})
}

func (f VideoFormat) String() string {
	return fmt.Sprintf("%dx%d@%s %s", f.Width, f.Height, f.FrameRate, f.PixelFormat)
}

// SampleFormat enumerates audio sample layouts.
type SampleFormat int32

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatS16
	SampleFormatS32
	SampleFormatF32
)

func (s SampleFormat) String() string {
	switch s {
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the per-sample width, 0 for unknown.
func (s SampleFormat) BytesPerSample() int {
	switch s {
	case SampleFormatS16:
		return 2
	case SampleFormatS32, SampleFormatF32:
		return 4
	default:
		return 0
	}
}

// AudioFormat describes a negotiated or requested audio mode. A zero
// AudioFormat passed to Configure means "use the backend default".
type AudioFormat struct {
	SampleFormat    SampleFormat
	SampleRate      uint32
	Channels        uint32
	FramesPerBuffer uint32
}

func (f AudioFormat) IsZero() bool {
	return f.SampleFormat == SampleFormatUnknown && f.SampleRate == 0 &&
		f.Channels == 0 && f.FramesPerBuffer == 0
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%s %dHz %dch %dfpb", f.SampleFormat, f.SampleRate, f.Channels, f.FramesPerBuffer)
}
