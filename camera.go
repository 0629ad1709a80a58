package miniav

import "sync"

// Camera is a camera capture context. Create with NewCamera, then
// Configure, StartCapture, StopCapture, Destroy. A Camera is safe for
// concurrent use; its backend state is exclusively owned and never
// shared with another context.
type Camera struct {
	mu   sync.Mutex
	core contextCore
	ops  CameraBackend

	format     VideoFormat
	haveFormat bool
}

// NewCamera selects and initializes the highest-priority available
// camera backend and returns a context in the Created state. Returns
// NotSupported when every candidate fails to initialize.
func NewCamera() (*Camera, error) {
	ops, err := selectBackend(KindCamera, &cameraRegistry)
	if err != nil {
		return nil, err
	}
	return &Camera{core: newContextCore(KindCamera), ops: ops}, nil
}

// Backend reports the name of the selected backend.
func (c *Camera) Backend() string {
	if c == nil {
		return ""
	}
	return c.ops.Name()
}

// Configure binds a device and negotiates a capture format. Illegal
// while capturing. On success the backend-adjusted actual format is
// stored; on failure the stored format resets and the context drops
// back to the Created state.
func (c *Camera) Configure(deviceID string, format VideoFormat) error {
	if c == nil {
		return errNilContext("camera")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.core.guardConfigure(); err != nil {
		return err
	}

	actual, err := c.ops.Configure(deviceID, format)
	if err != nil {
		c.format = VideoFormat{}
		c.haveFormat = false
		c.core.finishConfigure(false)
		return err
	}
	c.format = actual
	c.haveFormat = true
	c.core.finishConfigure(true)
	return nil
}

// ConfiguredFormat returns the negotiated format of the last successful
// Configure. Fails with NotInitialized before one.
func (c *Camera) ConfiguredFormat() (VideoFormat, error) {
	if c == nil {
		return VideoFormat{}, errNilContext("camera")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.core.state == stateDestroyed {
		return VideoFormat{}, Errorf(CodeInvalidHandle, "camera context used after destroy")
	}
	if !c.haveFormat {
		return VideoFormat{}, Errorf(CodeNotInitialized, "camera context has no configured format")
	}
	return c.format, nil
}

// StartCapture starts the backend producer. cb fires exactly once per
// produced frame, in production order, on the backend's own thread,
// until StopCapture or a fatal backend fault. StartCapture returns
// without blocking for the first frame.
func (c *Camera) StartCapture(cb BufferCallback, userData any) error {
	if c == nil {
		return errNilContext("camera")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.start(cb, userData, c.ops.StartCapture)
}

// StopCapture silences the producer. After it returns no further
// callback fires for this context; a callback already in progress runs
// to completion first.
func (c *Camera) StopCapture() error {
	if c == nil {
		return errNilContext("camera")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.stop(c.ops.StopCapture)
}

// Destroy stops capture best-effort if running and frees backend state.
// Any later operation on the context fails with InvalidHandle.
func (c *Camera) Destroy() error {
	if c == nil {
		return errNilContext("camera")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.destroy(c.ops.StopCapture, c.ops.Destroy)
}

// EnumerateCameraDevices lists camera devices through the
// highest-priority available backend. The enumeration opens a
// short-lived, independent backend instance and may run concurrently
// with an unrelated context's active capture. A machine with no devices
// yields an empty list, not an error.
func EnumerateCameraDevices() ([]DeviceInfo, error) {
	b, err := selectBackend(KindCamera, &cameraRegistry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Destroy() }()
	devices, err := b.EnumerateDevices()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []DeviceInfo{}
	}
	return devices, nil
}

// CameraDefaultFormat reports the default format of a device. An empty
// deviceID selects the default device.
func CameraDefaultFormat(deviceID string) (VideoFormat, error) {
	b, err := selectBackend(KindCamera, &cameraRegistry)
	if err != nil {
		return VideoFormat{}, err
	}
	defer func() { _ = b.Destroy() }()
	return b.DefaultFormat(deviceID)
}

// CameraSupportedFormats lists the formats a device supports.
func CameraSupportedFormats(deviceID string) ([]VideoFormat, error) {
	b, err := selectBackend(KindCamera, &cameraRegistry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Destroy() }()
	return b.SupportedFormats(deviceID)
}
