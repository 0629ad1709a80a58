package miniav

import (
	"sync"
	"sync/atomic"
	"time"
)

// fakeCameraBackend is an in-process camera implementation driving the
// state machine and delivery tests. Its producer ticks fast so tests
// stay short.
type fakeCameraBackend struct {
	name      string
	initErr   error
	configErr error

	// ignoreStop makes StopCapture return without halting the
	// producer, imitating a misbehaving platform layer.
	ignoreStop bool

	mu       sync.Mutex
	format   VideoFormat
	stop     chan struct{}
	wg       sync.WaitGroup
	inits    atomic.Int64
	released atomic.Int64
}

func newFakeCamera(name string) *fakeCameraBackend {
	return &fakeCameraBackend{name: name}
}

func (f *fakeCameraBackend) Name() string { return f.name }

func (f *fakeCameraBackend) Init() error {
	f.inits.Add(1)
	return f.initErr
}

func (f *fakeCameraBackend) Destroy() error {
	f.halt()
	return nil
}

func (f *fakeCameraBackend) EnumerateDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: f.name + ":0", Name: "Fake Camera", IsDefault: true}}, nil
}

func (f *fakeCameraBackend) DefaultFormat(string) (VideoFormat, error) {
	return VideoFormat{Width: 64, Height: 48, PixelFormat: PixelFormatBGRA, FrameRate: FrameRate{Num: 30, Den: 1}}, nil
}

func (f *fakeCameraBackend) SupportedFormats(deviceID string) ([]VideoFormat, error) {
	def, _ := f.DefaultFormat(deviceID)
	return []VideoFormat{def}, nil
}

func (f *fakeCameraBackend) Configure(deviceID string, format VideoFormat) (VideoFormat, error) {
	if f.configErr != nil {
		return VideoFormat{}, f.configErr
	}
	actual, _ := f.DefaultFormat(deviceID)
	if format.Width != 0 {
		actual.Width = format.Width
		actual.Height = format.Height
	}
	f.mu.Lock()
	f.format = actual
	f.mu.Unlock()
	return actual, nil
}

func (f *fakeCameraBackend) StartCapture(deliver DeliverFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		return Errorf(CodeAlreadyRunning, "fake camera already capturing")
	}
	format := f.format
	stop := make(chan struct{})
	f.stop = stop
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		var ts int64
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ts += 2000
				deliver(f.makeBuffer(format, ts))
			}
		}
	}()
	return nil
}

func (f *fakeCameraBackend) StopCapture() error {
	if f.ignoreStop {
		return nil
	}
	f.halt()
	return nil
}

func (f *fakeCameraBackend) halt() {
	f.mu.Lock()
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()
	if stop != nil {
		close(stop)
		f.wg.Wait()
	}
}

func (f *fakeCameraBackend) ReleasePayload(p *Payload) error {
	f.released.Add(1)
	p.Data = nil
	return nil
}

func (f *fakeCameraBackend) makeBuffer(format VideoFormat, ts int64) *Buffer {
	data := make([]byte, format.Width*format.Height*4)
	payload := NewPayload(f, HandleCPU)
	payload.Data = data

	b := &Buffer{
		Type:        BufferVideo,
		ContentType: ContentCPU,
		TimestampUs: ts,
		DataSize:    uint32(len(data)),
		VideoFormat: format,
		PlaneCount:  1,
	}
	b.Planes[0] = Plane{Data: data, Stride: format.Width * 4, Width: format.Width, Height: format.Height}
	b.AttachPayload(payload)
	return b
}

// fakeAudioBackend is a minimal microphone implementation; its device
// list is injectable so enumeration edge cases are testable.
type fakeAudioBackend struct {
	name    string
	devices []DeviceInfo
}

func (f *fakeAudioBackend) Name() string   { return f.name }
func (f *fakeAudioBackend) Init() error    { return nil }
func (f *fakeAudioBackend) Destroy() error { return nil }

func (f *fakeAudioBackend) EnumerateDevices() ([]DeviceInfo, error) {
	return f.devices, nil
}

func (f *fakeAudioBackend) DefaultFormat(string) (AudioFormat, error) {
	return AudioFormat{SampleFormat: SampleFormatF32, SampleRate: 48000, Channels: 2, FramesPerBuffer: 480}, nil
}

func (f *fakeAudioBackend) SupportedFormats(deviceID string) ([]AudioFormat, error) {
	def, _ := f.DefaultFormat(deviceID)
	return []AudioFormat{def}, nil
}

func (f *fakeAudioBackend) Configure(deviceID string, format AudioFormat) (AudioFormat, error) {
	return f.DefaultFormat(deviceID)
}

func (f *fakeAudioBackend) StartCapture(DeliverFunc) error { return nil }
func (f *fakeAudioBackend) StopCapture() error             { return nil }
func (f *fakeAudioBackend) ReleasePayload(*Payload) error  { return nil }
