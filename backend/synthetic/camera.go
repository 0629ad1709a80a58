package synthetic

import (
	"sync"
	"time"

	"github.com/MichealReed/miniav"
)

var cameraDevices = []miniav.DeviceInfo{
	{ID: "synthetic:0", Name: "Synthetic Camera", IsDefault: true},
	{ID: "synthetic:1", Name: "Synthetic Camera (secondary)"},
}

var cameraFormats = []miniav.VideoFormat{
	{Width: 640, Height: 480, PixelFormat: miniav.PixelFormatBGRA, FrameRate: miniav.FrameRate{Num: 30, Den: 1}},
	{Width: 1280, Height: 720, PixelFormat: miniav.PixelFormatBGRA, FrameRate: miniav.FrameRate{Num: 30, Den: 1}},
	{Width: 1920, Height: 1080, PixelFormat: miniav.PixelFormatBGRA, FrameRate: miniav.FrameRate{Num: 30, Den: 1}},
}

type cameraBackend struct {
	mu       sync.Mutex
	deviceID string
	format   miniav.VideoFormat
	pool     *framePool
	prod     *producer
}

func newCameraBackend() *cameraBackend { return &cameraBackend{} }

func (b *cameraBackend) Name() string { return Name }

func (b *cameraBackend) Init() error { return nil }

func (b *cameraBackend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		b.prod.halt()
		b.prod = nil
	}
	return nil
}

func (b *cameraBackend) EnumerateDevices() ([]miniav.DeviceInfo, error) {
	out := make([]miniav.DeviceInfo, len(cameraDevices))
	copy(out, cameraDevices)
	return out, nil
}

func (b *cameraBackend) DefaultFormat(deviceID string) (miniav.VideoFormat, error) {
	if _, err := lookupCameraDevice(deviceID); err != nil {
		return miniav.VideoFormat{}, err
	}
	return cameraFormats[0], nil
}

func (b *cameraBackend) SupportedFormats(deviceID string) ([]miniav.VideoFormat, error) {
	if _, err := lookupCameraDevice(deviceID); err != nil {
		return nil, err
	}
	out := make([]miniav.VideoFormat, len(cameraFormats))
	copy(out, cameraFormats)
	return out, nil
}

func (b *cameraBackend) Configure(deviceID string, format miniav.VideoFormat) (miniav.VideoFormat, error) {
	dev, err := lookupCameraDevice(deviceID)
	if err != nil {
		return miniav.VideoFormat{}, err
	}

	actual := negotiateVideo(format, cameraFormats)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic camera is capturing")
	}
	b.deviceID = dev.ID
	b.format = actual
	b.pool = newFramePool(int(actual.Width) * int(actual.Height) * 4)
	return actual, nil
}

func (b *cameraBackend) StartCapture(deliver miniav.DeliverFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deviceID == "" {
		return miniav.Errorf(miniav.CodeNotConfigured, "synthetic camera has no configured device")
	}
	if b.prod != nil {
		return miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic camera is capturing")
	}

	format := b.format
	pool := b.pool
	interval := frameInterval(format.FrameRate)
	b.prod = startProducer(interval, deliver, func(d miniav.DeliverFunc, elapsed time.Duration, seq uint64) {
		d(makeVideoBuffer(pool, format, elapsed, seq))
	})
	miniav.Logger().WithField("backend", Name).
		WithField("device", b.deviceID).
		WithField("format", format.String()).Debug("camera producer started")
	return nil
}

func (b *cameraBackend) StopCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod == nil {
		return miniav.Errorf(miniav.CodeNotRunning, "synthetic camera is not capturing")
	}
	b.prod.halt()
	b.prod = nil
	return nil
}

// ReleasePayload serves direct calls through the backend interface.
// Payloads fabricated for delivery dispatch to their pool instead, so a
// release racing a reconfigure never sees a swapped pool.
func (b *cameraBackend) ReleasePayload(p *miniav.Payload) error {
	b.mu.Lock()
	pool := b.pool
	b.mu.Unlock()
	return releaseCPUPayload(pool, p)
}

func lookupCameraDevice(deviceID string) (miniav.DeviceInfo, error) {
	if deviceID == "" {
		return cameraDevices[0], nil
	}
	for _, d := range cameraDevices {
		if d.ID == deviceID {
			return d, nil
		}
	}
	return miniav.DeviceInfo{}, miniav.Errorf(miniav.CodeDeviceNotFound, "no synthetic camera %q", deviceID)
}

// negotiateVideo snaps a requested format onto the nearest supported
// mode. The result is compatible with the request, not necessarily
// identical.
func negotiateVideo(req miniav.VideoFormat, supported []miniav.VideoFormat) miniav.VideoFormat {
	if req.IsZero() {
		return supported[0]
	}

	best := supported[0]
	bestDiff := int64(-1)
	for _, f := range supported {
		dw := int64(f.Width) - int64(req.Width)
		dh := int64(f.Height) - int64(req.Height)
		diff := dw*dw + dh*dh
		if bestDiff < 0 || diff < bestDiff {
			best = f
			bestDiff = diff
		}
	}
	if req.FrameRate.Num > 0 && req.FrameRate.Den > 0 {
		best.FrameRate = req.FrameRate
	}
	best.Output = miniav.OutputCPU
	return best
}

func frameInterval(rate miniav.FrameRate) time.Duration {
	fps := rate.Float()
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}

// fillTestPattern writes a moving horizontal gradient. Kept row-wise so
// frame production stays cheap at high resolutions.
func fillTestPattern(data []byte, width, height int, seq uint64) {
	stride := width * 4
	for y := 0; y < height; y++ {
		v := byte((uint64(y) + seq) & 0xff)
		row := data[y*stride : y*stride+stride]
		for i := 0; i < len(row); i += 4 {
			row[i] = v          // B
			row[i+1] = v ^ 0x80 // G
			row[i+2] = 255 - v  // R
			row[i+3] = 0xff     // A
		}
	}
}

func releaseCPUPayload(pool *framePool, p *miniav.Payload) error {
	if p == nil {
		return miniav.Errorf(miniav.CodeInvalidArg, "release of nil payload")
	}
	if p.Kind != miniav.HandleCPU {
		return miniav.Errorf(miniav.CodeInvalidHandle, "synthetic backend cannot release %v payload", p.Kind)
	}
	if pool != nil && p.Data != nil {
		pool.put(p.Data)
	}
	p.Data = nil
	return nil
}
