package synthetic

import (
	"sync"
	"time"

	"github.com/MichealReed/miniav"
)

var screenDisplays = []miniav.ScreenTarget{
	{ID: "display:0", Name: "Synthetic Display", Kind: miniav.TargetDisplay, IsDefault: true, Width: 1920, Height: 1080},
	{ID: "display:1", Name: "Synthetic Display (secondary)", Kind: miniav.TargetDisplay, Width: 1280, Height: 1024},
}

var screenWindows = []miniav.ScreenTarget{
	{ID: "window:1001", Name: "Synthetic Editor", Kind: miniav.TargetWindow, Width: 1024, Height: 768},
	{ID: "window:1002", Name: "Synthetic Browser", Kind: miniav.TargetWindow, Width: 800, Height: 600},
}

const (
	screenAudioRate   = 48000
	screenAudioFrames = 480
)

type screenBackend struct {
	mu          sync.Mutex
	targetID    string
	videoFormat miniav.VideoFormat
	audioFormat miniav.AudioFormat
	pool        *framePool
	prod        *producer
}

func newScreenBackend() *screenBackend { return &screenBackend{} }

func (b *screenBackend) Name() string { return Name }

func (b *screenBackend) Init() error { return nil }

func (b *screenBackend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		b.prod.halt()
		b.prod = nil
	}
	return nil
}

func (b *screenBackend) EnumerateTargets(kind miniav.TargetKind) ([]miniav.ScreenTarget, error) {
	var src []miniav.ScreenTarget
	switch kind {
	case miniav.TargetDisplay:
		src = screenDisplays
	case miniav.TargetWindow:
		src = screenWindows
	default:
		return nil, miniav.Errorf(miniav.CodeInvalidArg, "unknown target kind %d", kind)
	}
	out := make([]miniav.ScreenTarget, len(src))
	copy(out, src)
	return out, nil
}

func (b *screenBackend) DefaultFormat(targetID string) (miniav.VideoFormat, error) {
	t, err := lookupScreenTarget(targetID)
	if err != nil {
		return miniav.VideoFormat{}, err
	}
	return miniav.VideoFormat{
		Width:       t.Width,
		Height:      t.Height,
		PixelFormat: miniav.PixelFormatBGRA,
		FrameRate:   miniav.FrameRate{Num: 30, Den: 1},
	}, nil
}

func (b *screenBackend) ConfigureDisplay(targetID string, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	t, err := lookupScreenTarget(targetID)
	if err != nil {
		return miniav.VideoFormat{}, err
	}
	if t.Kind != miniav.TargetDisplay {
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeInvalidArg, "%q is not a display target", t.ID)
	}
	return b.apply(t, t.Width, t.Height, format, opts)
}

func (b *screenBackend) ConfigureWindow(targetID string, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	t, err := lookupScreenWindow(targetID)
	if err != nil {
		return miniav.VideoFormat{}, err
	}
	return b.apply(t, t.Width, t.Height, format, opts)
}

func (b *screenBackend) ConfigureRegion(targetID string, region miniav.Region, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	t, err := lookupScreenTarget(targetID)
	if err != nil {
		return miniav.VideoFormat{}, err
	}
	if region.X < 0 || region.Y < 0 ||
		uint32(region.X)+region.Width > t.Width ||
		uint32(region.Y)+region.Height > t.Height {
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeInvalidArg,
			"region %dx%d+%d+%d exceeds %q (%dx%d)",
			region.Width, region.Height, region.X, region.Y, t.ID, t.Width, t.Height)
	}
	return b.apply(t, region.Width, region.Height, format, opts)
}

func (b *screenBackend) apply(t miniav.ScreenTarget, width, height uint32, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	actual := miniav.VideoFormat{
		Width:       width,
		Height:      height,
		PixelFormat: miniav.PixelFormatBGRA,
		FrameRate:   miniav.FrameRate{Num: 30, Den: 1},
	}
	if format.FrameRate.Num > 0 && format.FrameRate.Den > 0 {
		actual.FrameRate = format.FrameRate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic screen is capturing")
	}
	b.targetID = t.ID
	b.videoFormat = actual
	b.pool = newFramePool(int(actual.Width) * int(actual.Height) * 4)
	if opts.IncludeAudio {
		b.audioFormat = miniav.AudioFormat{
			SampleFormat:    miniav.SampleFormatF32,
			SampleRate:      screenAudioRate,
			Channels:        2,
			FramesPerBuffer: screenAudioFrames,
		}
	} else {
		b.audioFormat = miniav.AudioFormat{}
	}
	return actual, nil
}

func (b *screenBackend) AudioFormat() miniav.AudioFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.audioFormat
}

func (b *screenBackend) StartCapture(deliver miniav.DeliverFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.targetID == "" {
		return miniav.Errorf(miniav.CodeNotConfigured, "synthetic screen has no configured target")
	}
	if b.prod != nil {
		return miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic screen is capturing")
	}

	video := b.videoFormat
	audio := b.audioFormat
	pool := b.pool
	interval := frameInterval(video.FrameRate)
	// Audio rides the video cadence: one chunk per tick keeps a single
	// producer goroutine and preserves production order.
	b.prod = startProducer(interval, deliver, func(d miniav.DeliverFunc, elapsed time.Duration, seq uint64) {
		d(makeVideoBuffer(pool, video, elapsed, seq))
		if !audio.IsZero() {
			d(b.makeAudioBuffer(audio, elapsed))
		}
	})
	miniav.Logger().WithField("backend", Name).
		WithField("target", b.targetID).
		WithField("format", video.String()).
		WithField("audio", !audio.IsZero()).Debug("screen producer started")
	return nil
}

func (b *screenBackend) StopCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod == nil {
		return miniav.Errorf(miniav.CodeNotRunning, "synthetic screen is not capturing")
	}
	b.prod.halt()
	b.prod = nil
	return nil
}

// ReleasePayload serves direct calls through the backend interface.
// Delivered payloads dispatch to their own pool; see cameraBackend.
func (b *screenBackend) ReleasePayload(p *miniav.Payload) error {
	b.mu.Lock()
	pool := b.pool
	b.mu.Unlock()
	return releaseCPUPayload(pool, p)
}

func (b *screenBackend) makeAudioBuffer(format miniav.AudioFormat, elapsed time.Duration) *miniav.Buffer {
	data := makeTone(format, elapsed)
	buf := &miniav.Buffer{
		Type:        miniav.BufferAudio,
		ContentType: miniav.ContentCPU,
		TimestampUs: elapsed.Microseconds(),
		DataSize:    uint32(len(data)),
		AudioFormat: format,
		Frames:      format.FramesPerBuffer,
		Data:        data,
	}
	// Audio chunks are plain Go slices with no native resource behind
	// them; self-managed, Release is a no-op.
	return buf
}

func lookupScreenTarget(targetID string) (miniav.ScreenTarget, error) {
	if targetID == "" {
		return screenDisplays[0], nil
	}
	for _, t := range screenDisplays {
		if t.ID == targetID {
			return t, nil
		}
	}
	return miniav.ScreenTarget{}, miniav.Errorf(miniav.CodeDeviceNotFound, "no synthetic display %q", targetID)
}

func lookupScreenWindow(targetID string) (miniav.ScreenTarget, error) {
	for _, t := range screenWindows {
		if t.ID == targetID {
			return t, nil
		}
	}
	return miniav.ScreenTarget{}, miniav.Errorf(miniav.CodeDeviceNotFound, "no synthetic window %q", targetID)
}
