//go:build linux

package portal

import (
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/MichealReed/miniav"
	"github.com/MichealReed/miniav/internal/pipewire"
	xdg "github.com/MichealReed/miniav/internal/portal"
)

// defaultFrameRate is requested when the caller leaves the format zero.
const defaultFrameRate = 60

// fallbackWidth/Height stand in when the portal grants a stream without
// reporting its size. PipeWire still negotiates the producer's real
// dimensions; only the advertised format is affected.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

func init() {
	miniav.RegisterScreenBackend(Name, miniav.PriorityNative, func() miniav.ScreenBackend {
		return &screenBackend{}
	})
}

type screenBackend struct {
	mu sync.Mutex

	sourceTypes uint32

	sess   *xdg.Session
	stream *pipewire.Stream
	format miniav.VideoFormat
	nodeID uint32

	pool framePool
}

func (b *screenBackend) Name() string { return Name }

func (b *screenBackend) Init() error {
	if !pipewire.IsAvailable() {
		return miniav.Errorf(miniav.CodeNotSupported, "pipewire library is not available")
	}
	types, err := xdg.Available()
	if err != nil {
		return miniav.WrapError(miniav.CodePortalFailed, err)
	}
	if types == 0 {
		return miniav.Errorf(miniav.CodeNotSupported, "screencast portal advertises no source types")
	}
	b.sourceTypes = types
	return nil
}

func (b *screenBackend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		b.stream.Close()
		b.stream = nil
	}
	if b.sess != nil {
		if err := b.sess.Close(); err != nil {
			miniav.Logger().WithField("backend", Name).
				WithError(err).Debug("portal session close failed")
		}
		b.sess = nil
	}
	return nil
}

// EnumerateTargets reports chooser entry points, not concrete displays:
// the portal never exposes the display list to the application, the
// compositor's own dialog picks the source during configure.
func (b *screenBackend) EnumerateTargets(kind miniav.TargetKind) ([]miniav.ScreenTarget, error) {
	targets := []miniav.ScreenTarget{}
	switch kind {
	case miniav.TargetDisplay:
		if b.sourceTypes&xdg.SourceTypeMonitor != 0 {
			targets = append(targets, miniav.ScreenTarget{
				ID:        "portal:monitor",
				Name:      "Display (portal chooser)",
				Kind:      miniav.TargetDisplay,
				IsDefault: true,
			})
		}
	case miniav.TargetWindow:
		if b.sourceTypes&xdg.SourceTypeWindow != 0 {
			targets = append(targets, miniav.ScreenTarget{
				ID:        "portal:window",
				Name:      "Window (portal chooser)",
				Kind:      miniav.TargetWindow,
				IsDefault: true,
			})
		}
	default:
		return nil, miniav.Errorf(miniav.CodeInvalidArg, "unknown target kind %v", kind)
	}
	return targets, nil
}

// DefaultFormat leaves the dimensions zero: the granted source decides
// them, and they are only known after configure.
func (b *screenBackend) DefaultFormat(targetID string) (miniav.VideoFormat, error) {
	return miniav.VideoFormat{
		PixelFormat: miniav.PixelFormatBGRA,
		FrameRate:   miniav.FrameRate{Num: defaultFrameRate, Den: 1},
	}, nil
}

func (b *screenBackend) ConfigureDisplay(targetID string, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	return b.configure(xdg.SourceTypeMonitor, format, opts)
}

func (b *screenBackend) ConfigureWindow(targetID string, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	return b.configure(xdg.SourceTypeWindow, format, opts)
}

func (b *screenBackend) ConfigureRegion(targetID string, region miniav.Region, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeNotSupported, "portal capture cannot crop to a region")
}

// configure runs the portal handshake: session, source selection, then
// the compositor's chooser dialog. It blocks until the user answers or
// the request times out.
func (b *screenBackend) configure(sourceType uint32, format miniav.VideoFormat, opts miniav.ScreenOptions) (miniav.VideoFormat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sourceTypes&sourceType == 0 {
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodeNotSupported, "screencast portal does not offer this source type")
	}
	if opts.IncludeAudio {
		miniav.Logger().WithField("backend", Name).
			Debug("portal sessions carry no audio, IncludeAudio ignored")
	}

	// A reconfigure abandons the previous grant.
	if b.sess != nil {
		if err := b.sess.Close(); err != nil {
			miniav.Logger().WithField("backend", Name).
				WithError(err).Debug("portal session close failed")
		}
		b.sess = nil
	}

	sess, err := xdg.CreateSession()
	if err != nil {
		return miniav.VideoFormat{}, mapPortalError(err)
	}

	cursorMode := xdg.CursorModeHidden
	if opts.IncludeCursor {
		cursorMode = xdg.CursorModeEmbedded
	}
	if err := sess.SelectSources(xdg.SelectSourcesOptions{
		Types:      sourceType,
		CursorMode: cursorMode,
	}); err != nil {
		sess.Close()
		return miniav.VideoFormat{}, mapPortalError(err)
	}

	streams, err := sess.Start()
	if err != nil {
		sess.Close()
		return miniav.VideoFormat{}, mapPortalError(err)
	}
	if len(streams) == 0 {
		sess.Close()
		return miniav.VideoFormat{}, miniav.Errorf(miniav.CodePortalFailed, "portal granted no streams")
	}
	granted := streams[0]

	actual := miniav.VideoFormat{
		Width:       uint32(granted.Size[0]),
		Height:      uint32(granted.Size[1]),
		PixelFormat: miniav.PixelFormatBGRA,
		FrameRate:   format.FrameRate,
		Output:      miniav.OutputCPU,
	}
	if actual.FrameRate.Num == 0 {
		actual.FrameRate = miniav.FrameRate{Num: defaultFrameRate, Den: 1}
	}
	if actual.Width == 0 || actual.Height == 0 {
		actual.Width = fallbackWidth
		actual.Height = fallbackHeight
	}

	b.sess = sess
	b.nodeID = granted.NodeID
	b.format = actual

	miniav.Logger().WithField("backend", Name).
		WithField("node", granted.NodeID).
		WithField("format", actual.String()).Debug("portal source granted")
	return actual, nil
}

func (b *screenBackend) AudioFormat() miniav.AudioFormat {
	return miniav.AudioFormat{}
}

func (b *screenBackend) StartCapture(deliver miniav.DeliverFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sess == nil {
		return miniav.Errorf(miniav.CodeNotConfigured, "no portal session configured")
	}
	if b.stream != nil {
		return miniav.Errorf(miniav.CodeAlreadyRunning, "portal capture already running")
	}

	fd, err := b.sess.OpenPipeWireRemote()
	if err != nil {
		return mapPortalError(err)
	}
	defer syscall.Close(fd)

	// Captured by value so the frame callback never touches backend
	// state owned by b.mu.
	format := b.format
	started := time.Now()

	stream, err := pipewire.NewStream(fd, b.nodeID, format.Width, format.Height,
		format.FrameRate.Num, format.FrameRate.Den, pipewire.Handlers{
			Acquire: b.pool.get,
			OnFrame: func(data []byte) {
				deliver(b.makeVideoBuffer(data, format, time.Since(started)))
			},
			OnError: func(err error) {
				miniav.Logger().WithField("backend", Name).
					WithError(err).Error("pipewire stream fault")
			},
		})
	if err != nil {
		return miniav.WrapError(miniav.CodeSystemCallFailed, err)
	}

	stream.Start()
	b.stream = stream
	return nil
}

func (b *screenBackend) StopCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return miniav.Errorf(miniav.CodeNotRunning, "portal capture is not running")
	}
	// Close joins the loop thread, so no frame callback survives it.
	b.stream.Close()
	b.stream = nil
	return nil
}

// ReleasePayload serves direct calls through the backend interface.
// Delivered payloads dispatch to the pool itself, so releases deferred
// past StopCapture never touch backend state.
func (b *screenBackend) ReleasePayload(p *miniav.Payload) error {
	return b.pool.ReleasePayload(p)
}

func (b *screenBackend) makeVideoBuffer(data []byte, format miniav.VideoFormat, elapsed time.Duration) *miniav.Buffer {
	payload := miniav.NewPayload(&b.pool, miniav.HandleCPU)
	payload.Data = data

	buf := &miniav.Buffer{
		Type:        miniav.BufferVideo,
		ContentType: miniav.ContentCPU,
		TimestampUs: elapsed.Microseconds(),
		DataSize:    uint32(len(data)),
		VideoFormat: format,
		PlaneCount:  1,
	}
	buf.Planes[0] = miniav.Plane{
		Data:   data,
		Stride: format.Width * 4,
		Width:  format.Width,
		Height: format.Height,
	}
	buf.AttachPayload(payload)
	return buf
}

// mapPortalError folds portal and bus failures into result codes.
func mapPortalError(err error) error {
	switch {
	case errors.Is(err, xdg.ErrCancelled):
		return miniav.WrapError(miniav.CodeUserCancelled, err)
	case errors.Is(err, xdg.ErrTimeout):
		return miniav.WrapError(miniav.CodeTimeout, err)
	case errors.Is(err, xdg.ErrEnded):
		return miniav.WrapError(miniav.CodePortalClosed, err)
	default:
		return miniav.WrapError(miniav.CodePortalFailed, err)
	}
}

// framePool recycles frame memory between Release and the next PipeWire
// frame copy. Sizes can change across reconfigures, so capacity is
// checked on every get.
type framePool struct {
	p sync.Pool
}

func (fp *framePool) get(size int) []byte {
	if v := fp.p.Get(); v != nil {
		buf := *(v.(*[]byte))
		if cap(buf) >= size {
			return buf[:size]
		}
	}
	return make([]byte, size)
}

func (fp *framePool) put(buf []byte) {
	fp.p.Put(&buf)
}

// ReleasePayload returns a frame's memory to this pool. The pool owns
// its payloads and holds no backend state, so late releases cannot race
// a reconfigure.
func (fp *framePool) ReleasePayload(p *miniav.Payload) error {
	if p == nil {
		return miniav.Errorf(miniav.CodeInvalidArg, "release of nil payload")
	}
	if p.Kind != miniav.HandleCPU {
		return miniav.Errorf(miniav.CodeInvalidHandle, "portal backend cannot release %v payload", p.Kind)
	}
	if p.Data != nil {
		fp.put(p.Data)
		p.Data = nil
	}
	return nil
}
