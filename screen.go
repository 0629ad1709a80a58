package miniav

import "sync"

// Screen is a screen capture context. Targets are displays, windows or
// display regions; system audio can be tapped alongside video where the
// backend supports it.
type Screen struct {
	mu   sync.Mutex
	core contextCore
	ops  ScreenBackend

	videoFormat VideoFormat
	audioFormat AudioFormat
	haveFormat  bool
}

// NewScreen selects and initializes the highest-priority available
// screen backend.
func NewScreen() (*Screen, error) {
	ops, err := selectBackend(KindScreen, &screenRegistry)
	if err != nil {
		return nil, err
	}
	return &Screen{core: newContextCore(KindScreen), ops: ops}, nil
}

// Backend reports the name of the selected backend.
func (s *Screen) Backend() string {
	if s == nil {
		return ""
	}
	return s.ops.Name()
}

func (s *Screen) configure(op func() (VideoFormat, error)) error {
	if s == nil {
		return errNilContext("screen")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.core.guardConfigure(); err != nil {
		return err
	}

	actual, err := op()
	if err != nil {
		s.videoFormat = VideoFormat{}
		s.audioFormat = AudioFormat{}
		s.haveFormat = false
		s.core.finishConfigure(false)
		return err
	}
	s.videoFormat = actual
	s.audioFormat = s.ops.AudioFormat()
	s.haveFormat = true
	s.core.finishConfigure(true)
	return nil
}

// ConfigureDisplay targets a whole display. An empty targetID selects
// the default display.
func (s *Screen) ConfigureDisplay(targetID string, format VideoFormat, opts ScreenOptions) error {
	return s.configure(func() (VideoFormat, error) {
		return s.ops.ConfigureDisplay(targetID, format, opts)
	})
}

// ConfigureWindow targets a single window.
func (s *Screen) ConfigureWindow(targetID string, format VideoFormat, opts ScreenOptions) error {
	return s.configure(func() (VideoFormat, error) {
		return s.ops.ConfigureWindow(targetID, format, opts)
	})
}

// ConfigureRegion targets a sub-rectangle of a display. The region must
// have a non-zero area.
func (s *Screen) ConfigureRegion(targetID string, region Region, format VideoFormat, opts ScreenOptions) error {
	if region.Width == 0 || region.Height == 0 {
		return Errorf(CodeInvalidArg, "capture region must have a non-zero area")
	}
	return s.configure(func() (VideoFormat, error) {
		return s.ops.ConfigureRegion(targetID, region, format, opts)
	})
}

// ConfiguredFormats returns the negotiated video format and, when the
// session taps audio, the audio format (zero otherwise). Fails with
// NotInitialized before a successful configure.
func (s *Screen) ConfiguredFormats() (VideoFormat, AudioFormat, error) {
	if s == nil {
		return VideoFormat{}, AudioFormat{}, errNilContext("screen")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core.state == stateDestroyed {
		return VideoFormat{}, AudioFormat{}, Errorf(CodeInvalidHandle, "screen context used after destroy")
	}
	if !s.haveFormat {
		return VideoFormat{}, AudioFormat{}, Errorf(CodeNotInitialized, "screen context has no configured format")
	}
	return s.videoFormat, s.audioFormat, nil
}

// StartCapture starts the backend producer; see Camera.StartCapture for
// the delivery contract. Sessions with tapped audio interleave video
// and audio buffers on the same callback in production order.
func (s *Screen) StartCapture(cb BufferCallback, userData any) error {
	if s == nil {
		return errNilContext("screen")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.start(cb, userData, s.ops.StartCapture)
}

// StopCapture silences the producer; see Camera.StopCapture.
func (s *Screen) StopCapture() error {
	if s == nil {
		return errNilContext("screen")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.stop(s.ops.StopCapture)
}

// Destroy stops capture best-effort if running and frees backend state.
func (s *Screen) Destroy() error {
	if s == nil {
		return errNilContext("screen")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.destroy(s.ops.StopCapture, s.ops.Destroy)
}

// EnumerateScreenTargets lists capturable displays or windows through a
// short-lived backend instance.
func EnumerateScreenTargets(kind TargetKind) ([]ScreenTarget, error) {
	b, err := selectBackend(KindScreen, &screenRegistry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Destroy() }()
	targets, err := b.EnumerateTargets(kind)
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []ScreenTarget{}
	}
	return targets, nil
}

// ScreenDefaultFormat reports the default capture format for a target.
// An empty targetID selects the default display.
func ScreenDefaultFormat(targetID string) (VideoFormat, error) {
	b, err := selectBackend(KindScreen, &screenRegistry)
	if err != nil {
		return VideoFormat{}, err
	}
	defer func() { _ = b.Destroy() }()
	return b.DefaultFormat(targetID)
}
