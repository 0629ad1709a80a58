package miniav

import "sync"

// AudioInput is a microphone capture context.
type AudioInput struct {
	mu   sync.Mutex
	core contextCore
	ops  AudioInputBackend

	format     AudioFormat
	haveFormat bool
}

// NewAudioInput selects and initializes the highest-priority available
// audio input backend.
func NewAudioInput() (*AudioInput, error) {
	ops, err := selectBackend(KindAudioInput, &audioInputRegistry)
	if err != nil {
		return nil, err
	}
	return &AudioInput{core: newContextCore(KindAudioInput), ops: ops}, nil
}

// Backend reports the name of the selected backend.
func (a *AudioInput) Backend() string {
	if a == nil {
		return ""
	}
	return a.ops.Name()
}

// Configure binds a device and negotiates a capture format; see
// Camera.Configure for state rules.
func (a *AudioInput) Configure(deviceID string, format AudioFormat) error {
	if a == nil {
		return errNilContext("audio-input")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.core.guardConfigure(); err != nil {
		return err
	}

	actual, err := a.ops.Configure(deviceID, format)
	if err != nil {
		a.format = AudioFormat{}
		a.haveFormat = false
		a.core.finishConfigure(false)
		return err
	}
	a.format = actual
	a.haveFormat = true
	a.core.finishConfigure(true)
	return nil
}

// ConfiguredFormat returns the negotiated format of the last successful
// Configure.
func (a *AudioInput) ConfiguredFormat() (AudioFormat, error) {
	if a == nil {
		return AudioFormat{}, errNilContext("audio-input")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.core.state == stateDestroyed {
		return AudioFormat{}, Errorf(CodeInvalidHandle, "audio-input context used after destroy")
	}
	if !a.haveFormat {
		return AudioFormat{}, Errorf(CodeNotInitialized, "audio-input context has no configured format")
	}
	return a.format, nil
}

// StartCapture starts the backend producer; see Camera.StartCapture.
func (a *AudioInput) StartCapture(cb BufferCallback, userData any) error {
	if a == nil {
		return errNilContext("audio-input")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.core.start(cb, userData, a.ops.StartCapture)
}

// StopCapture silences the producer; see Camera.StopCapture.
func (a *AudioInput) StopCapture() error {
	if a == nil {
		return errNilContext("audio-input")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.core.stop(a.ops.StopCapture)
}

// Destroy stops capture best-effort if running and frees backend state.
func (a *AudioInput) Destroy() error {
	if a == nil {
		return errNilContext("audio-input")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.core.destroy(a.ops.StopCapture, a.ops.Destroy)
}

// EnumerateAudioInputDevices lists microphone devices. A machine with
// none returns an empty list, not an error.
func EnumerateAudioInputDevices() ([]DeviceInfo, error) {
	b, err := selectBackend(KindAudioInput, &audioInputRegistry)
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

// AudioInputDefaultFormat reports the default format of a device.
func AudioInputDefaultFormat(deviceID string) (AudioFormat, error) {
	b, err := selectBackend(KindAudioInput, &audioInputRegistry)
	if err != nil {
		return AudioFormat{}, err
	}
	defer func() { _ = b.Destroy() }()
	return b.DefaultFormat(deviceID)
}

// AudioInputSupportedFormats lists the formats a device supports.
func AudioInputSupportedFormats(deviceID string) ([]AudioFormat, error) {
	b, err := selectBackend(KindAudioInput, &audioInputRegistry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Destroy() }()
	return b.SupportedFormats(deviceID)
}

// Loopback is a system-audio loopback capture context. The target is
// the audio source being tapped: system output, a process, or a window.
type Loopback struct {
	mu   sync.Mutex
	core contextCore
	ops  LoopbackBackend

	format     AudioFormat
	haveFormat bool
}

// NewLoopback selects and initializes the highest-priority available
// loopback backend.
func NewLoopback() (*Loopback, error) {
	ops, err := selectBackend(KindLoopback, &loopbackRegistry)
	if err != nil {
		return nil, err
	}
	return &Loopback{core: newContextCore(KindLoopback), ops: ops}, nil
}

// Backend reports the name of the selected backend.
func (l *Loopback) Backend() string {
	if l == nil {
		return ""
	}
	return l.ops.Name()
}

// Configure binds a loopback target and negotiates a format. An empty
// targetID taps the system output mix.
func (l *Loopback) Configure(targetID string, format AudioFormat) error {
	if l == nil {
		return errNilContext("loopback")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.core.guardConfigure(); err != nil {
		return err
	}

	actual, err := l.ops.Configure(targetID, format)
	if err != nil {
		l.format = AudioFormat{}
		l.haveFormat = false
		l.core.finishConfigure(false)
		return err
	}
	l.format = actual
	l.haveFormat = true
	l.core.finishConfigure(true)
	return nil
}

// ConfiguredFormat returns the negotiated format of the last successful
// Configure.
func (l *Loopback) ConfiguredFormat() (AudioFormat, error) {
	if l == nil {
		return AudioFormat{}, errNilContext("loopback")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.core.state == stateDestroyed {
		return AudioFormat{}, Errorf(CodeInvalidHandle, "loopback context used after destroy")
	}
	if !l.haveFormat {
		return AudioFormat{}, Errorf(CodeNotInitialized, "loopback context has no configured format")
	}
	return l.format, nil
}

// StartCapture starts the backend producer; see Camera.StartCapture.
func (l *Loopback) StartCapture(cb BufferCallback, userData any) error {
	if l == nil {
		return errNilContext("loopback")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.core.start(cb, userData, l.ops.StartCapture)
}

// StopCapture silences the producer; see Camera.StopCapture.
func (l *Loopback) StopCapture() error {
	if l == nil {
		return errNilContext("loopback")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.core.stop(l.ops.StopCapture)
}

// Destroy stops capture best-effort if running and frees backend state.
func (l *Loopback) Destroy() error {
	if l == nil {
		return errNilContext("loopback")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.core.destroy(l.ops.StopCapture, l.ops.Destroy)
}

// EnumerateLoopbackTargets lists tappable audio sources. A system with
// none returns an empty list, not an error.
func EnumerateLoopbackTargets() ([]LoopbackTarget, error) {
	b, err := selectBackend(KindLoopback, &loopbackRegistry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Destroy() }()
	targets, err := b.EnumerateTargets()
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []LoopbackTarget{}
	}
	return targets, nil
}

// LoopbackDefaultFormat reports the default format for a target.
func LoopbackDefaultFormat(targetID string) (AudioFormat, error) {
	b, err := selectBackend(KindLoopback, &loopbackRegistry)
	if err != nil {
		return AudioFormat{}, err
	}
	defer func() { _ = b.Destroy() }()
	return b.DefaultFormat(targetID)
}
