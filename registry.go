package miniav

import (
	"sort"
	"sync"
)

// CaptureKind names the four capture pipelines.
type CaptureKind int32

const (
	KindCamera CaptureKind = iota
	KindScreen
	KindAudioInput
	KindLoopback
)

func (k CaptureKind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindScreen:
		return "screen"
	case KindAudioInput:
		return "audio-input"
	case KindLoopback:
		return "loopback"
	default:
		return "unknown"
	}
}

// Backend selection priorities. Platform backends register above
// PriorityFallback so the synthetic backend only wins when nothing
// native is available.
const (
	PriorityFallback  = 0
	PriorityNative    = 50
	PriorityPreferred = 100
)

type candidate[T backendLifecycle] struct {
	name     string
	priority int
	order    int
	factory  func() T
}

// registry is an ordered, process-wide candidate list for one capture
// kind. Registration happens from backend package init() functions;
// selection is read-only afterward and safe for concurrent context
// creation.
type registry[T backendLifecycle] struct {
	mu         sync.RWMutex
	candidates []candidate[T]
	nextOrder  int
}

func (r *registry[T]) register(name string, priority int, factory func() T) {
	if name == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.candidates {
		if r.candidates[i].name == name {
			r.candidates[i].priority = priority
			r.candidates[i].factory = factory
			return
		}
	}
	r.candidates = append(r.candidates, candidate[T]{
		name:     name,
		priority: priority,
		order:    r.nextOrder,
		factory:  factory,
	})
	r.nextOrder++
}

func (r *registry[T]) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.candidates {
		if r.candidates[i].name == name {
			r.candidates = append(r.candidates[:i], r.candidates[i+1:]...)
			return
		}
	}
}

// snapshot returns candidates in selection order: highest priority
// first, registration order breaking ties. Deterministic for a fixed
// registered set.
func (r *registry[T]) snapshot() []candidate[T] {
	r.mu.RLock()
	out := make([]candidate[T], len(r.candidates))
	copy(out, r.candidates)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].order < out[j].order
	})
	return out
}

func (r *registry[T]) names() []string {
	snap := r.snapshot()
	names := make([]string, 0, len(snap))
	for _, c := range snap {
		names = append(names, c.name)
	}
	return names
}

var (
	cameraRegistry     registry[CameraBackend]
	screenRegistry     registry[ScreenBackend]
	audioInputRegistry registry[AudioInputBackend]
	loopbackRegistry   registry[LoopbackBackend]
)

// RegisterCameraBackend adds a camera backend candidate. Typically
// called from a backend package's init().
func RegisterCameraBackend(name string, priority int, factory func() CameraBackend) {
	cameraRegistry.register(name, priority, factory)
}

// RegisterScreenBackend adds a screen backend candidate.
func RegisterScreenBackend(name string, priority int, factory func() ScreenBackend) {
	screenRegistry.register(name, priority, factory)
}

// RegisterAudioInputBackend adds an audio input backend candidate.
func RegisterAudioInputBackend(name string, priority int, factory func() AudioInputBackend) {
	audioInputRegistry.register(name, priority, factory)
}

// RegisterLoopbackBackend adds a loopback backend candidate.
func RegisterLoopbackBackend(name string, priority int, factory func() LoopbackBackend) {
	loopbackRegistry.register(name, priority, factory)
}

// RegisteredBackends lists candidate names for a kind in selection
// order.
func RegisteredBackends(kind CaptureKind) []string {
	switch kind {
	case KindCamera:
		return cameraRegistry.names()
	case KindScreen:
		return screenRegistry.names()
	case KindAudioInput:
		return audioInputRegistry.names()
	case KindLoopback:
		return loopbackRegistry.names()
	default:
		return nil
	}
}

// selectBackend walks the candidate list in priority order until one
// initializes. Per-candidate failures are swallowed ("try next"); only
// exhausting the list surfaces NotSupported.
func selectBackend[T backendLifecycle](kind CaptureKind, r *registry[T]) (T, error) {
	var zero T
	for _, c := range r.snapshot() {
		b := c.factory()
		if any(b) == nil {
			continue
		}
		if err := b.Init(); err != nil {
			logger.WithField("kind", kind.String()).
				WithField("backend", c.name).
				WithError(err).Debug("backend unavailable, trying next")
			continue
		}
		logger.WithField("kind", kind.String()).
			WithField("backend", c.name).Debug("backend selected")
		return b, nil
	}
	return zero, Errorf(CodeNotSupported, "no %s backend available", kind)
}
