package miniav

// BufferType tags the Buffer union.
type BufferType int32

const (
	BufferVideo BufferType = iota
	BufferAudio
)

// ContentType distinguishes CPU-resident data from the GPU handle
// representations a zero-copy backend may deliver.
type ContentType int32

const (
	ContentCPU ContentType = iota
	ContentD3D11Handle
	ContentMetalTexture
	ContentDMABuf
)

func (c ContentType) String() string {
	switch c {
	case ContentCPU:
		return "cpu"
	case ContentD3D11Handle:
		return "d3d11-handle"
	case ContentMetalTexture:
		return "metal-texture"
	case ContentDMABuf:
		return "dma-buf"
	default:
		return "unknown"
	}
}

// MaxPlanes is the most planes a video buffer carries.
const MaxPlanes = 4

// Plane is one video plane. CPU buffers populate Data; GPU buffers
// populate Handle (shared NT handle, texture reference, or fd) and
// Subresource where the representation needs it.
type Plane struct {
	Data        []byte
	Handle      uintptr
	Stride      uint32
	Width       uint32
	Height      uint32
	Subresource uint32
}

// Buffer is one delivered frame. It is valid only for the duration of
// the capture callback: CPU plane slices and GPU handle validity are
// guaranteed only until the callback returns, except that Release may
// be deferred. Release must be called exactly once; releasing twice or
// releasing a buffer this package never delivered is a caller error and
// is not runtime-checked.
type Buffer struct {
	Type        BufferType
	ContentType ContentType

	// TimestampUs is the capture timestamp in microseconds on the
	// backend's monotonic clock.
	TimestampUs int64

	// DataSize is the total payload size in bytes across planes.
	DataSize uint32

	// UserData echoes the value registered at StartCapture.
	UserData any

	// Video fields, valid when Type == BufferVideo.
	VideoFormat VideoFormat
	PlaneCount  int
	Planes      [MaxPlanes]Plane

	// Audio fields, valid when Type == BufferAudio.
	AudioFormat AudioFormat
	Frames      uint32
	Data        []byte

	payload *Payload
}

// Release returns the buffer's native resources to the producing
// backend. Buffers delivered without a payload are self-managed and
// Release is a no-op for them.
func (b *Buffer) Release() error { return ReleaseBuffer(b) }

// ReleaseBuffer is the flat-API form of (*Buffer).Release.
func ReleaseBuffer(b *Buffer) error {
	if b == nil {
		return Errorf(CodeInvalidArg, "release of nil buffer")
	}
	p := b.payload
	b.payload = nil
	if p == nil {
		return nil
	}
	return p.release()
}

// HandleKind dispatches payload release to the right cleanup path.
type HandleKind int32

const (
	HandleNone HandleKind = iota
	HandleCPU
	HandleDMABuf
	HandleD3D11
	HandleMetal
)

func (k HandleKind) String() string {
	switch k {
	case HandleNone:
		return "none"
	case HandleCPU:
		return "cpu"
	case HandleDMABuf:
		return "dma-buf"
	case HandleD3D11:
		return "d3d11"
	case HandleMetal:
		return "metal"
	default:
		return "unknown"
	}
}

// PayloadReleaser frees the native resources described by a Payload.
// Every backend implements it; release of a delivered buffer funnels
// through the backend that produced it.
type PayloadReleaser interface {
	ReleasePayload(*Payload) error
}

// Payload is the internal ownership record a backend attaches to each
// delivered Buffer: which backend owns it, which native resources must
// be freed, and the handle kind used to dispatch the cleanup. Exactly
// one Payload exists per delivered Buffer and it is destroyed exactly
// once, by Release.
type Payload struct {
	// Kind selects the cleanup path in the owning backend.
	Kind HandleKind

	// Data is CPU memory to recycle or free, when Kind == HandleCPU.
	Data []byte

	// FD is a file descriptor to close, when Kind == HandleDMABuf.
	FD int

	// Native is an opaque native handle (shared NT handle, texture
	// reference) for the GPU kinds.
	Native uintptr

	owner PayloadReleaser
}

// NewPayload builds a payload owned by the given backend. Backend
// packages call this at frame-production time.
func NewPayload(owner PayloadReleaser, kind HandleKind) *Payload {
	return &Payload{Kind: kind, owner: owner}
}

func (p *Payload) release() error {
	if p.owner == nil {
		return nil
	}
	owner := p.owner
	p.owner = nil
	return owner.ReleasePayload(p)
}

// AttachPayload binds the ownership record to a buffer before
// delivery. Backend packages call this; applications never do.
func (b *Buffer) AttachPayload(p *Payload) { b.payload = p }
