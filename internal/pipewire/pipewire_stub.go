//go:build !linux || !cgo

package pipewire

import "errors"

var ErrLibraryNotLoaded = errors.New("pipewire is only available on linux")

// Handlers mirrors the linux build; never invoked here.
type Handlers struct {
	Acquire func(size int) []byte
	OnFrame func(data []byte)
	OnError func(err error)
}

type Stream struct{}

func IsAvailable() bool { return false }

func NewStream(fd int, nodeID uint32, width, height, fpsNum, fpsDen uint32, handlers Handlers) (*Stream, error) {
	return nil, ErrLibraryNotLoaded
}

func (s *Stream) Start() {}

func (s *Stream) Close() {}
