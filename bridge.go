package miniav

import (
	"sync"
	"sync/atomic"
)

// BufferCallback receives delivered buffers. It runs synchronously on
// the backend's producer thread; it must not retain the Buffer beyond
// its own scope and must arrange for exactly one Release.
type BufferCallback func(b *Buffer, userData any)

// bridge is the delivery path from a backend's native thread into the
// application callback. It is the hard barrier behind the "no callback
// after Stop returns" guarantee: close takes the write lock, so it
// waits out any in-flight delivery and every later delivery sees the
// stopped flag.
type bridge struct {
	mu       sync.RWMutex
	cb       BufferCallback
	userData any
	stopped  bool

	delivered atomic.Uint64
	discarded atomic.Uint64
}

func newBridge(cb BufferCallback, userData any) *bridge {
	return &bridge{cb: cb, userData: userData}
}

// deliver hands one buffer to the application. A frame racing past a
// concurrent close is released here so its payload cannot leak.
func (br *bridge) deliver(b *Buffer) {
	if b == nil {
		return
	}
	br.mu.RLock()
	defer br.mu.RUnlock()

	if br.stopped || br.cb == nil {
		br.discarded.Add(1)
		_ = ReleaseBuffer(b)
		return
	}

	b.UserData = br.userData
	br.cb(b, br.userData)
	br.delivered.Add(1)
}

// close bars all future deliveries. An in-progress callback runs to
// completion before close returns; there is no mid-callback
// cancellation.
func (br *bridge) close() {
	br.mu.Lock()
	br.stopped = true
	br.cb = nil
	br.mu.Unlock()
}

func (br *bridge) deliveredCount() uint64 { return br.delivered.Load() }
