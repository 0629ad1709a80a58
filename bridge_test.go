package miniav

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliver(t *testing.T) {
	var got *Buffer
	br := newBridge(func(b *Buffer, userData any) {
		got = b
		assert.Equal(t, "tag", userData)
	}, "tag")

	b := &Buffer{Type: BufferVideo}
	br.deliver(b)

	require.Same(t, b, got)
	assert.Equal(t, "tag", b.UserData)
	assert.Equal(t, uint64(1), br.deliveredCount())
}

func TestBridgeDeliverNil(t *testing.T) {
	br := newBridge(func(*Buffer, any) { t.Error("callback fired for nil buffer") }, nil)
	br.deliver(nil)
	assert.Zero(t, br.deliveredCount())
}

func TestBridgeCloseDiscardsAndReleases(t *testing.T) {
	owner := &countingReleaser{}
	br := newBridge(func(*Buffer, any) { t.Error("callback fired after close") }, nil)
	br.close()

	b := &Buffer{}
	b.AttachPayload(NewPayload(owner, HandleCPU))
	br.deliver(b)

	assert.Equal(t, 1, owner.calls, "discarded frame payload was not released")
	assert.Zero(t, br.deliveredCount())
	assert.Equal(t, uint64(1), br.discarded.Load())
}

func TestBridgeCloseBarrier(t *testing.T) {
	// Deliveries racing a close either complete before close returns or
	// are discarded; none may run after.
	var closed atomic.Bool
	br := newBridge(func(*Buffer, any) {
		if closed.Load() {
			t.Error("callback ran after close returned")
		}
	}, nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				br.deliver(&Buffer{})
			}
		}()
	}

	close(start)
	br.close()
	closed.Store(true)
	wg.Wait()
}
