package synthetic

import (
	"sync"
	"time"

	"github.com/MichealReed/miniav"
)

// producer runs the single goroutine that stands in for a native
// capture thread. Ticks the producer cannot keep up with coalesce in
// the ticker, matching the latest-frame drop policy of a real capture
// API.
type producer struct {
	interval time.Duration
	emit     func(deliver miniav.DeliverFunc, elapsed time.Duration, seq uint64)
	deliver  miniav.DeliverFunc

	stop    chan struct{}
	wg      sync.WaitGroup
	dropped uint64
}

func startProducer(interval time.Duration, deliver miniav.DeliverFunc, emit func(miniav.DeliverFunc, time.Duration, uint64)) *producer {
	p := &producer{
		interval: interval,
		emit:     emit,
		deliver:  deliver,
		stop:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *producer) loop() {
	defer p.wg.Done()

	start := time.Now()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			before := time.Now()
			p.emit(p.deliver, before.Sub(start), seq)
			seq++
			if lag := time.Since(before); lag > p.interval {
				// Coalesced ticks are frames the consumer never saw.
				prev := p.dropped
				p.dropped += uint64(lag / p.interval)
				if prev == 0 || p.dropped/64 > prev/64 {
					miniav.Logger().WithField("backend", Name).
						WithField("dropped", p.dropped).
						Debug("slow consumer, frames coalesced")
				}
			}
		}
	}
}

// halt joins the producer goroutine. After it returns the producer
// cannot invoke deliver again.
func (p *producer) halt() {
	close(p.stop)
	p.wg.Wait()
}

// framePool recycles CPU frame memory between Release and the next
// production tick.
type framePool struct {
	pool sync.Pool
	size int
}

func newFramePool(size int) *framePool {
	fp := &framePool{size: size}
	fp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return fp
}

func (fp *framePool) get() []byte {
	return *(fp.pool.Get().(*[]byte))
}

func (fp *framePool) put(b []byte) {
	if cap(b) < fp.size {
		return
	}
	b = b[:fp.size]
	fp.pool.Put(&b)
}

// ReleasePayload returns a frame's memory to this pool. The pool owns
// its payloads, so a release deferred past StopCapture or a later
// reconfigure still lands in the pool the frame was drawn from.
func (fp *framePool) ReleasePayload(p *miniav.Payload) error {
	return releaseCPUPayload(fp, p)
}

// makeVideoBuffer fabricates one CPU video frame from the pool. The
// pool, not the backend, owns the payload.
func makeVideoBuffer(pool *framePool, format miniav.VideoFormat, elapsed time.Duration, seq uint64) *miniav.Buffer {
	data := pool.get()
	fillTestPattern(data, int(format.Width), int(format.Height), seq)

	payload := miniav.NewPayload(pool, miniav.HandleCPU)
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
