package miniav_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichealReed/miniav"
	"github.com/MichealReed/miniav/backend/synthetic"
)

func TestSyntheticCameraEndToEnd(t *testing.T) {
	devices, err := miniav.EnumerateCameraDevices()
	require.NoError(t, err)
	require.NotEmpty(t, devices)

	var defaultID string
	for _, d := range devices {
		if d.IsDefault {
			defaultID = d.ID
		}
	}
	require.NotEmpty(t, defaultID, "no default device advertised")

	cam, err := miniav.NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	assert.Equal(t, synthetic.Name, cam.Backend())

	require.NoError(t, cam.Configure(defaultID, miniav.VideoFormat{
		Width: 640, Height: 480,
		FrameRate: miniav.FrameRate{Num: 100, Den: 1},
	}))
	format, err := cam.ConfiguredFormat()
	require.NoError(t, err)
	require.NotZero(t, format.Width)
	require.NotZero(t, format.Height)

	var frames atomic.Uint64
	var lastTS atomic.Int64
	require.NoError(t, cam.StartCapture(func(b *miniav.Buffer, _ any) {
		frames.Add(1)
		assert.Equal(t, format.Width*format.Height*4, b.DataSize)
		assert.Len(t, b.Planes[0].Data, int(b.DataSize))
		assert.GreaterOrEqual(t, b.TimestampUs, lastTS.Load(), "timestamps regressed")
		lastTS.Store(b.TimestampUs)
		require.NoError(t, b.Release())
	}, nil))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, cam.StopCapture())
	assert.NotZero(t, frames.Load())
}

func TestSyntheticScreenEndToEnd(t *testing.T) {
	targets, err := miniav.EnumerateScreenTargets(miniav.TargetDisplay)
	require.NoError(t, err)
	require.NotEmpty(t, targets)

	scr, err := miniav.NewScreen()
	require.NoError(t, err)
	defer scr.Destroy()

	require.NoError(t, scr.ConfigureDisplay(targets[0].ID,
		miniav.VideoFormat{FrameRate: miniav.FrameRate{Num: 100, Den: 1}},
		miniav.ScreenOptions{IncludeAudio: true}))

	video, audio, err := scr.ConfiguredFormats()
	require.NoError(t, err)
	assert.Equal(t, targets[0].Width, video.Width)
	assert.False(t, audio.IsZero())

	var videoBuffers, audioBuffers atomic.Uint64
	require.NoError(t, scr.StartCapture(func(b *miniav.Buffer, _ any) {
		switch b.Type {
		case miniav.BufferVideo:
			videoBuffers.Add(1)
		case miniav.BufferAudio:
			audioBuffers.Add(1)
			assert.Equal(t, audio, b.AudioFormat)
		}
		b.Release()
	}, nil))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, scr.StopCapture())
	assert.NotZero(t, videoBuffers.Load())
	assert.NotZero(t, audioBuffers.Load())
}

func TestSyntheticLoopbackEndToEnd(t *testing.T) {
	targets, err := miniav.EnumerateLoopbackTargets()
	require.NoError(t, err)
	require.NotEmpty(t, targets)

	lb, err := miniav.NewLoopback()
	require.NoError(t, err)
	defer lb.Destroy()

	require.NoError(t, lb.Configure("", miniav.AudioFormat{}))
	format, err := lb.ConfiguredFormat()
	require.NoError(t, err)

	var buffers atomic.Uint64
	require.NoError(t, lb.StartCapture(func(b *miniav.Buffer, _ any) {
		buffers.Add(1)
		assert.Equal(t, format.FramesPerBuffer, b.Frames)
		expect := int(format.FramesPerBuffer) * int(format.Channels) * format.SampleFormat.BytesPerSample()
		assert.Len(t, b.Data, expect)
		b.Release()
	}, nil))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, lb.StopCapture())
	assert.NotZero(t, buffers.Load())
}

// Two contexts of the same kind run independently: stopping one must
// not silence the other.
func TestIndependentContexts(t *testing.T) {
	first, err := miniav.NewCamera()
	require.NoError(t, err)
	defer first.Destroy()
	second, err := miniav.NewCamera()
	require.NoError(t, err)
	defer second.Destroy()

	require.NoError(t, first.Configure("", miniav.VideoFormat{FrameRate: miniav.FrameRate{Num: 100, Den: 1}}))
	require.NoError(t, second.Configure("", miniav.VideoFormat{FrameRate: miniav.FrameRate{Num: 100, Den: 1}}))

	var firstFrames, secondFrames atomic.Uint64
	require.NoError(t, first.StartCapture(func(b *miniav.Buffer, _ any) {
		firstFrames.Add(1)
		b.Release()
	}, nil))
	require.NoError(t, second.StartCapture(func(b *miniav.Buffer, _ any) {
		secondFrames.Add(1)
		b.Release()
	}, nil))

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, first.StopCapture())

	resumed := secondFrames.Load()
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, second.StopCapture())

	assert.NotZero(t, firstFrames.Load())
	assert.Greater(t, secondFrames.Load(), resumed, "second context stalled after first stopped")
}
