package miniav

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFakeCamera registers a preferred-priority fake for the duration
// of one test so NewCamera deterministically selects it.
func withFakeCamera(t *testing.T, fake *fakeCameraBackend) {
	t.Helper()
	RegisterCameraBackend(fake.name, PriorityPreferred, func() CameraBackend { return fake })
	t.Cleanup(func() {
		cameraRegistry.unregister(fake.name)
		fake.halt()
	})
}

func TestCameraLifecycle(t *testing.T) {
	fake := newFakeCamera("lifecycle-cam")
	withFakeCamera(t, fake)

	cam, err := NewCamera()
	require.NoError(t, err)
	assert.Equal(t, "lifecycle-cam", cam.Backend())

	require.NoError(t, cam.Configure("", VideoFormat{Width: 32, Height: 24}))
	format, err := cam.ConfiguredFormat()
	require.NoError(t, err)
	assert.Equal(t, uint32(32), format.Width)

	var frames atomic.Uint64
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) {
		assert.Equal(t, BufferVideo, b.Type)
		assert.Equal(t, format, b.VideoFormat)
		assert.NotZero(t, b.DataSize)
		frames.Add(1)
		require.NoError(t, b.Release())
	}, nil))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cam.StopCapture())
	assert.NotZero(t, frames.Load())

	// Stop returns to Configured; a second capture run is legal.
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil))
	require.NoError(t, cam.StopCapture())

	require.NoError(t, cam.Destroy())
}

func TestCameraCallbackUserData(t *testing.T) {
	fake := newFakeCamera("userdata-cam")
	withFakeCamera(t, fake)

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))

	type tag struct{ n int }
	want := &tag{n: 7}
	var got atomic.Pointer[tag]
	require.NoError(t, cam.StartCapture(func(b *Buffer, userData any) {
		if v, ok := userData.(*tag); ok {
			got.Store(v)
		}
		assert.Same(t, b.UserData, userData)
		b.Release()
	}, want))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cam.StopCapture())
	assert.Same(t, want, got.Load())
}

func TestCameraStartBeforeConfigure(t *testing.T) {
	withFakeCamera(t, newFakeCamera("unconfigured-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()

	err = cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestCameraStartNilCallback(t *testing.T) {
	withFakeCamera(t, newFakeCamera("nilcb-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))

	err = cam.StartCapture(nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidArg))
}

func TestCameraDoubleStart(t *testing.T) {
	withFakeCamera(t, newFakeCamera("double-start-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil))

	err = cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	require.NoError(t, cam.StopCapture())
}

func TestCameraStopWhenIdle(t *testing.T) {
	withFakeCamera(t, newFakeCamera("idle-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()

	assert.True(t, errors.Is(cam.StopCapture(), ErrNotRunning))

	require.NoError(t, cam.Configure("", VideoFormat{}))
	assert.True(t, errors.Is(cam.StopCapture(), ErrNotRunning))
}

func TestCameraConfigureWhileCapturing(t *testing.T) {
	withFakeCamera(t, newFakeCamera("busy-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil))

	err = cam.Configure("", VideoFormat{Width: 320, Height: 240})
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	require.NoError(t, cam.StopCapture())
}

func TestCameraConfigureFailureResetsFormat(t *testing.T) {
	fake := newFakeCamera("flaky-cam")
	withFakeCamera(t, fake)

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))

	// A failed reconfigure drops the context back to Created: the old
	// format is gone and capture cannot start.
	fake.configErr = Errorf(CodeFormatNotSupported, "rejected")
	err = cam.Configure("", VideoFormat{Width: 9999})
	assert.True(t, errors.Is(err, ErrFormatNotSupported))

	_, err = cam.ConfiguredFormat()
	assert.True(t, errors.Is(err, ErrNotInitialized))

	err = cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestCameraUseAfterDestroy(t *testing.T) {
	withFakeCamera(t, newFakeCamera("destroyed-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	require.NoError(t, cam.Destroy())

	assert.True(t, errors.Is(cam.Configure("", VideoFormat{}), ErrInvalidHandle))
	_, err = cam.ConfiguredFormat()
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	assert.True(t, errors.Is(cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil), ErrInvalidHandle))
	assert.True(t, errors.Is(cam.StopCapture(), ErrInvalidHandle))
	assert.True(t, errors.Is(cam.Destroy(), ErrInvalidHandle))
}

func TestNilContextOperations(t *testing.T) {
	// A failed constructor leaves the caller with a nil context; every
	// lifecycle call on it must fail with InvalidArg instead of crashing.
	var cam *Camera
	assert.Equal(t, "", cam.Backend())
	assert.True(t, errors.Is(cam.Configure("", VideoFormat{}), ErrInvalidArg))
	_, err := cam.ConfiguredFormat()
	assert.True(t, errors.Is(err, ErrInvalidArg))
	assert.True(t, errors.Is(cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil), ErrInvalidArg))
	assert.True(t, errors.Is(cam.StopCapture(), ErrInvalidArg))
	assert.True(t, errors.Is(cam.Destroy(), ErrInvalidArg))

	var scr *Screen
	assert.Equal(t, "", scr.Backend())
	assert.True(t, errors.Is(scr.ConfigureDisplay("", VideoFormat{}, ScreenOptions{}), ErrInvalidArg))
	assert.True(t, errors.Is(scr.ConfigureWindow("w", VideoFormat{}, ScreenOptions{}), ErrInvalidArg))
	assert.True(t, errors.Is(scr.ConfigureRegion("", Region{Width: 1, Height: 1}, VideoFormat{}, ScreenOptions{}), ErrInvalidArg))
	_, _, err = scr.ConfiguredFormats()
	assert.True(t, errors.Is(err, ErrInvalidArg))
	assert.True(t, errors.Is(scr.StopCapture(), ErrInvalidArg))
	assert.True(t, errors.Is(scr.Destroy(), ErrInvalidArg))

	var mic *AudioInput
	assert.True(t, errors.Is(mic.Configure("", AudioFormat{}), ErrInvalidArg))
	_, err = mic.ConfiguredFormat()
	assert.True(t, errors.Is(err, ErrInvalidArg))
	assert.True(t, errors.Is(mic.StopCapture(), ErrInvalidArg))
	assert.True(t, errors.Is(mic.Destroy(), ErrInvalidArg))

	var loop *Loopback
	assert.True(t, errors.Is(loop.Configure("", AudioFormat{}), ErrInvalidArg))
	assert.True(t, errors.Is(loop.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil), ErrInvalidArg))
	assert.True(t, errors.Is(loop.StopCapture(), ErrInvalidArg))
	assert.True(t, errors.Is(loop.Destroy(), ErrInvalidArg))
}

func TestCameraNoCallbackAfterStop(t *testing.T) {
	withFakeCamera(t, newFakeCamera("stop-barrier-cam"))

	cam, err := NewCamera()
	require.NoError(t, err)
	defer cam.Destroy()
	require.NoError(t, cam.Configure("", VideoFormat{}))

	var frames atomic.Uint64
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) {
		frames.Add(1)
		b.Release()
	}, nil))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cam.StopCapture())

	seen := frames.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seen, frames.Load(), "callback fired after StopCapture returned")
}

func TestCameraStopDiscardsRacingFrames(t *testing.T) {
	// A backend whose stop does not actually silence the producer: the
	// delivery gate must still hold the no-callback guarantee and
	// release the late frames.
	fake := newFakeCamera("rogue-cam")
	fake.ignoreStop = true
	withFakeCamera(t, fake)

	cam, err := NewCamera()
	require.NoError(t, err)
	require.NoError(t, cam.Configure("", VideoFormat{}))

	var frames atomic.Uint64
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) {
		frames.Add(1)
		b.Release()
	}, nil))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cam.StopCapture())

	seen := frames.Load()
	released := fake.released.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, seen, frames.Load(), "callback fired after StopCapture returned")
	assert.Greater(t, fake.released.Load(), released, "late frames were not released")

	fake.halt()
	require.NoError(t, cam.Destroy())
}

func TestCameraDestroyWhileCapturing(t *testing.T) {
	fake := newFakeCamera("teardown-cam")
	withFakeCamera(t, fake)

	cam, err := NewCamera()
	require.NoError(t, err)
	require.NoError(t, cam.Configure("", VideoFormat{}))
	require.NoError(t, cam.StartCapture(func(b *Buffer, _ any) { b.Release() }, nil))

	require.NoError(t, cam.Destroy())
	assert.True(t, errors.Is(cam.StopCapture(), ErrInvalidHandle))
}

func TestAudioInputEmptyDeviceList(t *testing.T) {
	RegisterAudioInputBackend("empty-mic", PriorityPreferred, func() AudioInputBackend {
		return &fakeAudioBackend{name: "empty-mic"}
	})
	t.Cleanup(func() { audioInputRegistry.unregister("empty-mic") })

	// No devices is a valid state, not an error.
	devices, err := EnumerateAudioInputDevices()
	require.NoError(t, err)
	assert.Empty(t, devices)
}
