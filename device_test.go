package miniav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, FrameRate{Num: 30, Den: 1}.Float())
	assert.InDelta(t, 29.97, FrameRate{Num: 30000, Den: 1001}.Float(), 0.001)
	assert.Equal(t, 0.0, FrameRate{}.Float())

	assert.Equal(t, "30", FrameRate{Num: 30, Den: 1}.String())
	assert.Equal(t, "30000/1001", FrameRate{Num: 30000, Den: 1001}.String())
}

func TestVideoFormatIsZero(t *testing.T) {
	assert.True(t, VideoFormat{}.IsZero())
	assert.True(t, VideoFormat{Output: OutputGPUWhenAvailable}.IsZero())
	assert.False(t, VideoFormat{Width: 640}.IsZero())
	assert.False(t, VideoFormat{PixelFormat: PixelFormatNV12}.IsZero())
}

func TestVideoFormatString(t *testing.T) {
	f := VideoFormat{Width: 1280, Height: 720, PixelFormat: PixelFormatBGRA, FrameRate: FrameRate{Num: 30, Den: 1}}
	assert.Equal(t, "1280x720@30 BGRA", f.String())
}

func TestSampleFormatBytesPerSample(t *testing.T) {
	assert.Equal(t, 2, SampleFormatS16.BytesPerSample())
	assert.Equal(t, 4, SampleFormatS32.BytesPerSample())
	assert.Equal(t, 4, SampleFormatF32.BytesPerSample())
	assert.Equal(t, 0, SampleFormatUnknown.BytesPerSample())
}

func TestAudioFormatIsZero(t *testing.T) {
	assert.True(t, AudioFormat{}.IsZero())
	assert.False(t, AudioFormat{SampleRate: 48000}.IsZero())
}
