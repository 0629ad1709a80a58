package synthetic

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/MichealReed/miniav"
)

var audioInputDevices = []miniav.DeviceInfo{
	{ID: "synthetic-mic:0", Name: "Synthetic Microphone", IsDefault: true},
}

var audioInputFormats = []miniav.AudioFormat{
	{SampleFormat: miniav.SampleFormatF32, SampleRate: 48000, Channels: 2, FramesPerBuffer: 480},
	{SampleFormat: miniav.SampleFormatS16, SampleRate: 48000, Channels: 2, FramesPerBuffer: 480},
	{SampleFormat: miniav.SampleFormatS16, SampleRate: 44100, Channels: 1, FramesPerBuffer: 441},
}

var loopbackTargets = []miniav.LoopbackTarget{
	{ID: "system:output", Name: "System Output", Kind: miniav.LoopbackSystemOutput, IsDefault: true},
	{ID: "process:4242", Name: "Synthetic Player", Kind: miniav.LoopbackProcess, ProcessID: 4242},
}

const toneFrequency = 440.0

// audioProducer is the shared body of the audio-input and loopback
// backends; they differ only in what they enumerate.
type audioProducer struct {
	mu     sync.Mutex
	bound  string
	format miniav.AudioFormat
	prod   *producer
}

func (b *audioProducer) configure(bound string, req miniav.AudioFormat) (miniav.AudioFormat, error) {
	actual := negotiateAudio(req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		return miniav.AudioFormat{}, miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic audio source is capturing")
	}
	b.bound = bound
	b.format = actual
	return actual, nil
}

func (b *audioProducer) start(deliver miniav.DeliverFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound == "" {
		return miniav.Errorf(miniav.CodeNotConfigured, "synthetic audio source has no configured device")
	}
	if b.prod != nil {
		return miniav.Errorf(miniav.CodeAlreadyRunning, "synthetic audio source is capturing")
	}

	format := b.format
	interval := time.Duration(float64(time.Second) * float64(format.FramesPerBuffer) / float64(format.SampleRate))
	b.prod = startProducer(interval, deliver, func(d miniav.DeliverFunc, elapsed time.Duration, _ uint64) {
		data := makeTone(format, elapsed)
		buf := &miniav.Buffer{
			Type:        miniav.BufferAudio,
			ContentType: miniav.ContentCPU,
			TimestampUs: elapsed.Microseconds(),
			DataSize:    uint32(len(data)),
			AudioFormat: format,
			Frames:      format.FramesPerBuffer,
			Data:        data,
		}
		d(buf)
	})
	return nil
}

func (b *audioProducer) stopCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod == nil {
		return miniav.Errorf(miniav.CodeNotRunning, "synthetic audio source is not capturing")
	}
	b.prod.halt()
	b.prod = nil
	return nil
}

func (b *audioProducer) destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prod != nil {
		b.prod.halt()
		b.prod = nil
	}
	return nil
}

// Audio buffers carry plain Go slices; Release never reaches the
// backend unless a caller hands back a foreign payload.
func (b *audioProducer) ReleasePayload(p *miniav.Payload) error {
	if p == nil {
		return miniav.Errorf(miniav.CodeInvalidArg, "release of nil payload")
	}
	return nil
}

type audioInputBackend struct {
	audioProducer
}

func newAudioInputBackend() *audioInputBackend { return &audioInputBackend{} }

func (b *audioInputBackend) Name() string { return Name }

func (b *audioInputBackend) Init() error { return nil }

func (b *audioInputBackend) Destroy() error { return b.destroy() }

func (b *audioInputBackend) EnumerateDevices() ([]miniav.DeviceInfo, error) {
	out := make([]miniav.DeviceInfo, len(audioInputDevices))
	copy(out, audioInputDevices)
	return out, nil
}

func (b *audioInputBackend) DefaultFormat(deviceID string) (miniav.AudioFormat, error) {
	if _, err := lookupAudioDevice(deviceID); err != nil {
		return miniav.AudioFormat{}, err
	}
	return audioInputFormats[0], nil
}

func (b *audioInputBackend) SupportedFormats(deviceID string) ([]miniav.AudioFormat, error) {
	if _, err := lookupAudioDevice(deviceID); err != nil {
		return nil, err
	}
	out := make([]miniav.AudioFormat, len(audioInputFormats))
	copy(out, audioInputFormats)
	return out, nil
}

func (b *audioInputBackend) Configure(deviceID string, format miniav.AudioFormat) (miniav.AudioFormat, error) {
	dev, err := lookupAudioDevice(deviceID)
	if err != nil {
		return miniav.AudioFormat{}, err
	}
	return b.configure(dev.ID, format)
}

func (b *audioInputBackend) StartCapture(deliver miniav.DeliverFunc) error { return b.start(deliver) }

func (b *audioInputBackend) StopCapture() error { return b.stopCapture() }

type loopbackBackend struct {
	audioProducer
}

func newLoopbackBackend() *loopbackBackend { return &loopbackBackend{} }

func (b *loopbackBackend) Name() string { return Name }

func (b *loopbackBackend) Init() error { return nil }

func (b *loopbackBackend) Destroy() error { return b.destroy() }

func (b *loopbackBackend) EnumerateTargets() ([]miniav.LoopbackTarget, error) {
	out := make([]miniav.LoopbackTarget, len(loopbackTargets))
	copy(out, loopbackTargets)
	return out, nil
}

func (b *loopbackBackend) DefaultFormat(targetID string) (miniav.AudioFormat, error) {
	if _, err := lookupLoopbackTarget(targetID); err != nil {
		return miniav.AudioFormat{}, err
	}
	return audioInputFormats[0], nil
}

func (b *loopbackBackend) Configure(targetID string, format miniav.AudioFormat) (miniav.AudioFormat, error) {
	t, err := lookupLoopbackTarget(targetID)
	if err != nil {
		return miniav.AudioFormat{}, err
	}
	return b.configure(t.ID, format)
}

func (b *loopbackBackend) StartCapture(deliver miniav.DeliverFunc) error { return b.start(deliver) }

func (b *loopbackBackend) StopCapture() error { return b.stopCapture() }

func lookupAudioDevice(deviceID string) (miniav.DeviceInfo, error) {
	if deviceID == "" {
		return audioInputDevices[0], nil
	}
	for _, d := range audioInputDevices {
		if d.ID == deviceID {
			return d, nil
		}
	}
	return miniav.DeviceInfo{}, miniav.Errorf(miniav.CodeDeviceNotFound, "no synthetic audio device %q", deviceID)
}

func lookupLoopbackTarget(targetID string) (miniav.LoopbackTarget, error) {
	if targetID == "" {
		return loopbackTargets[0], nil
	}
	for _, t := range loopbackTargets {
		if t.ID == targetID {
			return t, nil
		}
	}
	return miniav.LoopbackTarget{}, miniav.Errorf(miniav.CodeDeviceNotFound, "no synthetic loopback target %q", targetID)
}

// negotiateAudio snaps a requested format onto the nearest supported
// mode, favoring an exact sample-rate match.
func negotiateAudio(req miniav.AudioFormat) miniav.AudioFormat {
	if req.IsZero() {
		return audioInputFormats[0]
	}
	best := audioInputFormats[0]
	for _, f := range audioInputFormats {
		if f.SampleRate == req.SampleRate && f.Channels == req.Channels {
			best = f
			if f.SampleFormat == req.SampleFormat {
				break
			}
		}
	}
	if req.FramesPerBuffer > 0 {
		best.FramesPerBuffer = req.FramesPerBuffer
	}
	return best
}

// makeTone renders one buffer of a 440 Hz tone in the negotiated
// format, phase-continuous across buffers via the elapsed time.
func makeTone(format miniav.AudioFormat, elapsed time.Duration) []byte {
	frames := int(format.FramesPerBuffer)
	channels := int(format.Channels)
	sampleBytes := format.SampleFormat.BytesPerSample()
	if sampleBytes == 0 {
		sampleBytes = 2
	}
	data := make([]byte, frames*channels*sampleBytes)

	phase := 2 * math.Pi * toneFrequency * elapsed.Seconds()
	step := 2 * math.Pi * toneFrequency / float64(format.SampleRate)

	for i := 0; i < frames; i++ {
		v := math.Sin(phase + float64(i)*step)
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * sampleBytes
			switch format.SampleFormat {
			case miniav.SampleFormatF32:
				binary.LittleEndian.PutUint32(data[off:], math.Float32bits(float32(v)))
			case miniav.SampleFormatS32:
				binary.LittleEndian.PutUint32(data[off:], uint32(int32(v*math.MaxInt32)))
			default:
				binary.LittleEndian.PutUint16(data[off:], uint16(int16(v*math.MaxInt16)))
			}
		}
	}
	return data
}
