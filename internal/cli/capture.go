package cli

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MichealReed/miniav"
)

type CaptureOptions struct {
	Kind     string
	Device   string
	Width    uint32
	Height   uint32
	FPS      uint32
	Duration time.Duration
	Output   string
	Cursor   bool
	Audio    bool
}

// NewCaptureCommand records one stream for a fixed duration.
func NewCaptureCommand() *cobra.Command {
	opts := &CaptureOptions{}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one stream for a fixed duration",
		Long: `Capture opens the selected kind with the highest-priority available
backend, runs for the given duration and reports delivery statistics.
With --out the raw stream bytes are appended to a file.`,
		Example: `  miniav capture --kind camera --duration 5s
  miniav capture --kind screen --cursor --out screen.raw
  miniav capture --kind loopback --duration 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Kind, "kind", "k", "camera", "Capture kind (camera, screen, mic, loopback)")
	flags.StringVarP(&opts.Device, "device", "d", "", "Device or target ID (empty selects the default)")
	flags.Uint32Var(&opts.Width, "width", v.GetUint32("capture.width"), "Requested frame width (0 = backend default)")
	flags.Uint32Var(&opts.Height, "height", v.GetUint32("capture.height"), "Requested frame height (0 = backend default)")
	flags.Uint32Var(&opts.FPS, "fps", v.GetUint32("capture.fps"), "Requested frame rate (0 = backend default)")
	flags.DurationVar(&opts.Duration, "duration", v.GetDuration("capture.duration"), "How long to capture")
	flags.StringVar(&opts.Output, "out", v.GetString("capture.output"), "File to append raw stream bytes to")
	flags.BoolVar(&opts.Cursor, "cursor", v.GetBool("capture.cursor"), "Embed the cursor (screen capture)")
	flags.BoolVar(&opts.Audio, "audio", v.GetBool("capture.audio"), "Tap system audio alongside video (screen capture)")

	return cmd
}

// captureSink counts and optionally persists delivered buffers. The
// callback runs on the backend's delivery thread, so counters are
// atomic and the file is written without further locking (deliveries
// are ordered).
type captureSink struct {
	frames atomic.Uint64
	bytes  atomic.Uint64
	file   *os.File
}

func (s *captureSink) onBuffer(b *miniav.Buffer, _ any) {
	defer b.Release()

	s.frames.Add(1)
	var data []byte
	switch b.Type {
	case miniav.BufferVideo:
		data = b.Planes[0].Data
	case miniav.BufferAudio:
		data = b.Data
	}
	s.bytes.Add(uint64(len(data)))
	if s.file != nil && data != nil {
		if _, err := s.file.Write(data); err != nil {
			miniav.Logger().WithError(err).Error("writing capture output failed")
		}
	}
}

func (s *captureSink) report(elapsed time.Duration, backend string) {
	frames := s.frames.Load()
	bytes := s.bytes.Load()
	rate := float64(frames) / elapsed.Seconds()
	fmt.Printf("%s %d buffers, %d bytes in %s (%.1f/s) via %s\n",
		color.GreenString("done:"), frames, bytes, elapsed.Round(time.Millisecond),
		rate, color.CyanString(backend))
}

func runCapture(opts *CaptureOptions) error {
	kind, err := parseKind(opts.Kind)
	if err != nil {
		return err
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}

	sink := &captureSink{}
	if opts.Output != "" {
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		sink.file = f
	}

	switch kind {
	case miniav.KindCamera:
		return captureCamera(opts, sink)
	case miniav.KindScreen:
		return captureScreen(opts, sink)
	case miniav.KindAudioInput:
		return captureMic(opts, sink)
	case miniav.KindLoopback:
		return captureLoopback(opts, sink)
	}
	return fmt.Errorf("unhandled capture kind %v", kind)
}

func captureCamera(opts *CaptureOptions, sink *captureSink) error {
	cam, err := miniav.NewCamera()
	if err != nil {
		return err
	}
	defer cam.Destroy()

	format := miniav.VideoFormat{Width: opts.Width, Height: opts.Height}
	if opts.FPS != 0 {
		format.FrameRate = miniav.FrameRate{Num: opts.FPS, Den: 1}
	}
	if err := cam.Configure(opts.Device, format); err != nil {
		return err
	}
	actual, err := cam.ConfiguredFormat()
	if err != nil {
		return err
	}
	fmt.Printf("capturing %s via %s for %s\n", actual, color.CyanString(cam.Backend()), opts.Duration)

	start := time.Now()
	if err := cam.StartCapture(sink.onBuffer, nil); err != nil {
		return err
	}
	time.Sleep(opts.Duration)
	if err := cam.StopCapture(); err != nil {
		return err
	}
	sink.report(time.Since(start), cam.Backend())
	return nil
}

func captureScreen(opts *CaptureOptions, sink *captureSink) error {
	scr, err := miniav.NewScreen()
	if err != nil {
		return err
	}
	defer scr.Destroy()

	format := miniav.VideoFormat{Width: opts.Width, Height: opts.Height}
	if opts.FPS != 0 {
		format.FrameRate = miniav.FrameRate{Num: opts.FPS, Den: 1}
	}
	sopts := miniav.ScreenOptions{IncludeCursor: opts.Cursor, IncludeAudio: opts.Audio}
	if err := scr.ConfigureDisplay(opts.Device, format, sopts); err != nil {
		return err
	}
	video, audio, err := scr.ConfiguredFormats()
	if err != nil {
		return err
	}
	fmt.Printf("capturing %s via %s for %s\n", video, color.CyanString(scr.Backend()), opts.Duration)
	if !audio.IsZero() {
		fmt.Printf("          audio %s\n", audio)
	}

	start := time.Now()
	if err := scr.StartCapture(sink.onBuffer, nil); err != nil {
		return err
	}
	time.Sleep(opts.Duration)
	if err := scr.StopCapture(); err != nil {
		return err
	}
	sink.report(time.Since(start), scr.Backend())
	return nil
}

func captureMic(opts *CaptureOptions, sink *captureSink) error {
	mic, err := miniav.NewAudioInput()
	if err != nil {
		return err
	}
	defer mic.Destroy()

	if err := mic.Configure(opts.Device, miniav.AudioFormat{}); err != nil {
		return err
	}
	actual, err := mic.ConfiguredFormat()
	if err != nil {
		return err
	}
	fmt.Printf("capturing %s via %s for %s\n", actual, color.CyanString(mic.Backend()), opts.Duration)

	start := time.Now()
	if err := mic.StartCapture(sink.onBuffer, nil); err != nil {
		return err
	}
	time.Sleep(opts.Duration)
	if err := mic.StopCapture(); err != nil {
		return err
	}
	sink.report(time.Since(start), mic.Backend())
	return nil
}

func captureLoopback(opts *CaptureOptions, sink *captureSink) error {
	lb, err := miniav.NewLoopback()
	if err != nil {
		return err
	}
	defer lb.Destroy()

	if err := lb.Configure(opts.Device, miniav.AudioFormat{}); err != nil {
		return err
	}
	actual, err := lb.ConfiguredFormat()
	if err != nil {
		return err
	}
	fmt.Printf("capturing %s via %s for %s\n", actual, color.CyanString(lb.Backend()), opts.Duration)

	start := time.Now()
	if err := lb.StartCapture(sink.onBuffer, nil); err != nil {
		return err
	}
	time.Sleep(opts.Duration)
	if err := lb.StopCapture(); err != nil {
		return err
	}
	sink.report(time.Since(start), lb.Backend())
	return nil
}
