package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MichealReed/miniav"
)

type FormatsOptions struct {
	Kind   string
	Device string
}

// NewFormatsCommand lists the formats a device supports.
func NewFormatsCommand() *cobra.Command {
	opts := &FormatsOptions{}

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported formats for a device",
		Example: `  miniav formats --kind camera
  miniav formats --kind mic --device synthetic-mic:0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Kind, "kind", "k", "camera", "Capture kind (camera, screen, mic, loopback)")
	flags.StringVarP(&opts.Device, "device", "d", "", "Device or target ID (empty selects the default)")

	return cmd
}

func runFormats(opts *FormatsOptions) error {
	kind, err := parseKind(opts.Kind)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	switch kind {
	case miniav.KindCamera:
		def, err := miniav.CameraDefaultFormat(opts.Device)
		if err != nil {
			return err
		}
		formats, err := miniav.CameraSupportedFormats(opts.Device)
		if err != nil {
			return err
		}
		bold.Println("camera formats")
		for _, f := range formats {
			marker := " "
			if f == def {
				marker = color.GreenString("*")
			}
			fmt.Printf("%s %s\n", marker, f)
		}

	case miniav.KindScreen:
		def, err := miniav.ScreenDefaultFormat(opts.Device)
		if err != nil {
			return err
		}
		bold.Println("screen default format")
		fmt.Printf("  %s\n", def)
		faint.Println("  (the selected target decides the final dimensions)")

	case miniav.KindAudioInput:
		def, err := miniav.AudioInputDefaultFormat(opts.Device)
		if err != nil {
			return err
		}
		formats, err := miniav.AudioInputSupportedFormats(opts.Device)
		if err != nil {
			return err
		}
		bold.Println("microphone formats")
		for _, f := range formats {
			marker := " "
			if f == def {
				marker = color.GreenString("*")
			}
			fmt.Printf("%s %s\n", marker, f)
		}

	case miniav.KindLoopback:
		def, err := miniav.LoopbackDefaultFormat(opts.Device)
		if err != nil {
			return err
		}
		bold.Println("loopback default format")
		fmt.Printf("  %s\n", def)
	}
	return nil
}
