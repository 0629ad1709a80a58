package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MichealReed/miniav"
)

type DevicesOptions struct {
	Kind         string
	OutputFormat string
}

// NewDevicesCommand lists capture devices and targets for one kind.
func NewDevicesCommand() *cobra.Command {
	opts := &DevicesOptions{}

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and targets",
		Example: `  miniav devices --kind camera
  miniav devices --kind screen
  miniav devices --kind loopback --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Kind, "kind", "k", "camera", "Capture kind (camera, screen, mic, loopback)")
	flags.StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (json or text)")

	cmd.RegisterFlagCompletionFunc("kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"camera", "screen", "mic", "loopback"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type deviceRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
	Detail  string `json:"detail,omitempty"`
}

func runDevices(opts *DevicesOptions) error {
	kind, err := parseKind(opts.Kind)
	if err != nil {
		return err
	}

	rows, err := enumerateRows(kind)
	if err != nil {
		return err
	}

	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	backends := miniav.RegisteredBackends(kind)
	fmt.Printf("%s devices (backends: %s)\n",
		color.New(color.Bold).Sprint(kind.String()), strings.Join(backends, ", "))
	if len(rows) == 0 {
		fmt.Println(color.New(color.Faint).Sprint("  none found"))
		return nil
	}
	for _, row := range rows {
		marker := " "
		if row.Default {
			marker = color.GreenString("*")
		}
		line := fmt.Sprintf("%s %-24s %s", marker, color.CyanString(row.ID), row.Name)
		if row.Detail != "" {
			line += " " + color.New(color.Faint).Sprint(row.Detail)
		}
		fmt.Println(line)
	}
	return nil
}

func enumerateRows(kind miniav.CaptureKind) ([]deviceRow, error) {
	switch kind {
	case miniav.KindCamera:
		devices, err := miniav.EnumerateCameraDevices()
		if err != nil {
			return nil, err
		}
		rows := make([]deviceRow, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, deviceRow{ID: d.ID, Name: d.Name, Default: d.IsDefault})
		}
		return rows, nil

	case miniav.KindScreen:
		var rows []deviceRow
		for _, tk := range []miniav.TargetKind{miniav.TargetDisplay, miniav.TargetWindow} {
			targets, err := miniav.EnumerateScreenTargets(tk)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				detail := t.Kind.String()
				if t.Width != 0 {
					detail = fmt.Sprintf("%s %dx%d", detail, t.Width, t.Height)
				}
				rows = append(rows, deviceRow{ID: t.ID, Name: t.Name, Default: t.IsDefault, Detail: detail})
			}
		}
		return rows, nil

	case miniav.KindAudioInput:
		devices, err := miniav.EnumerateAudioInputDevices()
		if err != nil {
			return nil, err
		}
		rows := make([]deviceRow, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, deviceRow{ID: d.ID, Name: d.Name, Default: d.IsDefault})
		}
		return rows, nil

	case miniav.KindLoopback:
		targets, err := miniav.EnumerateLoopbackTargets()
		if err != nil {
			return nil, err
		}
		rows := make([]deviceRow, 0, len(targets))
		for _, t := range targets {
			detail := t.Kind.String()
			if t.ProcessID != 0 {
				detail = fmt.Sprintf("%s pid=%d", detail, t.ProcessID)
			}
			rows = append(rows, deviceRow{ID: t.ID, Name: t.Name, Default: t.IsDefault, Detail: detail})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unhandled capture kind %v", kind)
}

func parseKind(s string) (miniav.CaptureKind, error) {
	switch strings.ToLower(s) {
	case "camera":
		return miniav.KindCamera, nil
	case "screen":
		return miniav.KindScreen, nil
	case "mic", "microphone", "audio-input":
		return miniav.KindAudioInput, nil
	case "loopback":
		return miniav.KindLoopback, nil
	default:
		return 0, fmt.Errorf("unknown capture kind %q (want camera, screen, mic or loopback)", s)
	}
}
