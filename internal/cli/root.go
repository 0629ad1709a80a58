// Package cli implements the miniav command line tool: enumeration,
// format inspection and capture smoke runs on top of the capture
// library.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MichealReed/miniav"
)

var (
	flagVerbose bool

	rootCmd = &cobra.Command{
		Use:   "miniav",
		Short: "Cross-platform audio/video capture tool",
		Long: `miniav enumerates capture devices and records camera, screen,
microphone and system-audio streams through whichever backend is
available on this machine.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				miniav.SetLogLevel(miniav.LogLevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("version").Changed {
				fmt.Println(versionLine())
				return nil
			}
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(NewDevicesCommand())
	rootCmd.AddCommand(NewFormatsCommand())
	rootCmd.AddCommand(NewCaptureCommand())
	rootCmd.AddCommand(NewVersionCommand())
}

func versionLine() string {
	major, minor, patch := miniav.Version()
	return fmt.Sprintf("miniav version %d.%d.%d", major, minor, patch)
}

// NewVersionCommand reports the library version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(versionLine())
		},
	}
}
