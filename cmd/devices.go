package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ktv-audio/engine/internal/graphapp"
)

var (
	devicesOutDeviceIdx int
	devicesInDeviceIdx  int
	devicesSampleRate   int
	devicesChannels     int
	devicesFrames       int
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show the negotiated device configuration",
	Long: `Runs the same priority search PlayFile/StartMic/StartKaraoke use to
pick a channel count, sample format, and sample rate, and prints the
result without opening any stream.

Examples:
  engine devices
  engine devices --rate 48000 --channels 2`,
	Args: cobra.NoArgs,
	Run:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().IntVarP(&devicesOutDeviceIdx, "out", "o", defaultDeviceIndex, "Audio output device index")
	devicesCmd.Flags().IntVarP(&devicesInDeviceIdx, "in", "i", defaultDeviceIndex, "Audio input device index")
	devicesCmd.Flags().IntVar(&devicesSampleRate, "rate", 0, "Preferred sample rate in Hz (0 = use the configured sample_rate)")
	devicesCmd.Flags().IntVar(&devicesChannels, "channels", 0, "Preferred channel count (0 = use the configured channels)")
	devicesCmd.Flags().IntVarP(&devicesFrames, "frames", "f", 0, "PortAudio frames per buffer")
}

func runDevices(cmd *cobra.Command, args []string) {
	setupLogging(false)

	settings, err := loadDeviceSettings(devicesOutDeviceIdx, devicesInDeviceIdx, 0, devicesFrames, devicesSampleRate)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if devicesChannels != 0 {
		settings.Channels = devicesChannels
	}

	configs, err := graphapp.ListNegotiatedConfigs(settings)
	if err != nil {
		slog.Error("negotiation failed", "error", err)
		os.Exit(1)
	}

	for _, c := range configs {
		fmt.Printf("%-7s device=%-3d channels=%-2d format=%-6s sample_rate=%d\n",
			c.Direction, c.DeviceIdx, c.Picked.Channels, c.Picked.Format, c.Picked.SampleRate)
	}
}
