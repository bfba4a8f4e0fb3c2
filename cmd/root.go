package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ktv-audio/engine/internal/config"
	"github.com/ktv-audio/engine/internal/graphapp"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Low-latency audio graph engine for karaoke playback",
	Long: `engine - a real-time audio graph runtime built around a lock-free SPSC
ring buffer node abstraction: sources (file, microphone, synthetic tone),
a gain stage, a mixer, and a PortAudio speaker sink, wired together with
explicit device negotiation and sample-rate conversion.

Commands:
  - play:    play an audio file through the speaker
  - mic:     monitor the microphone through the speaker
  - karaoke: mix a backing track with live microphone input
  - tone:    emit a synthetic test tone
  - devices: show the negotiated device configuration
  - transform: offline sample-rate/format conversion (no live devices)`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs a slog text handler at the requested verbosity,
// following the teacher's cmd/player.go convention of routing everything
// through log/slog rather than the standard log package.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// loadDeviceSettings merges an optional config file with command-line flag
// overrides into a graphapp.DeviceSettings, following the cobra+viper
// layering pattern: flags win when explicitly set, otherwise the config
// file (or its defaults) apply.
func loadDeviceSettings(outputDevice, inputDevice int, bufferSize uint64, framesPerBuffer, sampleRate int) (graphapp.DeviceSettings, error) {
	if err := config.Init(); err != nil {
		return graphapp.DeviceSettings{}, err
	}
	settings, err := config.Get()
	if err != nil {
		return graphapp.DeviceSettings{}, err
	}

	s := graphapp.DeviceSettings{
		OutputDeviceIndex: settings.OutputDeviceIndex,
		InputDeviceIndex:  settings.InputDeviceIndex,
		SampleRate:        settings.SampleRate,
		Channels:          settings.Channels,
		BufferSize:        settings.BufferSize,
		FramesPerBuffer:   settings.FramesPerBuffer,
	}
	if outputDevice != defaultDeviceIndex {
		s.OutputDeviceIndex = outputDevice
	}
	if inputDevice != defaultDeviceIndex {
		s.InputDeviceIndex = inputDevice
	}
	if bufferSize != 0 {
		s.BufferSize = bufferSize
	}
	if framesPerBuffer != 0 {
		s.FramesPerBuffer = framesPerBuffer
	}
	if sampleRate != 0 {
		s.SampleRate = sampleRate
	}
	return s, nil
}

// defaultDeviceIndex is the flag default meaning "use the config file's
// device index instead of overriding it".
const defaultDeviceIndex = -2
