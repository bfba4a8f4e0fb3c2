package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/ktv-audio/engine/internal/graphapp"
)

var (
	toneDeviceIdx  int
	toneFrequency  float32
	toneAmplitude  float32
	toneBufferSize uint64
	toneFrames     int
	toneVerbose    bool
)

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Emit a synthetic test tone through the speaker",
	Long: `Plays a fixed-frequency sine wave, useful for verifying a device
configuration without needing a file or a microphone. Runs until
interrupted.

Examples:
  engine tone
  engine tone --freq 880 --amplitude 0.2 -d 0`,
	Args: cobra.NoArgs,
	Run:  runTone,
}

func init() {
	rootCmd.AddCommand(toneCmd)

	toneCmd.Flags().IntVarP(&toneDeviceIdx, "device", "d", defaultDeviceIndex, "Audio output device index")
	toneCmd.Flags().Float32Var(&toneFrequency, "freq", 440, "Tone frequency in Hz")
	toneCmd.Flags().Float32Var(&toneAmplitude, "amplitude", 0.1, "Tone amplitude (0-1)")
	toneCmd.Flags().Uint64VarP(&toneBufferSize, "buffer", "b", 0, "Ring FIFO capacity in samples (power of 2)")
	toneCmd.Flags().IntVarP(&toneFrames, "frames", "f", 0, "PortAudio frames per buffer")
	toneCmd.Flags().BoolVarP(&toneVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runTone(cmd *cobra.Command, args []string) {
	setupLogging(toneVerbose)

	settings, err := loadDeviceSettings(toneDeviceIdx, defaultDeviceIndex, toneBufferSize, toneFrames, 0)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize PortAudio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	session, err := graphapp.StartTone(toneFrequency, toneAmplitude, settings)
	if err != nil {
		slog.Error("failed to start tone", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("emitting tone", "frequency_hz", toneFrequency, "amplitude", toneAmplitude)
	sig := <-sigChan
	slog.Info("signal received, stopping", "signal", sig)

	if err := session.Stop(); err != nil {
		slog.Error("failed to stop session", "error", err)
	}
}
