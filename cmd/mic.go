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
	micOutDeviceIdx int
	micInDeviceIdx  int
	micBufferSize   uint64
	micFrames       int
	micVerbose      bool
)

var micCmd = &cobra.Command{
	Use:   "mic",
	Short: "Monitor the microphone through the speaker",
	Long: `Wires a MicSource node straight to a SpeakerSink node for live
monitoring, with no mixing or gain applied. Runs until interrupted.

Examples:
  engine mic
  engine mic --in 1 --out 0`,
	Args: cobra.NoArgs,
	Run:  runMic,
}

func init() {
	rootCmd.AddCommand(micCmd)

	micCmd.Flags().IntVarP(&micOutDeviceIdx, "out", "o", defaultDeviceIndex, "Audio output device index")
	micCmd.Flags().IntVarP(&micInDeviceIdx, "in", "i", defaultDeviceIndex, "Audio input device index")
	micCmd.Flags().Uint64VarP(&micBufferSize, "buffer", "b", 0, "Ring FIFO capacity in samples (power of 2)")
	micCmd.Flags().IntVarP(&micFrames, "frames", "f", 0, "PortAudio frames per buffer")
	micCmd.Flags().BoolVarP(&micVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runMic(cmd *cobra.Command, args []string) {
	setupLogging(micVerbose)

	settings, err := loadDeviceSettings(micOutDeviceIdx, micInDeviceIdx, micBufferSize, micFrames, 0)
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

	session, err := graphapp.StartMic(settings)
	if err != nil {
		slog.Error("failed to start microphone monitoring", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("monitoring microphone, press Ctrl-C to stop")
	sig := <-sigChan
	slog.Info("signal received, stopping", "signal", sig)

	if err := session.Stop(); err != nil {
		slog.Error("failed to stop session", "error", err)
	}
}
