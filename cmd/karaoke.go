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
	karaokeOutDeviceIdx int
	karaokeInDeviceIdx  int
	karaokeMicGainDB    float32
	karaokeBufferSize   uint64
	karaokeFrames       int
	karaokeVerbose      bool
)

var karaokeCmd = &cobra.Command{
	Use:   "karaoke <audio_file>",
	Short: "Mix a backing track with live microphone input",
	Long: `Wires a FileSource (the backing track) and a MicSource, through a
gain stage on the mic leg, into a Mixer, and out to a SpeakerSink. Stops
automatically once the backing track finishes, or on Ctrl-C.

Examples:
  engine karaoke backing.mp3
  engine karaoke backing.flac --mic-gain 6`,
	Args: cobra.ExactArgs(1),
	Run:  runKaraoke,
}

func init() {
	rootCmd.AddCommand(karaokeCmd)

	karaokeCmd.Flags().IntVarP(&karaokeOutDeviceIdx, "out", "o", defaultDeviceIndex, "Audio output device index")
	karaokeCmd.Flags().IntVarP(&karaokeInDeviceIdx, "in", "i", defaultDeviceIndex, "Audio input device index")
	karaokeCmd.Flags().Float32Var(&karaokeMicGainDB, "mic-gain", 0, "Microphone gain in dB")
	karaokeCmd.Flags().Uint64VarP(&karaokeBufferSize, "buffer", "b", 0, "Ring FIFO capacity in samples (power of 2)")
	karaokeCmd.Flags().IntVarP(&karaokeFrames, "frames", "f", 0, "PortAudio frames per buffer")
	karaokeCmd.Flags().BoolVarP(&karaokeVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runKaraoke(cmd *cobra.Command, args []string) {
	setupLogging(karaokeVerbose)
	fileName := args[0]

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("file not found", "path", fileName)
		os.Exit(1)
	}

	settings, err := loadDeviceSettings(karaokeOutDeviceIdx, karaokeInDeviceIdx, karaokeBufferSize, karaokeFrames, 0)
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

	session, err := graphapp.StartKaraoke(fileName, karaokeMicGainDB, settings)
	if err != nil {
		slog.Error("failed to start karaoke session", "file", fileName, "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("karaoke session running", "file", fileName, "mic_gain_db", karaokeMicGainDB)
	select {
	case <-session.Exhausted():
		slog.Info("backing track completed", "file", fileName)
	case sig := <-sigChan:
		slog.Info("signal received, stopping", "signal", sig)
	}

	if err := session.Stop(); err != nil {
		slog.Error("failed to stop session", "error", err)
	}
}
