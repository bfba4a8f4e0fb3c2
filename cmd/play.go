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
	playDeviceIdx  int
	playBufferSize uint64
	playFrames     int
	playVerbose    bool
)

var playCmd = &cobra.Command{
	Use:   "play <audio_file> [audio_file...]",
	Short: "Play one or more audio files through the speaker",
	Long: `Decodes each file through a FileSource node into a SpeakerSink node,
playing files sequentially.

Examples:
  engine play music.mp3
  engine play -d 0 music.flac
  engine play song1.mp3 song2.flac song3.ogg`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", defaultDeviceIndex, "Audio output device index")
	playCmd.Flags().Uint64VarP(&playBufferSize, "buffer", "b", 0, "Ring FIFO capacity in samples (power of 2)")
	playCmd.Flags().IntVarP(&playFrames, "frames", "f", 0, "PortAudio frames per buffer")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) {
	setupLogging(playVerbose)

	settings, err := loadDeviceSettings(playDeviceIdx, defaultDeviceIndex, playBufferSize, playFrames, 0)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	for _, f := range args {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			slog.Error("file not found", "path", f)
			os.Exit(1)
		}
	}

	slog.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize PortAudio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	interrupted := false
	for i, fileName := range args {
		if interrupted {
			break
		}
		slog.Info("playing file", "index", i+1, "total", len(args), "file", fileName)

		session, err := graphapp.PlayFile(fileName, settings)
		if err != nil {
			slog.Error("failed to start playback", "file", fileName, "error", err)
			continue
		}

		select {
		case <-session.Exhausted():
			slog.Info("file completed", "file", fileName)
		case sig := <-sigChan:
			slog.Info("signal received, stopping playback", "signal", sig)
			interrupted = true
		}
		if err := session.Stop(); err != nil {
			slog.Error("failed to stop session", "error", err)
		}
	}

	if interrupted {
		slog.Info("playback interrupted")
	} else {
		slog.Info("all files completed", "total", len(args))
	}
}
