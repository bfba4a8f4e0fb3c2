// Package graphapp assembles node graphs (source -> [mixer] -> sink) for the
// CLI commands under cmd/, the role internal/fileplayer's FilePlayer played
// in the teacher repo before the graph abstraction replaced its bespoke
// ringbuffer-of-frames plumbing.
package graphapp

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ktv-audio/engine/internal/rtpriority"
	"github.com/ktv-audio/engine/pkg/decoders"
	"github.com/ktv-audio/engine/pkg/devicenegotiation"
	"github.com/ktv-audio/engine/pkg/gainnode"
	"github.com/ktv-audio/engine/pkg/mixernode"
	"github.com/ktv-audio/engine/pkg/node"
	"github.com/ktv-audio/engine/pkg/sampleformat"
	"github.com/ktv-audio/engine/pkg/sinknode"
	"github.com/ktv-audio/engine/pkg/sourcenode"
)

// DeviceSettings is the subset of internal/config.Settings a graph needs to
// open streams and negotiate configuration.
type DeviceSettings struct {
	OutputDeviceIndex int
	InputDeviceIndex  int
	SampleRate        int
	Channels          int
	BufferSize        uint64
	FramesPerBuffer   int
}

// wideCapabilities models the common range of configurations a consumer
// sound card supports. Real enumeration (querying the device's actual
// supported ranges) belongs behind the same devicenegotiation.Capabilities
// interface; this conservative, hardware-independent stand-in lets
// negotiation run the same priority search it would against a real query.
type wideCapabilities struct {
	maxChannels int
}

func (c wideCapabilities) SupportedRanges() []devicenegotiation.SupportedRange {
	var ranges []devicenegotiation.SupportedRange
	channelCounts := []int{2, 1}
	if c.maxChannels == 1 {
		channelCounts = []int{1}
	}
	for _, ch := range channelCounts {
		for _, format := range sampleformat.Priority {
			ranges = append(ranges, devicenegotiation.SupportedRange{
				Channels:      ch,
				Format:        format,
				MinSampleRate: 8000,
				MaxSampleRate: 192000,
			})
		}
	}
	return ranges
}

func (c wideCapabilities) BufferSizeRange() (int, int) {
	return 32, 8192
}

// negotiateOutput picks a concrete output configuration for the requested
// settings.
func negotiateOutput(s DeviceSettings) (devicenegotiation.Picked, error) {
	picked, err := devicenegotiation.Negotiate(wideCapabilities{maxChannels: s.Channels}, s.FramesPerBuffer)
	if err != nil {
		return devicenegotiation.Picked{}, fmt.Errorf("graphapp: output negotiation failed: %w", err)
	}
	if s.SampleRate > 0 {
		picked.SampleRate = s.SampleRate
	}
	return picked, nil
}

func negotiateInput(s DeviceSettings) (devicenegotiation.Picked, error) {
	picked, err := devicenegotiation.Negotiate(wideCapabilities{maxChannels: 1}, s.FramesPerBuffer)
	if err != nil {
		return devicenegotiation.Picked{}, fmt.Errorf("graphapp: input negotiation failed: %w", err)
	}
	if s.SampleRate > 0 {
		picked.SampleRate = s.SampleRate
	}
	return picked, nil
}

// Session owns a running graph: the nodes in start order and the channels
// to wait on.
type Session struct {
	nodes     []node.Node
	mu        sync.Mutex
	done      chan struct{}
	exhausted <-chan struct{}
}

// Exhausted returns a channel closed when the graph's file source runs out
// of samples on its own, or nil if the graph has no file source. A nil
// channel blocks forever in a select, which is the right behavior for
// graphs (mic, tone) that only ever end on an external Stop.
func (s *Session) Exhausted() <-chan struct{} {
	return s.exhausted
}

// Stop stops every node in reverse start order, sources first so upstream
// producers don't spend time writing into a FIFO nobody drains.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if err := s.nodes[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if len(errs) > 0 {
		return fmt.Errorf("graphapp: errors stopping graph: %v", errs)
	}
	return nil
}

// Done returns a channel closed once the session has been stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// startAll takes nodes listed upstream first and starts them downstream
// first, so each consumer is running before its producer begins writing.
func startAll(nodes ...node.Node) (*Session, error) {
	started := make([]node.Node, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if err := n.Start(); err != nil {
			for j := len(started) - 1; j >= 0; j-- {
				_ = started[j].Stop()
			}
			return nil, fmt.Errorf("graphapp: failed to start %s: %w", n.Type(), err)
		}
		started = append(started, n)
	}
	return &Session{nodes: started, done: make(chan struct{})}, nil
}

// PlayFile builds FileSource -> SpeakerSink and starts playback.
//
// Grounded on internal/fileplayer.FilePlayer.PlayFile: open the decoder,
// then bring the stream up, logging the negotiated format the way the
// teacher logs the decoded file format in OpenFile.
func PlayFile(fileName string, s DeviceSettings) (*Session, error) {
	decoder, err := decoders.NewDecoder(fileName)
	if err != nil {
		return nil, err
	}

	out, err := negotiateOutput(s)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	rate, channels, bps := decoder.GetFormat()
	slog.Info("opened audio file",
		"file", filepath.Base(fileName),
		"sample_rate", rate,
		"channels", channels,
		"bits_per_sample", bps)
	slog.Info("negotiated output device",
		"device_index", s.OutputDeviceIndex,
		"sample_rate", out.SampleRate,
		"channels", out.Channels,
		"format", out.Format)

	src := sourcenode.NewFileSource(decoder, out.SampleRate, out.Channels)
	sink := sinknode.NewSpeakerSink(sinknode.Config{
		DeviceIndex:     s.OutputDeviceIndex,
		Channels:        out.Channels,
		Format:          out.Format,
		SampleRate:      out.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
		BoostPriority:   rtpriority.Boost(),
	}, s.BufferSize)

	if err := node.Connect(src, sink); err != nil {
		decoder.Close()
		return nil, fmt.Errorf("graphapp: failed to connect file source to sink: %w", err)
	}

	session, err := startAll(src, sink)
	if err != nil {
		return nil, err
	}
	session.exhausted = src.Exhausted()
	return session, nil
}

// StartMic builds MicSource -> SpeakerSink (pass-through monitoring).
func StartMic(s DeviceSettings) (*Session, error) {
	in, err := negotiateInput(s)
	if err != nil {
		return nil, err
	}
	out, err := negotiateOutput(s)
	if err != nil {
		return nil, err
	}

	slog.Info("negotiated input device",
		"device_index", s.InputDeviceIndex,
		"sample_rate", in.SampleRate,
		"channels", in.Channels,
		"format", in.Format)

	mic := sourcenode.NewMicSource(sourcenode.Config{
		DeviceIndex:     s.InputDeviceIndex,
		Channels:        in.Channels,
		Format:          in.Format,
		SampleRate:      in.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
	}, out.SampleRate, out.Channels)

	sink := sinknode.NewSpeakerSink(sinknode.Config{
		DeviceIndex:     s.OutputDeviceIndex,
		Channels:        out.Channels,
		Format:          out.Format,
		SampleRate:      out.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
		BoostPriority:   rtpriority.Boost(),
	}, s.BufferSize)

	if err := node.Connect(mic, sink); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect mic source to sink: %w", err)
	}

	return startAll(mic, sink)
}

// StartKaraoke builds FileSource + MicSource -> Gain -> Mixer -> SpeakerSink;
// micGainDB sets the Gain node that shapes the vocal track's level before it
// joins the backing track.
func StartKaraoke(fileName string, micGainDB float32, s DeviceSettings) (*Session, error) {
	decoder, err := decoders.NewDecoder(fileName)
	if err != nil {
		return nil, err
	}

	out, err := negotiateOutput(s)
	if err != nil {
		decoder.Close()
		return nil, err
	}
	in, err := negotiateInput(s)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	file := sourcenode.NewFileSource(decoder, out.SampleRate, out.Channels)
	mic := sourcenode.NewMicSource(sourcenode.Config{
		DeviceIndex:     s.InputDeviceIndex,
		Channels:        in.Channels,
		Format:          in.Format,
		SampleRate:      in.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
	}, out.SampleRate, out.Channels)
	gain := gainnode.New()
	gain.SetGainDB(micGainDB)

	mixer := mixernode.New()
	sink := sinknode.NewSpeakerSink(sinknode.Config{
		DeviceIndex:     s.OutputDeviceIndex,
		Channels:        out.Channels,
		Format:          out.Format,
		SampleRate:      out.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
		BoostPriority:   rtpriority.Boost(),
	}, s.BufferSize)

	if err := node.Connect(file, mixer); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect file source to mixer: %w", err)
	}
	if err := node.Connect(mic, gain); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect mic source to gain: %w", err)
	}
	if err := node.Connect(gain, mixer); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect gain to mixer: %w", err)
	}
	if err := node.Connect(mixer, sink); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect mixer to sink: %w", err)
	}

	session, err := startAll(file, mic, gain, mixer, sink)
	if err != nil {
		return nil, err
	}
	session.exhausted = file.Exhausted()
	return session, nil
}

// StartTone builds ToneSource -> SpeakerSink, mainly useful for verifying a
// device configuration without needing a file or microphone.
func StartTone(frequency, amplitude float32, s DeviceSettings) (*Session, error) {
	out, err := negotiateOutput(s)
	if err != nil {
		return nil, err
	}

	src := sourcenode.NewToneSource(out.SampleRate, out.Channels, frequency, amplitude)
	sink := sinknode.NewSpeakerSink(sinknode.Config{
		DeviceIndex:     s.OutputDeviceIndex,
		Channels:        out.Channels,
		Format:          out.Format,
		SampleRate:      out.SampleRate,
		FramesPerBuffer: s.FramesPerBuffer,
		BoostPriority:   rtpriority.Boost(),
	}, s.BufferSize)

	if err := node.Connect(src, sink); err != nil {
		return nil, fmt.Errorf("graphapp: failed to connect tone source to sink: %w", err)
	}

	return startAll(src, sink)
}

// NegotiatedConfig reports what a device negotiation would pick, for the
// devices CLI command.
type NegotiatedConfig struct {
	Direction  string
	Picked     devicenegotiation.Picked
	DeviceIdx  int
	SampleRate int
}

// ListNegotiatedConfigs runs the negotiation search for both directions
// against the requested settings, without opening any stream.
func ListNegotiatedConfigs(s DeviceSettings) ([]NegotiatedConfig, error) {
	out, err := negotiateOutput(s)
	if err != nil {
		return nil, err
	}
	in, err := negotiateInput(s)
	if err != nil {
		return nil, err
	}
	return []NegotiatedConfig{
		{Direction: "output", Picked: out, DeviceIdx: s.OutputDeviceIndex},
		{Direction: "input", Picked: in, DeviceIdx: s.InputDeviceIndex},
	}, nil
}
