// Package sinknode implements the graph's single built-in sink: a
// PortAudio-backed speaker output driven entirely from the device's
// real-time callback.
package sinknode

import (
	"fmt"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
	"github.com/ktv-audio/engine/pkg/sampleformat"
)

// SpeakerSink drains its input FIFO inside the PortAudio output callback,
// converting canonical float32 samples to the negotiated device format and
// filling any shortfall with silence rather than underrunning.
//
// Grounded on audio_node/speaker_dest.rs's SpeakerDest: the device callback
// reads as many interleaved samples as the ring buffer has, fills the rest
// of the buffer with silence on a read error (the original's
// consumer.read_chunk failing), and commits the thread priority boost once
// via a sync.Once-equivalent guard the first time the callback runs.
type SpeakerSink struct {
	node.Lifecycle

	input      *fifo.FIFO
	inputTaken bool

	deviceIndex     int
	channels        int
	format          sampleformat.Format
	sampleRate      int
	framesPerBuffer int

	stream        *portaudio.PaStream
	boostPriority func()
	priorityDone  bool
}

// Config configures the negotiated device parameters a SpeakerSink opens
// its stream with.
type Config struct {
	DeviceIndex     int
	Channels        int
	Format          sampleformat.Format
	SampleRate      int
	FramesPerBuffer int
	// BoostPriority is called once, from inside the first real-time
	// callback invocation, to request elevated OS thread scheduling. It
	// may be nil.
	BoostPriority func()
}

// NewSpeakerSink creates a speaker sink with a single pending input FIFO.
func NewSpeakerSink(cfg Config, inputCapacity uint64) *SpeakerSink {
	return &SpeakerSink{
		input:           fifo.New(inputCapacity),
		deviceIndex:     cfg.DeviceIndex,
		channels:        cfg.Channels,
		format:          cfg.Format,
		sampleRate:      cfg.SampleRate,
		framesPerBuffer: cfg.FramesPerBuffer,
		boostPriority:   cfg.BoostPriority,
	}
}

func (s *SpeakerSink) Type() node.Type { return node.SpeakerSink }

// TakeInputFIFO hands the sink's input FIFO to an upstream node as its
// output. The sink keeps reading from that same FIFO object inside its
// device callback, so the field stays set and a bool guards against
// handing it out twice.
func (s *SpeakerSink) TakeInputFIFO() (*fifo.FIFO, bool) {
	if s.input == nil || s.inputTaken {
		return nil, false
	}
	s.inputTaken = true
	return s.input, true
}

func (s *SpeakerSink) ReturnInputFIFO(f *fifo.FIFO) {
	s.input = f
	s.inputTaken = false
}

func (s *SpeakerSink) paSampleFormat() portaudio.PaSampleFormat {
	switch s.format {
	case sampleformat.F32:
		return portaudio.SampleFmtFloat32
	case sampleformat.I32:
		return portaudio.SampleFmtInt32
	case sampleformat.I16:
		return portaudio.SampleFmtInt16
	default:
		return portaudio.SampleFmtUint8
	}
}

func (s *SpeakerSink) Start() error {
	if s.input == nil {
		return fmt.Errorf("sinknode: SpeakerSink cannot start, no input connected")
	}
	if err := s.BeginStart(); err != nil {
		return err
	}

	if s.stream == nil {
		in := s.input

		stream := &portaudio.PaStream{
			OutputParameters: &portaudio.PaStreamParameters{
				DeviceIndex:  s.deviceIndex,
				ChannelCount: s.channels,
				SampleFormat: s.paSampleFormat(),
			},
			SampleRate: float64(s.sampleRate),
		}

		if err := stream.OpenCallback(s.framesPerBuffer, s.makeCallback(in)); err != nil {
			return fmt.Errorf("sinknode: failed to open output stream: %w", err)
		}
		s.stream = stream
	}

	if err := s.stream.StartStream(); err != nil {
		return fmt.Errorf("sinknode: failed to start output stream: %w", err)
	}
	return nil
}

func (s *SpeakerSink) Stop() error {
	if s.State() != node.Running {
		return node.ErrInvalidTransition
	}
	if s.stream != nil {
		if err := s.stream.StopStream(); err != nil {
			s.FinishStop()
			return fmt.Errorf("sinknode: failed to stop output stream: %w", err)
		}
	}
	s.FinishStop()
	return nil
}

// makeCallback builds the real-time output callback. It performs no
// allocation, no locking, and no blocking I/O: it only drains the FIFO's
// reservation slices directly into the device buffer and fills any
// shortfall with silence.
func (s *SpeakerSink) makeCallback(in *fifo.FIFO) func([]byte, []byte, uint, *portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
	bytesPerSample := s.format.BytesPerSample()

	return func(input, output []byte, frameCount uint, timeInfo *portaudio.StreamCallbackTimeInfo, statusFlags portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
		if s.boostPriority != nil && !s.priorityDone {
			s.boostPriority()
			s.priorityDone = true
		}

		wantSamples := uint64(frameCount) * uint64(s.channels)
		avail := in.SlotsUsed()
		if avail > wantSamples {
			avail = wantSamples
		}

		first, second := in.ReadReservation(avail)
		off := 0
		for _, part := range [2][]float32{first, second} {
			for _, v := range part {
				raw := sampleformat.FromFloat32(s.format, v)
				putRaw(output[off:off+bytesPerSample], raw, bytesPerSample)
				off += bytesPerSample
			}
		}
		in.CommitRead(avail)

		if off < len(output) {
			silence := sampleformat.Silence(s.format)
			for ; off+bytesPerSample <= len(output); off += bytesPerSample {
				putRaw(output[off:off+bytesPerSample], silence, bytesPerSample)
			}
		}

		return portaudio.Continue
	}
}

func putRaw(dst []byte, v uint32, width int) {
	switch width {
	case 1:
		dst[0] = byte(v)
	case 2:
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
	case 4:
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
		dst[3] = byte(v >> 24)
	}
}
