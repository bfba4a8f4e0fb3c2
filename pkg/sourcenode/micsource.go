package sourcenode

import (
	"fmt"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
	"github.com/ktv-audio/engine/pkg/resample"
	"github.com/ktv-audio/engine/pkg/sampleformat"
)

// micStageCapacity and micOutputCapacity size the resample.Handler's
// internal staging and output buffers; large enough to absorb normal
// scheduling jitter between the device callback and the consumer reading
// the output FIFO.
const (
	micStageCapacity  = 1 << 16
	micOutputCapacity = 1 << 16
	micChunkFrames    = 256
)

// MicSource captures from an input device inside PortAudio's real-time
// input callback, converts to canonical float32, and feeds a
// resample.Handler that brings the capture up (or down) to the graph's
// target rate and channel count.
//
// Grounded on audio_node/mic_src.rs's MicSrc: the input callback pushes
// captured samples into a ResamplingHandler and drops them when its
// staging buffer is full rather than blocking the device thread.
type MicSource struct {
	node.Lifecycle

	deviceIndex     int
	srcChannels     int
	srcFormat       sampleformat.Format
	srcSampleRate   int
	framesPerBuffer int

	targetRate     int
	targetChannels int

	handler *resample.Handler
	stream  *portaudio.PaStream
}

// Config describes the negotiated input device parameters.
type Config struct {
	DeviceIndex     int
	Channels        int
	Format          sampleformat.Format
	SampleRate      int
	FramesPerBuffer int
}

// NewMicSource creates a microphone source that resamples/remaps capture
// into targetRate/targetChannels.
func NewMicSource(cfg Config, targetRate, targetChannels int) *MicSource {
	return &MicSource{
		deviceIndex:     cfg.DeviceIndex,
		srcChannels:     cfg.Channels,
		srcFormat:       cfg.Format,
		srcSampleRate:   cfg.SampleRate,
		framesPerBuffer: cfg.FramesPerBuffer,
		targetRate:      targetRate,
		targetChannels:  targetChannels,
		handler: resample.NewHandler(cfg.SampleRate, targetRate, cfg.Channels, targetChannels,
			micStageCapacity, micOutputCapacity, micChunkFrames),
	}
}

func (m *MicSource) Type() node.Type { return node.MicSource }

// SetOutputFIFO implements node.OutputPort by redirecting the resample
// handler's publish step at the destination's FIFO, so Connect's usual
// ownership transfer (dst's pending input becomes src's output) applies
// here exactly as it does for every other source.
func (m *MicSource) SetOutputFIFO(f *fifo.FIFO) error {
	m.handler.SetOutputFIFO(f)
	return nil
}

// OutputFIFO returns the FIFO downstream nodes currently read resampled
// capture from (the handler's own buffer until Connect rewires it).
func (m *MicSource) OutputFIFO() *fifo.FIFO {
	return m.handler.OutputFIFO()
}

func (m *MicSource) paSampleFormat() portaudio.PaSampleFormat {
	switch m.srcFormat {
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

func (m *MicSource) Start() error {
	if err := m.BeginStart(); err != nil {
		return err
	}

	if m.stream == nil {
		stream := &portaudio.PaStream{
			InputParameters: &portaudio.PaStreamParameters{
				DeviceIndex:  m.deviceIndex,
				ChannelCount: m.srcChannels,
				SampleFormat: m.paSampleFormat(),
			},
			SampleRate: float64(m.srcSampleRate),
		}
		if err := stream.OpenCallback(m.framesPerBuffer, m.makeCallback()); err != nil {
			return fmt.Errorf("sourcenode: failed to open input stream: %w", err)
		}
		m.stream = stream
	}

	if err := m.stream.StartStream(); err != nil {
		return fmt.Errorf("sourcenode: failed to start input stream: %w", err)
	}
	return nil
}

func (m *MicSource) Stop() error {
	if m.State() != node.Running {
		return node.ErrInvalidTransition
	}
	if m.stream != nil {
		if err := m.stream.StopStream(); err != nil {
			m.FinishStop()
			return fmt.Errorf("sourcenode: failed to stop input stream: %w", err)
		}
	}
	m.FinishStop()
	return nil
}

// makeCallback builds the real-time input callback: it converts the raw
// captured bytes to canonical float32 and stages them for the resampler,
// then drains whatever full chunks are ready. The conversion and staging
// step reuses preallocated scratch buffers; the drain step allocates inside
// Resampler.Process for every chunk it resamples.
func (m *MicSource) makeCallback() func([]byte, []byte, uint, *portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
	bytesPerSample := m.srcFormat.BytesPerSample()
	scratch := make([]float32, m.framesPerBuffer*m.srcChannels)

	return func(input, output []byte, frameCount uint, timeInfo *portaudio.StreamCallbackTimeInfo, statusFlags portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
		n := int(frameCount) * m.srcChannels
		if n > len(scratch) {
			n = len(scratch)
		}
		for i := 0; i < n; i++ {
			off := i * bytesPerSample
			if off+bytesPerSample > len(input) {
				break
			}
			scratch[i] = sampleformat.ToFloat32(m.srcFormat, getRaw(input[off:off+bytesPerSample], bytesPerSample))
		}

		m.handler.PushSamples(scratch[:n])
		m.handler.Drain()

		return portaudio.Continue
	}
}

func getRaw(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(b[0]) | uint32(b[1])<<8
	case 4:
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	default:
		return 0
	}
}
