package sourcenode

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ktv-audio/engine/internal/recovery"
	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
	"github.com/ktv-audio/engine/pkg/resample"
	"github.com/ktv-audio/engine/pkg/sampleformat"
	"github.com/ktv-audio/engine/pkg/types"
)

// decodeChunkSamples is how many samples are pulled from the decoder per
// iteration of the producer loop.
const decodeChunkSamples = 4 * 1024

// FileSource decodes an entire file up front is avoided: instead it streams
// from an AudioDecoder in a background goroutine, converting to the
// canonical float32 format, resampling and remapping channels if the file's
// native format does not match the graph's target format, and pushing the
// result into its output FIFO. It sleeps on backpressure rather than
// blocking, since this is not a real-time thread.
//
// Grounded on audio_node/file_src.rs's FileSrc: a producer goroutine reads
// the whole decode pipeline, resamples with the same sinc parameters when
// rates differ, remaps channels by duplicating channel 0 when counts
// differ, and retries writes with a 10ms sleep while the output is full.
type FileSource struct {
	node.Lifecycle

	decoder        types.AudioDecoder
	targetRate     int
	targetChannels int

	output *fifo.FIFO

	keepRunning atomic.Bool
	done        chan struct{}
	exhausted   chan struct{}
}

// NewFileSource creates a file source that streams decoder into the graph
// at targetRate/targetChannels, resampling and remapping as needed. The
// decoder must already be open.
func NewFileSource(decoder types.AudioDecoder, targetRate, targetChannels int) *FileSource {
	return &FileSource{
		decoder:        decoder,
		targetRate:     targetRate,
		targetChannels: targetChannels,
	}
}

func (f *FileSource) Type() node.Type { return node.FileSource }

func (f *FileSource) SetOutputFIFO(out *fifo.FIFO) error {
	f.output = out
	return nil
}

func (f *FileSource) Start() error {
	if f.output == nil {
		return fmt.Errorf("sourcenode: FileSource cannot start, no output connected")
	}
	if err := f.BeginStart(); err != nil {
		return err
	}
	f.keepRunning.Store(true)
	f.done = make(chan struct{})
	f.exhausted = make(chan struct{})
	go f.run()
	return nil
}

func (f *FileSource) Stop() error {
	if f.State() != node.Running {
		return node.ErrInvalidTransition
	}
	f.keepRunning.Store(false)
	<-f.done
	f.FinishStop()
	return nil
}

// Exhausted returns a channel closed when the decoder runs out of samples
// on its own, as distinct from being stopped externally. Callers that want
// to know when a file finished playing (rather than poll) should select on
// this alongside their own shutdown signal.
func (f *FileSource) Exhausted() <-chan struct{} {
	return f.exhausted
}

func (f *FileSource) run() {
	defer close(f.done)
	defer recovery.HandlePanicFunc(nil)

	rate, channels, bps := f.decoder.GetFormat()
	bytesPerSample := bps / 8
	needsResample := rate != f.targetRate
	needsRemap := channels != f.targetChannels

	var rs *resample.Resampler
	if needsResample {
		rs = resample.New(rate, f.targetRate, channels)
	}

	raw := make([]byte, decodeChunkSamples*channels*bytesPerSample)
	deinterleaved := make([][]float32, channels)
	for c := range deinterleaved {
		deinterleaved[c] = make([]float32, decodeChunkSamples)
	}
	interleavedOut := make([]float32, 0, decodeChunkSamples*f.targetChannels)

	for f.keepRunning.Load() {
		n, err := f.decoder.DecodeSamples(decodeChunkSamples, raw)
		if err != nil || n == 0 {
			close(f.exhausted)
			return
		}

		for c := 0; c < channels; c++ {
			deinterleaved[c] = deinterleaved[c][:n]
		}
		deinterleaveBytes(raw, bps, channels, n, deinterleaved)

		var channelsOut [][]float32
		if needsResample {
			channelsOut = rs.Process(deinterleaved)
		} else {
			channelsOut = deinterleaved
		}
		if len(channelsOut) == 0 || len(channelsOut[0]) == 0 {
			continue
		}

		interleavedOut = interleavedOut[:0]
		if needsRemap {
			first := channelsOut[0]
			for _, v := range first {
				for c := 0; c < f.targetChannels; c++ {
					interleavedOut = append(interleavedOut, v)
				}
			}
		} else {
			frames := len(channelsOut[0])
			for i := 0; i < frames; i++ {
				for c := 0; c < f.targetChannels; c++ {
					interleavedOut = append(interleavedOut, channelsOut[c][i])
				}
			}
		}

		idx := 0
		for f.keepRunning.Load() && idx < len(interleavedOut) {
			for f.output.SlotsFree() >= uint64(f.targetChannels) && idx < len(interleavedOut) {
				end := idx + f.targetChannels
				if end > len(interleavedOut) {
					end = len(interleavedOut)
				}
				_ = f.output.Write(interleavedOut[idx:end])
				idx = end
			}
			if idx < len(interleavedOut) {
				time.Sleep(backpressureSleep)
			}
		}
	}
}

// deinterleaveBytes converts n interleaved frames of raw PCM bytes at the
// given bit depth into per-channel canonical float32 slices.
func deinterleaveBytes(raw []byte, bps, channels, n int, out [][]float32) {
	bytesPerSample := bps / 8
	frameSize := bytesPerSample * channels

	for i := 0; i < n; i++ {
		base := i * frameSize
		for c := 0; c < channels; c++ {
			off := base + c*bytesPerSample
			out[c][i] = decodeSample(raw[off:off+bytesPerSample], bps)
		}
	}
}

func decodeSample(b []byte, bps int) float32 {
	switch bps {
	case 8:
		return sampleformat.ToFloat32(sampleformat.U8, uint32(b[0]))
	case 16:
		return sampleformat.ToFloat32(sampleformat.I16, uint32(binary.LittleEndian.Uint16(b)))
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return float32(v) / float32(1<<23)
	case 32:
		return sampleformat.ToFloat32(sampleformat.I32, binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}
