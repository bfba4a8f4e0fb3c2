// Package sourcenode implements the graph's upstream producers: a
// synthetic tone generator, a file-backed decoder source, and a
// microphone-backed live source.
package sourcenode

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ktv-audio/engine/internal/recovery"
	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
)

// backpressureSleep is how long a non-realtime producer thread waits before
// retrying a write once its output FIFO is full, matching every producer
// thread in the original prototype (FileSrc, FakeAudioWaveSRC).
const backpressureSleep = 10 * time.Millisecond

// ToneSource emits a synthetic sine wave at a fixed frequency and amplitude,
// useful for smoke-testing the graph without a file or a microphone.
//
// Grounded on audio_node/fake_audio_wave_src.rs's FakeAudioWaveSRC: a
// producer goroutine that free-runs a phase accumulator, pushes a
// fixed-amplitude sine sample per channel, and sleeps 10ms whenever the
// output has no room, preserving the phase across Stop/Start.
type ToneSource struct {
	node.Lifecycle

	sampleRate int
	channels   int
	frequency  float32
	amplitude  float32
	phase      float32

	output *fifo.FIFO

	keepRunning atomic.Bool
	done        chan struct{}
}

// NewToneSource creates a tone source. frequency and amplitude default to
// 440Hz and 0.1 if zero, matching the original's mock wave generator.
func NewToneSource(sampleRate, channels int, frequency, amplitude float32) *ToneSource {
	if frequency == 0 {
		frequency = 440
	}
	if amplitude == 0 {
		amplitude = 0.1
	}
	return &ToneSource{
		sampleRate: sampleRate,
		channels:   channels,
		frequency:  frequency,
		amplitude:  amplitude,
	}
}

func (t *ToneSource) Type() node.Type { return node.ToneSource }

func (t *ToneSource) SetOutputFIFO(f *fifo.FIFO) error {
	t.output = f
	return nil
}

func (t *ToneSource) Start() error {
	if t.output == nil {
		return fmt.Errorf("sourcenode: ToneSource cannot start, no output connected")
	}
	if err := t.BeginStart(); err != nil {
		return err
	}
	t.keepRunning.Store(true)
	t.done = make(chan struct{})
	go t.run()
	return nil
}

func (t *ToneSource) Stop() error {
	if t.State() != node.Running {
		return node.ErrInvalidTransition
	}
	t.keepRunning.Store(false)
	<-t.done
	t.FinishStop()
	return nil
}

func (t *ToneSource) run() {
	defer close(t.done)
	defer recovery.HandlePanicFunc(nil)

	step := t.frequency / float32(t.sampleRate)

	for t.keepRunning.Load() {
		wrote := false
		for t.output.SlotsFree() >= uint64(t.channels) {
			v := float32(math.Sin(float64(t.phase)*2*math.Pi)) * t.amplitude
			for c := 0; c < t.channels; c++ {
				if err := t.output.Push(v); err != nil {
					break
				}
			}
			t.phase += step
			for t.phase >= 1 {
				t.phase -= 1
			}
			wrote = true
		}
		if !wrote {
			time.Sleep(backpressureSleep)
		}
	}
}
