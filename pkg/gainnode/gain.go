// Package gainnode implements a single-input single-output linear gain
// stage: a control thread may update the gain in decibels at any time, and
// a dedicated worker goroutine applies the current linear gain to every
// sample without ever locking on its hot path.
//
// Grounded on dsp.rs's AudioProcessor trait and GainProcessor: prepare()
// does one-time setup (allowed to allocate), process() is the real-time hot
// path (no allocation, no locking), and set_gain() is the non-realtime
// control-thread entry point that recomputes linear_gain from a dB value.
package gainnode

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ktv-audio/engine/internal/recovery"
	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
)

const blockSize = 64

// Gain is a pass-through node that scales every sample by a linear gain
// factor derived from a decibel value.
type Gain struct {
	node.Lifecycle

	linearGainBits atomic.Uint32 // float32 bits, read/written via math.Float32bits

	input      *fifo.FIFO
	inputTaken bool
	output     *fifo.FIFO

	keepRunning atomic.Bool
	done        chan struct{}

	scratch []float32
}

// New creates a gain node initialized to unity (0 dB).
func New() *Gain {
	g := &Gain{
		input:   fifo.New(65536),
		scratch: make([]float32, blockSize),
	}
	g.SetGainDB(0)
	return g
}

func (g *Gain) Type() node.Type { return node.Gain }

// SetGainDB updates the linear gain applied on the hot path. Safe to call
// from any thread; the worker goroutine picks up the new value on its next
// block without blocking.
func (g *Gain) SetGainDB(db float32) {
	linear := float32(math.Pow(10, float64(db)/20))
	g.linearGainBits.Store(math.Float32bits(linear))
}

func (g *Gain) linearGain() float32 {
	return math.Float32frombits(g.linearGainBits.Load())
}

// TakeInputFIFO hands the node's input FIFO to an upstream node as its
// output, but - unlike a node with no read side of its own - Gain keeps
// reading from that same FIFO object afterward, so the field is left set
// and a bool guards against handing it out twice.
func (g *Gain) TakeInputFIFO() (*fifo.FIFO, bool) {
	if g.input == nil || g.inputTaken {
		return nil, false
	}
	g.inputTaken = true
	return g.input, true
}

func (g *Gain) ReturnInputFIFO(f *fifo.FIFO) {
	g.input = f
	g.inputTaken = false
}

func (g *Gain) SetOutputFIFO(f *fifo.FIFO) error {
	g.output = f
	return nil
}

func (g *Gain) Start() error {
	if g.input == nil || g.output == nil {
		return fmt.Errorf("gainnode: cannot start, input or output not connected")
	}
	if err := g.BeginStart(); err != nil {
		return err
	}
	g.keepRunning.Store(true)
	g.done = make(chan struct{})
	go g.run()
	return nil
}

func (g *Gain) Stop() error {
	if g.State() != node.Running {
		return node.ErrInvalidTransition
	}
	g.keepRunning.Store(false)
	<-g.done
	g.FinishStop()
	return nil
}

func (g *Gain) run() {
	defer close(g.done)
	defer recovery.HandlePanicFunc(nil)

	in, out := g.input, g.output
	for g.keepRunning.Load() {
		n, err := in.Read(g.scratch)
		if err != nil || n == 0 {
			continue
		}
		gain := g.linearGain()
		for i := 0; i < n; i++ {
			g.scratch[i] *= gain
		}
		_ = out.Write(g.scratch[:n])
	}
}
