// Package mixernode implements the graph's N-input single-output summing
// node: a dedicated worker goroutine averages whatever inputs have data
// each tick and writes the result to a single output FIFO.
//
// Grounded on audio_node/mixer.rs's Mixer: the same chunk size (64
// samples), the same "scale by active input count, not total input count"
// averaging rule, and the same mutex-guarded input list mutated only from
// the control thread while the mixing loop busy-spins with no sleep for
// lowest latency.
package mixernode

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ktv-audio/engine/internal/recovery"
	"github.com/ktv-audio/engine/pkg/fifo"
	"github.com/ktv-audio/engine/pkg/node"
)

// chunkSize is the number of samples the mixer processes per tick.
const chunkSize = 64

// Mixer sums its connected inputs into a single output stream, averaging
// over only the inputs that actually produced data on a given tick so a
// single active input is passed through unattenuated.
type Mixer struct {
	node.Lifecycle

	mu     sync.Mutex
	inputs []*fifo.FIFO

	output *fifo.FIFO

	keepRunning atomic.Bool
	done        chan struct{}

	scratch []float32
}

// New creates a mixer with no inputs connected yet; call AddInput to wire
// sources to it before or after Start.
func New() *Mixer {
	return &Mixer{
		scratch: make([]float32, chunkSize),
	}
}

func (m *Mixer) Type() node.Type { return node.Mixer }

// AddInput allocates a fresh input FIFO, registers it with the mixing loop,
// and returns it so the caller can hand it to Connect as the destination's
// pending input. Safe to call while the mixer is running: the mixing loop
// snapshots the input list under the same mutex at the start of every tick.
func (m *Mixer) AddInput(capacity uint64) *fifo.FIFO {
	f := fifo.New(capacity)
	m.mu.Lock()
	m.inputs = append(m.inputs, f)
	m.mu.Unlock()
	return f
}

// TakeInputFIFO implements node.InputPort by allocating and returning a new
// input slot each time it is called, since a mixer accepts unbounded inputs
// rather than a single fixed input like other destination node types.
func (m *Mixer) TakeInputFIFO() (*fifo.FIFO, bool) {
	return m.AddInput(65536), true
}

// ReturnInputFIFO removes f from the mixer's input list, used when a
// Connect attempt fails after the FIFO was already taken.
func (m *Mixer) ReturnInputFIFO(f *fifo.FIFO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, in := range m.inputs {
		if in == f {
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			return
		}
	}
}

// SetOutputFIFO implements node.OutputPort.
func (m *Mixer) SetOutputFIFO(f *fifo.FIFO) error {
	m.output = f
	return nil
}

// Start spawns the mixing goroutine. The output FIFO must already be set.
func (m *Mixer) Start() error {
	if m.output == nil {
		return fmt.Errorf("mixernode: cannot start, no output connected")
	}
	if err := m.BeginStart(); err != nil {
		return err
	}

	m.keepRunning.Store(true)
	m.done = make(chan struct{})
	go m.run()
	return nil
}

// Stop signals the mixing goroutine to exit and waits for it to do so.
func (m *Mixer) Stop() error {
	if m.State() != node.Running {
		return node.ErrInvalidTransition
	}
	m.keepRunning.Store(false)
	<-m.done
	m.FinishStop()
	return nil
}

func (m *Mixer) run() {
	defer close(m.done)
	defer recovery.HandlePanicFunc(nil)

	for m.keepRunning.Load() {
		if m.output.SlotsFree() < chunkSize {
			continue
		}

		m.mu.Lock()
		inputs := append([]*fifo.FIFO(nil), m.inputs...)
		m.mu.Unlock()

		for i := range m.scratch {
			m.scratch[i] = 0
		}
		active := 0

		for _, in := range inputs {
			avail := in.SlotsUsed()
			if avail == 0 {
				continue
			}
			toRead := avail
			if toRead > chunkSize {
				toRead = chunkSize
			}

			first, second := in.ReadReservation(toRead)
			idx := 0
			for _, v := range first {
				m.scratch[idx] += v
				idx++
			}
			for _, v := range second {
				m.scratch[idx] += v
				idx++
			}
			in.CommitRead(toRead)
			active++
		}

		if active > 0 {
			scale := float32(1) / float32(active)
			for i := range m.scratch {
				v := m.scratch[i] * scale
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				m.scratch[i] = v
			}
			_ = m.output.Write(m.scratch)
		}
	}
}
