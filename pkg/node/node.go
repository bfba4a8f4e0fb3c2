// Package node defines the audio graph's node abstraction: the lifecycle
// state machine every node implements, the closed set of node variants, and
// the Connect operation that splices two nodes together by moving a FIFO's
// producer half from the downstream node to the upstream one.
//
// Grounded on audio_node.rs's AudioNode trait and AudioNodeEnum closed sum
// type from the original prototype: a small, fixed set of variants named by
// the Type enum, which Connect checks for compatibility before reaching the
// nodes through the small Node, InputPort and OutputPort interfaces.
package node

import (
	"errors"
	"fmt"

	"github.com/ktv-audio/engine/pkg/fifo"
)

// Type is the closed set of node variants the graph supports.
type Type int

const (
	FileSource Type = iota
	MicSource
	ToneSource
	Gain
	Mixer
	SpeakerSink
)

func (t Type) String() string {
	switch t {
	case FileSource:
		return "FileSource"
	case MicSource:
		return "MicSource"
	case ToneSource:
		return "ToneSource"
	case Gain:
		return "Gain"
	case Mixer:
		return "Mixer"
	case SpeakerSink:
		return "SpeakerSink"
	default:
		return "unknown"
	}
}

// isSource reports whether a node of this type may act as the upstream
// (writing) side of a connection.
func (t Type) isSource() bool {
	return t != SpeakerSink
}

// isDest reports whether a node of this type may act as the downstream
// (reading) side of a connection.
func (t Type) isDest() bool {
	return t != FileSource && t != MicSource && t != ToneSource
}

// State is a node's position in the INITIALIZED -> RUNNING -> STOPPED ->
// RUNNING lifecycle.
type State int

const (
	Initialized State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupportedConnection is returned by Connect when the (src, dst)
	// type pair is not wired - for example a sink cannot feed a source.
	ErrUnsupportedConnection = errors.New("node: unsupported connection")
	// ErrInvalidTransition is returned when Start or Stop is called from a
	// state that does not permit it. Callers should treat this as a
	// programming error, not a recoverable runtime condition.
	ErrInvalidTransition = errors.New("node: invalid state transition")
	// ErrNoPendingInput is returned by Connect when the destination node
	// has no free input FIFO to hand off (already connected).
	ErrNoPendingInput = errors.New("node: destination has no pending input")
)

// Node is implemented by every graph participant.
type Node interface {
	Start() error
	Stop() error
	Type() Type
	State() State
}

// InputPort is implemented by nodes that accept an upstream connection.
// TakeInputFIFO transfers producer-side ownership of the node's input FIFO
// to the caller (the upstream node), mirroring the original prototype's
// move of a Producer<f32> out of the destination's Option field.
type InputPort interface {
	TakeInputFIFO() (*fifo.FIFO, bool)
	ReturnInputFIFO(f *fifo.FIFO)
}

// OutputPort is implemented by nodes that can drive a downstream FIFO.
type OutputPort interface {
	SetOutputFIFO(f *fifo.FIFO) error
}

// Connect splices src to dst: it takes dst's pending input FIFO and installs
// it as src's output, so that src's worker or callback becomes the
// producer and dst's worker or callback becomes the consumer of the same
// FIFO. It must be called while neither node is RUNNING.
func Connect(src, dst Node) error {
	if !src.Type().isSource() || !dst.Type().isDest() {
		return fmt.Errorf("%w: %s -> %s", ErrUnsupportedConnection, src.Type(), dst.Type())
	}

	out, ok := src.(OutputPort)
	if !ok {
		return fmt.Errorf("%w: %s has no output port", ErrUnsupportedConnection, src.Type())
	}
	in, ok := dst.(InputPort)
	if !ok {
		return fmt.Errorf("%w: %s has no input port", ErrUnsupportedConnection, dst.Type())
	}

	f, ok := in.TakeInputFIFO()
	if !ok {
		return ErrNoPendingInput
	}
	if err := out.SetOutputFIFO(f); err != nil {
		in.ReturnInputFIFO(f)
		return err
	}
	return nil
}

// Lifecycle is an embeddable state machine helper implementing the
// INITIALIZED -> RUNNING -> STOPPED -> RUNNING transitions common to every
// node. It holds no lock: the control thread is the only caller, per the
// concurrency model, so plain field access is sufficient.
type Lifecycle struct {
	state State
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	return l.state
}

// BeginStart validates that Start() may proceed from the current state
// (INITIALIZED or STOPPED) and transitions to RUNNING. Callers should run
// it before spawning workers or opening device streams.
func (l *Lifecycle) BeginStart() error {
	if l.state != Initialized && l.state != Stopped {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, l.state)
	}
	l.state = Running
	return nil
}

// FinishStop transitions to STOPPED. Stop is not idempotent: every node's
// Stop checks for RUNNING first and returns ErrInvalidTransition when called
// from INITIALIZED or STOPPED, so FinishStop is never reached twice.
func (l *Lifecycle) FinishStop() {
	l.state = Stopped
}
