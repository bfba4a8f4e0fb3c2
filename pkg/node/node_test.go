package node

import (
	"errors"
	"testing"

	"github.com/ktv-audio/engine/pkg/fifo"
)

// stubNode is a minimal Node + InputPort + OutputPort implementation used to
// exercise Connect and the Lifecycle helper in isolation from any real
// source, sink, or processing node.
type stubNode struct {
	Lifecycle
	typ     Type
	pending *fifo.FIFO // input side, nil once taken
	out     *fifo.FIFO // output side, nil until connected
}

func newStub(t Type, withInput bool) *stubNode {
	s := &stubNode{typ: t}
	if withInput {
		s.pending = fifo.New(64)
	}
	return s
}

func (s *stubNode) Type() Type { return s.typ }

func (s *stubNode) Start() error { return s.BeginStart() }

func (s *stubNode) Stop() error {
	if s.State() != Running {
		return ErrInvalidTransition
	}
	s.FinishStop()
	return nil
}

func (s *stubNode) TakeInputFIFO() (*fifo.FIFO, bool) {
	if s.pending == nil {
		return nil, false
	}
	f := s.pending
	s.pending = nil
	return f, true
}

func (s *stubNode) ReturnInputFIFO(f *fifo.FIFO) {
	s.pending = f
}

func (s *stubNode) SetOutputFIFO(f *fifo.FIFO) error {
	s.out = f
	return nil
}

func TestConnectTransfersFIFOOwnership(t *testing.T) {
	src := newStub(FileSource, false)
	dst := newStub(Mixer, true)

	if err := Connect(src, dst); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if src.out == nil {
		t.Fatal("src has no output FIFO after Connect")
	}
	if dst.pending != nil {
		t.Fatal("dst's input FIFO was not taken")
	}
}

func TestConnectSecondTimeFailsWithoutFIFO(t *testing.T) {
	src1 := newStub(FileSource, false)
	src2 := newStub(ToneSource, false)
	dst := newStub(Mixer, true)

	if err := Connect(src1, dst); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := Connect(src2, dst); !errors.Is(err, ErrNoPendingInput) {
		t.Fatalf("expected ErrNoPendingInput, got %v", err)
	}
}

func TestConnectRejectsSinkAsSource(t *testing.T) {
	src := newStub(SpeakerSink, false)
	dst := newStub(Mixer, true)
	if err := Connect(src, dst); !errors.Is(err, ErrUnsupportedConnection) {
		t.Fatalf("expected ErrUnsupportedConnection, got %v", err)
	}
}

func TestConnectRejectsSourceAsDest(t *testing.T) {
	src := newStub(FileSource, false)
	dst := newStub(MicSource, true)
	if err := Connect(src, dst); !errors.Is(err, ErrUnsupportedConnection) {
		t.Fatalf("expected ErrUnsupportedConnection, got %v", err)
	}
}

func TestLifecycleStartStopStartRoundTrip(t *testing.T) {
	n := newStub(ToneSource, false)

	if n.State() != Initialized {
		t.Fatalf("new node should start INITIALIZED, got %s", n.State())
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start from INITIALIZED: %v", err)
	}
	if n.State() != Running {
		t.Fatalf("expected RUNNING, got %s", n.State())
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop from RUNNING: %v", err)
	}
	if n.State() != Stopped {
		t.Fatalf("expected STOPPED, got %s", n.State())
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start from STOPPED must succeed: %v", err)
	}
	if n.State() != Running {
		t.Fatalf("expected RUNNING again, got %s", n.State())
	}
}

func TestLifecycleRejectsDoubleStart(t *testing.T) {
	n := newStub(ToneSource, false)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := n.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double start, got %v", err)
	}
}

func TestLifecycleRejectsStopWhenNotRunning(t *testing.T) {
	n := newStub(ToneSource, false)
	if err := n.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition stopping an INITIALIZED node, got %v", err)
	}
}

// TestConnectAfterStopReconnects exercises rewiring after
// connect(A,B).stop(A): once the caller hands the FIFO back to B with
// ReturnInputFIFO, a fresh connect (here, a different source) succeeds.
func TestConnectAfterStopReconnects(t *testing.T) {
	src1 := newStub(FileSource, false)
	dst := newStub(Mixer, true)

	if err := Connect(src1, dst); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := src1.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := src1.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// src1 is stopped but dst never released the FIFO back to itself; a
	// node that wants to rewire must explicitly hand it back first.
	dst.ReturnInputFIFO(src1.out)
	src2 := newStub(ToneSource, false)
	if err := Connect(src2, dst); err != nil {
		t.Fatalf("Connect after reuse: %v", err)
	}
}
