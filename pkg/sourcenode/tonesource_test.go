package sourcenode

import (
	"math"
	"testing"
	"time"

	"github.com/ktv-audio/engine/pkg/fifo"
)

func TestToneSourceEmitsSamples(t *testing.T) {
	out := fifo.New(4096)
	src := NewToneSource(48000, 2, 440, 0.1)
	src.SetOutputFIFO(out)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if out.SlotsUsed() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if out.SlotsUsed() == 0 {
		t.Fatal("tone source produced no samples")
	}

	buf := make([]float32, 4)
	n, err := out.Read(buf)
	if err != nil || n == 0 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	for _, v := range buf[:n] {
		if v > 0.1001 || v < -0.1001 {
			t.Errorf("sample %v exceeds configured amplitude 0.1", v)
		}
	}
}

func TestToneSourcePreservesPhaseAcrossStop(t *testing.T) {
	out := fifo.New(65536)
	src := NewToneSource(48000, 1, 440, 1.0)
	src.SetOutputFIFO(out)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	phaseAfterStop := src.phase

	// drop the first run's output so the first sample read below is the
	// first one generated after the restart
	out.Reset()
	if err := src.Start(); err != nil {
		t.Fatalf("Start again: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && out.SlotsUsed() == 0 {
		time.Sleep(time.Millisecond)
	}
	src.Stop()

	if src.phase == phaseAfterStop && phaseAfterStop == 0 {
		t.Fatal("phase never advanced, test is not exercising anything")
	}

	got, err := out.Pop()
	if err != nil {
		t.Fatalf("Pop after restart: %v", err)
	}
	want := float32(math.Sin(float64(phaseAfterStop) * 2 * math.Pi))
	if got != want {
		t.Errorf("first sample after restart = %v, want %v (phase %v carried over)", got, want, phaseAfterStop)
	}
}
