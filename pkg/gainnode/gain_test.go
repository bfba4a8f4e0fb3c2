package gainnode

import (
	"testing"
	"time"

	"github.com/ktv-audio/engine/pkg/fifo"
)

func TestGainUnityPassesThroughUnchanged(t *testing.T) {
	g := New()
	in, _ := g.TakeInputFIFO()
	out := fifo.New(1024)
	g.SetOutputFIFO(out)

	in.Write(repeat(0.4, blockSize))
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Stop()

	waitForSlotsUsed(t, out, blockSize)
	buf := make([]float32, blockSize)
	out.Read(buf)
	for _, v := range buf {
		if diff := v - 0.4; diff > 0.001 || diff < -0.001 {
			t.Fatalf("unity gain should pass through unchanged, got %v", v)
		}
	}
}

func TestGainAppliesDecibels(t *testing.T) {
	g := New()
	g.SetGainDB(-6) // roughly half amplitude
	in, _ := g.TakeInputFIFO()
	out := fifo.New(1024)
	g.SetOutputFIFO(out)

	in.Write(repeat(1.0, blockSize))
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Stop()

	waitForSlotsUsed(t, out, blockSize)
	buf := make([]float32, blockSize)
	out.Read(buf)
	for _, v := range buf {
		if v < 0.4 || v > 0.55 {
			t.Fatalf("-6dB gain should be roughly half amplitude, got %v", v)
		}
	}
}

func repeat(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func waitForSlotsUsed(t *testing.T, f *fifo.FIFO, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.SlotsUsed() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d slots used", n)
}
