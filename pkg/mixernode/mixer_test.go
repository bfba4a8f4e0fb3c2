package mixernode

import (
	"testing"
	"time"

	"github.com/ktv-audio/engine/pkg/fifo"
)

func TestMixerAveragesActiveInputsOnly(t *testing.T) {
	m := New()
	in1 := m.AddInput(1024)
	in2 := m.AddInput(1024)
	out := fifo.New(1024)
	if err := m.SetOutputFIFO(out); err != nil {
		t.Fatalf("SetOutputFIFO: %v", err)
	}

	if err := in1.Write(repeat(0.5, chunkSize)); err != nil {
		t.Fatalf("Write in1: %v", err)
	}
	if err := in2.Write(repeat(0.3, chunkSize)); err != nil {
		t.Fatalf("Write in2: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitForSlotsUsed(t, out, chunkSize)

	buf := make([]float32, chunkSize)
	n, err := out.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != chunkSize {
		t.Fatalf("got %d samples, want %d", n, chunkSize)
	}
	want := float32(0.4) // (0.5+0.3)/2
	for _, v := range buf {
		if diff := v - want; diff > 0.001 || diff < -0.001 {
			t.Errorf("got %v, want ~%v", v, want)
			break
		}
	}
}

func TestMixerPassesSingleActiveInputUnattenuated(t *testing.T) {
	m := New()
	in1 := m.AddInput(1024)
	m.AddInput(1024) // unused second input: must not dilute the average
	out := fifo.New(1024)
	m.SetOutputFIFO(out)

	if err := in1.Write(repeat(0.7, chunkSize)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitForSlotsUsed(t, out, chunkSize)

	buf := make([]float32, chunkSize)
	out.Read(buf)
	for _, v := range buf {
		if diff := v - 0.7; diff > 0.001 || diff < -0.001 {
			t.Errorf("single active input should pass through unattenuated, got %v", v)
			break
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
