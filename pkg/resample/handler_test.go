package resample

import "testing"

func TestHandlerDrainProducesRemappedOutput(t *testing.T) {
	h := NewHandler(48000, 48000, 1, 2, 4096, 4096, 64)

	raw := make([]float32, 64*4)
	for i := range raw {
		raw[i] = 0.3
	}
	if pushed := h.PushSamples(raw); pushed != len(raw) {
		t.Fatalf("expected all samples staged, got %d/%d", pushed, len(raw))
	}

	h.Drain()

	if h.OutputFIFO().SlotsUsed() == 0 {
		t.Fatal("expected resampled output available after Drain")
	}
	// output is stereo (targetChannels=2): every pair of samples should be
	// equal, since channel 0 is duplicated into channel 1.
	used := h.OutputFIFO().SlotsUsed()
	buf := make([]float32, used)
	n, err := h.OutputFIFO().Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i+1 < n; i += 2 {
		if buf[i] != buf[i+1] {
			t.Errorf("expected duplicated channel pair at %d, got %v vs %v", i, buf[i], buf[i+1])
		}
	}
}

func TestPushSamplesDropsOnOverflow(t *testing.T) {
	h := NewHandler(48000, 48000, 1, 1, 8, 8, 64)
	raw := make([]float32, 100)
	pushed := h.PushSamples(raw)
	if pushed > 8 {
		t.Fatalf("expected push capped at staging capacity 8, got %d", pushed)
	}
}
