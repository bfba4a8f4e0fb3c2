package resample

import "testing"

func TestProcessUpsamplingProducesMoreSamplesThanInput(t *testing.T) {
	r := New(24000, 48000, 1)
	input := make([]float32, 512)
	for i := range input {
		input[i] = 0.1
	}
	// the first block comes out short by the filter's halfTaps lookahead,
	// so warm up with one block and measure the second
	r.Process([][]float32{input})
	out := r.Process([][]float32{input})
	if len(out[0]) == 0 {
		t.Fatal("expected some output samples")
	}
	// roughly double the input length once warmed up
	ratio := float64(len(out[0])) / float64(len(input))
	if ratio < 1.5 || ratio > 2.5 {
		t.Errorf("upsampling 2x ratio out of range: got %v output per input sample", ratio)
	}
}

func TestProcessDownsamplingProducesFewerSamples(t *testing.T) {
	r := New(48000, 16000, 1)
	input := make([]float32, 1536)
	for i := range input {
		input[i] = 0.1
	}
	out := r.Process([][]float32{input})
	if len(out[0]) == 0 {
		t.Fatal("expected some output samples")
	}
	ratio := float64(len(out[0])) / float64(len(input))
	if ratio < 0.2 || ratio > 0.5 {
		t.Errorf("downsampling 1/3 ratio out of range: got %v", ratio)
	}
}

func TestProcessIdentityRateIsNearUnity(t *testing.T) {
	r := New(48000, 48000, 2)
	left := make([]float32, 1024)
	right := make([]float32, 1024)
	for i := range left {
		left[i] = 0.25
		right[i] = -0.25
	}
	out := r.Process([][]float32{left, right})
	if len(out) != 2 {
		t.Fatalf("expected 2 channels out, got %d", len(out))
	}
	if len(out[0]) < len(left)-SincLen {
		t.Errorf("unity resample dropped too many samples: got %d want near %d", len(out[0]), len(left))
	}
	// after the filter's settling region the passthrough value should be
	// close to the (constant) input value
	for _, v := range out[0][len(out[0])-16:] {
		if diff := v - 0.25; diff > 0.02 || diff < -0.02 {
			t.Errorf("steady-state sample far from input: got %v, want ~0.25", v)
		}
	}
}

func TestProcessMultipleBlocksContinuesHistory(t *testing.T) {
	r := New(48000, 48000, 1)
	block := make([]float32, 256)
	for i := range block {
		block[i] = 0.5
	}
	total := 0
	for i := 0; i < 10; i++ {
		out := r.Process([][]float32{block})
		total += len(out[0])
	}
	if total < 9*len(block) || total > 11*len(block) {
		t.Errorf("running total across blocks drifted too far: got %d for 10x%d input", total, len(block))
	}
}
