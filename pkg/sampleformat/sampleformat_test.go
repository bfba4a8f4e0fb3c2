package sampleformat

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		format Format
		step   float32
	}{
		{F32, 0},
		{I32, 1.0 / float32(1<<30)},
		{I16, 1.0 / float32(1<<14)},
		{U8, 1.0 / 64},
	}

	for _, c := range cases {
		for _, v := range []float32{0, 0.5, -0.5, 0.999, -1, 1} {
			raw := FromFloat32(c.format, v)
			got := ToFloat32(c.format, raw)
			diff := got - v
			if diff < 0 {
				diff = -diff
			}
			if diff > c.step+0.01 {
				t.Errorf("%s: round trip of %v got %v (diff %v > step %v)", c.format, v, got, diff, c.step)
			}
		}
	}
}

func TestSaturation(t *testing.T) {
	raw := FromFloat32(I16, 2.0)
	if ToFloat32(I16, raw) != 1.0 {
		t.Errorf("expected saturation to +1.0, got %v", ToFloat32(I16, raw))
	}
	raw = FromFloat32(I16, -2.0)
	if ToFloat32(I16, raw) != -1.0 {
		t.Errorf("expected saturation to -1.0, got %v", ToFloat32(I16, raw))
	}
}

func TestSilence(t *testing.T) {
	if Silence(F32) != 0 {
		t.Errorf("F32 silence should be 0")
	}
	if Silence(U8) != 128 {
		t.Errorf("U8 silence should be 128 (zero-centered midpoint), got %d", Silence(U8))
	}
}

func TestBytesPerSample(t *testing.T) {
	if F32.BytesPerSample() != 4 || I32.BytesPerSample() != 4 || I16.BytesPerSample() != 2 || U8.BytesPerSample() != 1 {
		t.Errorf("unexpected byte widths")
	}
}
