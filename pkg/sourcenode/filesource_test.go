package sourcenode

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/ktv-audio/engine/pkg/fifo"
)

// fakeDecoder implements types.AudioDecoder with a fixed-size in-memory
// sample sequence, for exercising FileSource without a real file.
type fakeDecoder struct {
	rate, channels, bps int
	samples             []int16 // interleaved
	pos                 int
}

func (d *fakeDecoder) Open(string) error { return nil }
func (d *fakeDecoder) Close() error      { return nil }
func (d *fakeDecoder) GetFormat() (int, int, int) {
	return d.rate, d.channels, d.bps
}

func (d *fakeDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	remainingFrames := (len(d.samples) - d.pos) / d.channels
	if remainingFrames <= 0 {
		return 0, nil
	}
	n := samples
	if n > remainingFrames {
		n = remainingFrames
	}
	for i := 0; i < n*d.channels; i++ {
		binary.LittleEndian.PutUint16(audio[i*2:i*2+2], uint16(d.samples[d.pos+i]))
	}
	d.pos += n * d.channels
	return n, nil
}

func TestFileSourceStreamsDecodedSamples(t *testing.T) {
	samples := make([]int16, 2000)
	for i := range samples {
		samples[i] = int16(i % 100)
	}
	dec := &fakeDecoder{rate: 48000, channels: 1, bps: 16, samples: samples}

	src := NewFileSource(dec, 48000, 1)
	out := fifo.New(1 << 16)
	src.SetOutputFIFO(out)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && out.SlotsUsed() < 1000 {
		time.Sleep(time.Millisecond)
	}
	src.Stop()

	if out.SlotsUsed() == 0 {
		t.Fatal("FileSource produced no output")
	}
}

func TestFileSourceClosesExhaustedWhenDecoderRunsDry(t *testing.T) {
	samples := make([]int16, 256)
	dec := &fakeDecoder{rate: 48000, channels: 1, bps: 16, samples: samples}

	src := NewFileSource(dec, 48000, 1)
	out := fifo.New(1 << 16)
	src.SetOutputFIFO(out)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	select {
	case <-src.Exhausted():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Exhausted to close")
	}
}

func TestFileSourceRemapsMonoToStereo(t *testing.T) {
	samples := make([]int16, 512)
	for i := range samples {
		samples[i] = 1000
	}
	dec := &fakeDecoder{rate: 48000, channels: 1, bps: 16, samples: samples}

	src := NewFileSource(dec, 48000, 2)
	out := fifo.New(1 << 16)
	src.SetOutputFIFO(out)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && out.SlotsUsed() < 4 {
		time.Sleep(time.Millisecond)
	}

	buf := make([]float32, 4)
	n, err := out.Read(buf)
	if err != nil || n < 2 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	if buf[0] != buf[1] {
		t.Errorf("mono-to-stereo remap should duplicate channel 0, got %v vs %v", buf[0], buf[1])
	}
}
