package devicenegotiation

import (
	"errors"
	"testing"

	"github.com/ktv-audio/engine/pkg/sampleformat"
)

type fakeCaps struct {
	ranges         []SupportedRange
	minBuf, maxBuf int
}

func (f fakeCaps) SupportedRanges() []SupportedRange { return f.ranges }
func (f fakeCaps) BufferSizeRange() (int, int)       { return f.minBuf, f.maxBuf }

func TestNegotiatePrefersStereoF32(t *testing.T) {
	caps := fakeCaps{
		ranges: []SupportedRange{
			{Channels: 1, Format: sampleformat.F32, MinSampleRate: 8000, MaxSampleRate: 48000},
			{Channels: 2, Format: sampleformat.F32, MinSampleRate: 8000, MaxSampleRate: 48000},
			{Channels: 2, Format: sampleformat.I16, MinSampleRate: 8000, MaxSampleRate: 48000},
		},
		minBuf: 64, maxBuf: 4096,
	}
	got, err := Negotiate(caps, 128)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got.Channels != 2 || got.Format != sampleformat.F32 || got.SampleRate != 48000 {
		t.Fatalf("expected stereo F32 48kHz, got %+v", got)
	}
	if got.BufferSize != 128 {
		t.Errorf("expected buffer 128, got %d", got.BufferSize)
	}
}

func TestNegotiateFallsBackThroughChannelPriority(t *testing.T) {
	caps := fakeCaps{
		ranges: []SupportedRange{
			{Channels: 6, Format: sampleformat.I16, MinSampleRate: 44100, MaxSampleRate: 44100},
		},
		minBuf: 64, maxBuf: 4096,
	}
	got, err := Negotiate(caps, 128)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got.Channels != 6 || got.Format != sampleformat.I16 || got.SampleRate != 44100 {
		t.Fatalf("expected any-channel fallback to 6ch I16 44100, got %+v", got)
	}
}

func TestNegotiateClampsBufferSize(t *testing.T) {
	caps := fakeCaps{
		ranges: []SupportedRange{
			{Channels: 2, Format: sampleformat.F32, MinSampleRate: 48000, MaxSampleRate: 48000},
		},
		minBuf: 256, maxBuf: 512,
	}
	got, err := Negotiate(caps, 64)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got.BufferSize != 256 {
		t.Errorf("expected buffer clamped up to min 256, got %d", got.BufferSize)
	}

	got, err = Negotiate(caps, 4096)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got.BufferSize != 512 {
		t.Errorf("expected buffer clamped down to max 512, got %d", got.BufferSize)
	}
}

func TestNegotiateNoCompatibleConfig(t *testing.T) {
	caps := fakeCaps{
		ranges: []SupportedRange{
			{Channels: 2, Format: sampleformat.F32, MinSampleRate: 96000, MaxSampleRate: 192000},
		},
		minBuf: 64, maxBuf: 4096,
	}
	_, err := Negotiate(caps, 128)
	if !errors.Is(err, ErrNoCompatibleConfig) {
		t.Fatalf("expected ErrNoCompatibleConfig, got %v", err)
	}
}
