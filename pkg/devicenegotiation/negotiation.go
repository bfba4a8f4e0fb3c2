// Package devicenegotiation picks a concrete (channels, format, sample rate,
// buffer size) configuration out of a device's supported ranges, using a
// fixed priority search rather than always taking the device's default.
//
// Grounded on audio_node/utils.rs's generate_output_resolve_config and
// generate_input_resolve_config closures: both iterate the same three
// priority tables (channel count, sample format, sample rate) and take the
// first supported combination.
package devicenegotiation

import (
	"errors"
	"fmt"

	"github.com/ktv-audio/engine/pkg/sampleformat"
)

// ErrNoCompatibleConfig is returned when no combination in the priority
// search matches anything the device supports.
var ErrNoCompatibleConfig = errors.New("devicenegotiation: no compatible configuration")

// SupportedRange describes one configuration range a device reports as
// supported. A real PortAudio binding reports one or more of these per
// device; cpal's SupportedStreamConfigRange is the original's equivalent.
type SupportedRange struct {
	Channels      int
	Format        sampleformat.Format
	MinSampleRate int
	MaxSampleRate int
}

func (r SupportedRange) supportsRate(rate int) bool {
	return rate >= r.MinSampleRate && rate <= r.MaxSampleRate
}

// Capabilities is the minimal query surface this package needs from a real
// device binding, kept separate from any concrete audio library so the
// negotiation algorithm can be unit tested without hardware or cgo.
type Capabilities interface {
	SupportedRanges() []SupportedRange
	BufferSizeRange() (min, max int)
}

// Picked is the result of a successful negotiation.
type Picked struct {
	Channels   int
	Format     sampleformat.Format
	SampleRate int
	BufferSize int
}

// channelPriority is nil for "any channel count accepted".
var channelPriority = []*int{intPtr(2), intPtr(1), nil}

var ratePriority = [...]int{48000, 44100, 9600}

func intPtr(v int) *int { return &v }

// Negotiate runs the fixed priority search: for each channel preference (2,
// then 1, then any), for each format preference (F32, I32, I16, U8), for
// each rate preference (48000, 44100, 9600), pick the first device range
// that supports the combination. The requested buffer size is clamped into
// the device's reported range. Returns ErrNoCompatibleConfig if nothing in
// the three priority tables is supported by any reported range.
func Negotiate(caps Capabilities, requestedBufferSize int) (Picked, error) {
	ranges := caps.SupportedRanges()

	for _, ch := range channelPriority {
		for _, format := range sampleformat.Priority {
			for _, rate := range ratePriority {
				for _, r := range ranges {
					if r.Format != format {
						continue
					}
					if !r.supportsRate(rate) {
						continue
					}
					if ch != nil && r.Channels != *ch {
						continue
					}

					minBuf, maxBuf := caps.BufferSizeRange()
					buf := clamp(requestedBufferSize, minBuf, maxBuf)

					return Picked{
						Channels:   r.Channels,
						Format:     format,
						SampleRate: rate,
						BufferSize: buf,
					}, nil
				}
			}
		}
	}

	return Picked{}, fmt.Errorf("%w: requested %d ranges available", ErrNoCompatibleConfig, len(ranges))
}

func clamp(v, min, max int) int {
	if max > 0 && v > max {
		v = max
	}
	if v < min {
		v = min
	}
	return v
}
