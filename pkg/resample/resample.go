// Package resample implements a fixed-quality windowed-sinc sample-rate
// converter. The filter's quality knobs (tap count, cutoff, oversampling,
// window) are hard-coded rather than exposed as tuning parameters, because
// they fix the filter's frequency response: letting callers vary them would
// make the engine's resampling behavior unpredictable across call sites.
//
// Grounded on audio_node/mic_src.rs's ResamplingHandler, which configures
// rubato's SincFixedIn with sinc_len 256, f_cutoff 0.95, a 256x oversampled
// linear-interpolated table, and a Blackman-Harris window - the same
// constants are reproduced here as an explicit, hand-written convolution
// since no library in the pack exposes rubato's parameter set (see
// DESIGN.md).
package resample

import "math"

const (
	// SincLen is the number of taps in the windowed-sinc filter.
	SincLen = 256
	// FCutoff is the normalized cutoff frequency (fraction of Nyquist)
	// applied when the conversion is not downsampling; downsampling scales
	// it down further to avoid aliasing.
	FCutoff = 0.95
	// OversamplingFactor is the number of sub-sample phases precomputed in
	// the filter table; runtime evaluation linearly interpolates between
	// the two nearest phases.
	OversamplingFactor = 256

	halfTaps = SincLen / 2
)

// Resampler converts a stream of multichannel float32 samples from one
// sample rate to another, processing input in whatever block sizes the
// caller supplies and maintaining the sinc filter's tap history across
// calls so block boundaries introduce no discontinuity.
type Resampler struct {
	channels  int
	inputStep float64 // input samples advanced per output sample
	kernel    [][]float32

	history  [][]float32 // per channel, SincLen-1 most recent input samples
	consumed int64       // absolute count of input samples fed so far
	nextPos  float64     // absolute input-sample position of the next output
}

// New creates a resampler converting from srcRate to targetRate for the
// given channel count. Channels are resampled independently using the same
// filter.
func New(srcRate, targetRate, channels int) *Resampler {
	ratio := float64(targetRate) / float64(srcRate)
	cutoff := FCutoff
	if ratio < 1 {
		cutoff *= ratio
	}

	kernel := make([][]float32, OversamplingFactor+1)
	for p := 0; p <= OversamplingFactor; p++ {
		frac := float64(p) / float64(OversamplingFactor)
		row := make([]float32, SincLen)
		for k := 0; k < SincLen; k++ {
			j := float64(k - halfTaps + 1)
			x := frac - j
			row[k] = float32(cutoff * sincFunc(cutoff*x) * blackmanHarris(x))
		}
		kernel[p] = row
	}

	history := make([][]float32, channels)
	for c := range history {
		history[c] = make([]float32, SincLen-1)
	}

	return &Resampler{
		channels:  channels,
		inputStep: 1.0 / ratio,
		kernel:    kernel,
		history:   history,
	}
}

// Process resamples one block of per-channel input (each channel's slice
// must have equal length) and returns per-channel output of whatever length
// the ratio and available tap history produce. The returned slices are only
// valid until the next call to Process.
func (r *Resampler) Process(input [][]float32) [][]float32 {
	if len(input) == 0 || len(input[0]) == 0 {
		return make([][]float32, r.channels)
	}
	frameCount := len(input[0])

	extended := make([][]float32, r.channels)
	for c := 0; c < r.channels; c++ {
		buf := make([]float32, 0, len(r.history[c])+frameCount)
		buf = append(buf, r.history[c]...)
		buf = append(buf, input[c]...)
		extended[c] = buf
	}

	baseAbsIndex := r.consumed - int64(SincLen-1)
	maxAbsIndex := r.consumed + int64(frameCount) - 1

	output := make([][]float32, r.channels)
	for c := range output {
		output[c] = make([]float32, 0, int(float64(frameCount)/r.inputStep)+2)
	}

	for r.nextPos+float64(halfTaps) <= float64(maxAbsIndex) {
		center := math.Floor(r.nextPos)
		frac := r.nextPos - center
		start := int64(center) - int64(halfTaps) + 1 - baseAbsIndex

		p0 := int(frac * OversamplingFactor)
		pf := float32(frac*OversamplingFactor - float64(p0))
		row0 := r.kernel[p0]
		row1 := r.kernel[p0+1]

		for c := 0; c < r.channels; c++ {
			buf := extended[c]
			var sum float32
			for k := 0; k < SincLen; k++ {
				coeff := row0[k]*(1-pf) + row1[k]*pf
				sum += buf[start+int64(k)] * coeff
			}
			output[c] = append(output[c], sum)
		}

		r.nextPos += r.inputStep
	}

	r.consumed += int64(frameCount)
	for c := 0; c < r.channels; c++ {
		tail := extended[c][len(extended[c])-(SincLen-1):]
		copy(r.history[c], tail)
	}

	return output
}

func sincFunc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackmanHarris evaluates a four-term Blackman-Harris window at offset x,
// where x ranges over [-halfTaps, halfTaps-1] across the filter's support.
func blackmanHarris(x float64) float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	n := (x + float64(halfTaps)) / float64(SincLen-1)
	if n < 0 || n > 1 {
		return 0
	}
	return a0 - a1*math.Cos(2*math.Pi*n) + a2*math.Cos(4*math.Pi*n) - a3*math.Cos(6*math.Pi*n)
}
