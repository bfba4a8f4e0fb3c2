package resample

import "github.com/ktv-audio/engine/pkg/fifo"

// Handler stages interleaved samples pushed from a real-time device
// callback, deinterleaves them in fixed-size chunks, resamples each chunk,
// and republishes the result - remapped to the output channel count by
// duplicating channel 0 - into an output FIFO. It is driven entirely from
// the real-time thread: PushSamples and Drain never block, and PushSamples
// never allocates; Drain allocates, because each Resampler.Process call
// builds fresh working and output slices.
//
// Grounded on audio_node/mic_src.rs's ResamplingHandler, which stages raw
// device samples into an intermediate rtrb ring buffer before resampling in
// fixed-size rounds, and on handle_output's channel-0-duplication policy.
type Handler struct {
	resampler      *Resampler
	srcChannels    int
	targetChannels int
	chunkFrames    int

	stage  *fifo.FIFO // interleaved raw input, srcChannels wide
	output *fifo.FIFO // interleaved resampled output, targetChannels wide

	deinterleaved [][]float32 // scratch, reused every round
}

// NewHandler builds a staging-and-resampling pipeline. chunkFrames is the
// number of per-channel frames deinterleaved and fed to the resampler each
// round; it plays the role of the original's max_frames.
func NewHandler(srcRate, targetRate, srcChannels, targetChannels int, stageCapacity, outputCapacity uint64, chunkFrames int) *Handler {
	deinterleaved := make([][]float32, srcChannels)
	for c := range deinterleaved {
		deinterleaved[c] = make([]float32, chunkFrames)
	}

	return &Handler{
		resampler:      New(srcRate, targetRate, srcChannels),
		srcChannels:    srcChannels,
		targetChannels: targetChannels,
		chunkFrames:    chunkFrames,
		stage:          fifo.New(stageCapacity),
		output:         fifo.New(outputCapacity),
		deinterleaved:  deinterleaved,
	}
}

// PushSamples stages as many of the given interleaved raw samples as fit,
// silently dropping the remainder on overflow rather than blocking, per the
// real-time callback contract.
func (h *Handler) PushSamples(raw []float32) (pushed int) {
	n := len(raw)
	free := int(h.stage.SlotsFree())
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	_ = h.stage.Write(raw[:n])
	return n
}

// OutputFIFO returns the FIFO downstream nodes should read resampled,
// channel-remapped samples from.
func (h *Handler) OutputFIFO() *fifo.FIFO {
	return h.output
}

// SetOutputFIFO replaces the FIFO resampled output is published to, letting
// a node.Connect hand the handler a destination-owned FIFO instead of the
// one allocated by NewHandler.
func (h *Handler) SetOutputFIFO(f *fifo.FIFO) {
	h.output = f
}

// Drain runs as many full chunkFrames rounds as the staging buffer has data
// for, resampling and republishing each. It should be called after every
// PushSamples from the same thread.
func (h *Handler) Drain() {
	chunkSamples := uint64(h.chunkFrames * h.srcChannels)
	for h.stage.SlotsUsed() >= chunkSamples {
		h.deinterleaveOneChunk()
		out := h.resampler.Process(h.deinterleaved)
		h.publish(out)
	}
}

func (h *Handler) deinterleaveOneChunk() {
	first, second := h.stage.ReadReservation(uint64(h.chunkFrames * h.srcChannels))
	cursor := 0
	for _, part := range [2][]float32{first, second} {
		for _, v := range part {
			ch := cursor % h.srcChannels
			idx := cursor / h.srcChannels
			h.deinterleaved[ch][idx] = v
			cursor++
		}
	}
	h.stage.CommitRead(uint64(h.chunkFrames * h.srcChannels))
}

// publish duplicates channel 0 of the resampled output across every target
// channel, matching the remap policy used throughout the graph, and drops
// frames once the output FIFO has no room for a full target-channel frame.
func (h *Handler) publish(resampled [][]float32) {
	if len(resampled) == 0 {
		return
	}
	first := resampled[0]
	for _, v := range first {
		if h.output.SlotsFree() < uint64(h.targetChannels) {
			return
		}
		for i := 0; i < h.targetChannels; i++ {
			_ = h.output.Push(v)
		}
	}
}
