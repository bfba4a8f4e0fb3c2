// Package fifo implements a lock-free single-producer single-consumer ring
// buffer of float32 samples, the transport used on every edge of the audio
// graph. Push, Write, WriteReservation and CommitWrite must only be called
// from the producer thread; Pop, Read, ReadReservation and CommitRead must
// only be called from the consumer thread.
package fifo

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrFull is returned when a write or write reservation cannot be
	// satisfied because the buffer does not have enough free slots.
	ErrFull = errors.New("fifo: full")
	// ErrEmpty is returned when a read or read reservation cannot be
	// satisfied because the buffer has no data available.
	ErrEmpty = errors.New("fifo: empty")
)

// FIFO is a bounded SPSC queue of float32 samples backed by a power-of-two
// sized array and mask-based indexing. It is the inter-node transport
// described by the audio graph: exactly one producer thread and one
// consumer thread, no locks on the hot path.
type FIFO struct {
	buf      []float32
	size     uint64
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a FIFO with at least the requested capacity, rounded up to
// the next power of two so slot math can use a bitwise AND instead of a
// modulo.
func New(capacity uint64) *FIFO {
	capacity = nextPowerOf2(capacity)
	return &FIFO{
		buf:  make([]float32, capacity),
		size: capacity,
		mask: capacity - 1,
	}
}

// Capacity returns the total number of slots in the buffer.
func (f *FIFO) Capacity() uint64 {
	return f.size
}

// SlotsFree returns a conservative estimate of writable slots, valid from
// the producer's side.
func (f *FIFO) SlotsFree() uint64 {
	return f.size - (f.writePos.Load() - f.readPos.Load())
}

// SlotsUsed returns a conservative estimate of readable slots, valid from
// the consumer's side.
func (f *FIFO) SlotsUsed() uint64 {
	return f.writePos.Load() - f.readPos.Load()
}

// Push writes a single sample. It fails with ErrFull without writing if the
// buffer has no free slot.
func (f *FIFO) Push(v float32) error {
	if f.SlotsFree() == 0 {
		return ErrFull
	}
	pos := f.writePos.Load()
	f.buf[pos&f.mask] = v
	f.writePos.Store(pos + 1)
	return nil
}

// Pop reads a single sample. It fails with ErrEmpty if the buffer is empty.
func (f *FIFO) Pop() (float32, error) {
	if f.SlotsUsed() == 0 {
		return 0, ErrEmpty
	}
	pos := f.readPos.Load()
	v := f.buf[pos&f.mask]
	f.readPos.Store(pos + 1)
	return v, nil
}

// Write copies all of data into the buffer or fails with ErrFull and writes
// nothing. Unlike Push this never partially writes.
func (f *FIFO) Write(data []float32) error {
	n := uint64(len(data))
	if n == 0 {
		return nil
	}
	if n > f.SlotsFree() {
		return ErrFull
	}

	first, second := f.WriteReservation(n)
	copy(first, data[:len(first)])
	copy(second, data[len(first):])
	f.CommitWrite(n)
	return nil
}

// Read copies up to len(data) samples out of the buffer and returns the
// count actually read. It returns ErrEmpty only when nothing was available
// at all; a short read is not an error.
func (f *FIFO) Read(data []float32) (int, error) {
	want := uint64(len(data))
	if want == 0 {
		return 0, nil
	}
	avail := f.SlotsUsed()
	if avail == 0 {
		return 0, ErrEmpty
	}
	n := min(want, avail)

	first, second := f.ReadReservation(n)
	copy(data[:len(first)], first)
	copy(data[len(first):n], second)
	f.CommitRead(n)
	return int(n), nil
}

// WriteReservation returns up to two contiguous writable slices whose
// combined length is n, without publishing them to the consumer. The
// caller must call CommitWrite(n) after filling them (or CommitWrite with a
// shorter length to publish a partial reservation). The caller is
// responsible for ensuring n <= SlotsFree(); a reservation that races past
// the consumer's read position corrupts data, since this type enforces no
// bookkeeping of its own across the two calls.
func (f *FIFO) WriteReservation(n uint64) (first, second []float32) {
	if n == 0 {
		return nil, nil
	}
	pos := f.writePos.Load()
	start := pos & f.mask
	if start+n <= f.size {
		return f.buf[start : start+n], nil
	}
	end := (pos + n) & f.mask
	return f.buf[start:f.size], f.buf[:end]
}

// CommitWrite publishes n previously reserved samples to the consumer,
// advancing the write index with release semantics (the atomic Store
// below is the release; the consumer's Load of writePos is the acquire).
func (f *FIFO) CommitWrite(n uint64) {
	f.writePos.Store(f.writePos.Load() + n)
}

// ReadReservation returns up to two contiguous readable slices whose
// combined length is n. The caller must call CommitRead(n) (or fewer) after
// consuming them.
func (f *FIFO) ReadReservation(n uint64) (first, second []float32) {
	if n == 0 {
		return nil, nil
	}
	pos := f.readPos.Load()
	start := pos & f.mask
	if start+n <= f.size {
		return f.buf[start : start+n], nil
	}
	end := (pos + n) & f.mask
	return f.buf[start:f.size], f.buf[:end]
}

// CommitRead advances the read index by n, returning the n samples'
// slots to the producer.
func (f *FIFO) CommitRead(n uint64) {
	f.readPos.Store(f.readPos.Load() + n)
}

// Reset clears the buffer by resetting both indices to zero. Only safe to
// call while neither producer nor consumer thread is running.
func (f *FIFO) Reset() {
	f.writePos.Store(0)
	f.readPos.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
