package fifo

import (
	"errors"
	"sync"
	"testing"
)

func TestNewRoundsToPowerOf2(t *testing.T) {
	tests := []struct {
		input    uint64
		expected uint64
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{100, 128},
		{1024, 1024},
	}

	for _, tt := range tests {
		f := New(tt.input)
		if f.Capacity() != tt.expected {
			t.Errorf("New(%d): got capacity %d, want %d", tt.input, f.Capacity(), tt.expected)
		}
	}
}

func TestPushPopOrdering(t *testing.T) {
	f := New(8)
	for i := 0; i < 8; i++ {
		if err := f.Push(float32(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if err := f.Push(1); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	for i := 0; i < 8; i++ {
		v, err := f.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if v != float32(i) {
			t.Errorf("Pop: got %v, want %v (FIFO ordering violated)", v, i)
		}
	}
	if _, err := f.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestCapacityInvariant(t *testing.T) {
	f := New(16)
	for i := 0; i < 5; i++ {
		f.Push(float32(i))
	}
	f.Pop()
	f.Pop()
	if f.SlotsUsed()+f.SlotsFree() != f.Capacity() {
		t.Errorf("slots_used + slots_free = %d, want capacity %d", f.SlotsUsed()+f.SlotsFree(), f.Capacity())
	}
}

func TestWriteReadAcrossWrap(t *testing.T) {
	f := New(8)

	// advance the indices past the wrap boundary first
	for i := 0; i < 6; i++ {
		f.Push(0)
	}
	for i := 0; i < 6; i++ {
		f.Pop()
	}

	data := []float32{1, 2, 3, 4, 5, 6}
	if err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := make([]float32, 6)
	n, err := f.Read(out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 6 {
		t.Fatalf("Read: got %d samples, want 6", n)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("wrap-around Read[%d]: got %v, want %v", i, out[i], data[i])
		}
	}
}

func TestWriteFullRejectsPartial(t *testing.T) {
	f := New(4)
	err := f.Write([]float32{1, 2, 3, 4, 5})
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull for over-large write, got %v", err)
	}
	if f.SlotsUsed() != 0 {
		t.Errorf("Write must not partially write on failure, got %d slots used", f.SlotsUsed())
	}
}

func TestReadShortReadIsNotAnError(t *testing.T) {
	f := New(8)
	f.Write([]float32{1, 2, 3})

	out := make([]float32, 8)
	n, err := f.Read(out)
	if err != nil {
		t.Fatalf("short read should not error: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d, want 3", n)
	}
}

func TestReservationCommitRoundTrip(t *testing.T) {
	f := New(8)

	first, second := f.WriteReservation(5)
	total := len(first) + len(second)
	if total != 5 {
		t.Fatalf("reservation length: got %d, want 5", total)
	}
	for i := range first {
		first[i] = float32(i)
	}
	for i := range second {
		second[i] = float32(len(first) + i)
	}
	f.CommitWrite(5)

	rf, rs := f.ReadReservation(5)
	if len(rf)+len(rs) != 5 {
		t.Fatalf("read reservation length: got %d, want 5", len(rf)+len(rs))
	}
	got := append(append([]float32{}, rf...), rs...)
	for i, v := range got {
		if v != float32(i) {
			t.Errorf("reservation[%d]: got %v, want %v", i, v, i)
		}
	}
	f.CommitRead(5)
	if f.SlotsUsed() != 0 {
		t.Errorf("expected buffer drained after commit, got %d used", f.SlotsUsed())
	}
}

// TestConcurrentProducerConsumer exercises the SPSC contract under race
// detection: one goroutine writes a known sequence, another reads it back,
// and the read sequence must be a prefix of the written one.
func TestConcurrentProducerConsumer(t *testing.T) {
	f := New(64)
	const total = 100000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if err := f.Push(float32(i)); err == nil {
				i++
			}
		}
	}()

	var mismatch bool
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			v, err := f.Pop()
			if err != nil {
				continue
			}
			if v != float32(i) {
				mismatch = true
			}
			i++
		}
	}()

	wg.Wait()
	if mismatch {
		t.Errorf("read sequence was not a prefix of the written sequence")
	}
}
