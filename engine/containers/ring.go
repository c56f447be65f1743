package containers

import "errors"

// Ring is a fixed-depth rotation of slots with independent write and read
// cursors. The write cursor advances once per frame on the CPU side; the read
// cursor advances only when the device reports completion of the frame that
// wrote the slot, so reads always trail writes by the pipeline depth.
type Ring[T any] struct {
	slots      []T
	readIndex  int
	writeIndex int
	writes     uint64
	reads      uint64
}

func NewRing[T any](depth int) (*Ring[T], error) {
	if depth <= 0 {
		return nil, errors.New("ring depth must be > 0")
	}
	return &Ring[T]{
		slots: make([]T, depth),
	}, nil
}

func (r *Ring[T]) Depth() int {
	return len(r.slots)
}

func (r *Ring[T]) WriteIndex() int {
	return r.writeIndex
}

func (r *Ring[T]) ReadIndex() int {
	return r.readIndex
}

// WriteSlot returns the slot under the write cursor without advancing.
func (r *Ring[T]) WriteSlot() *T {
	return &r.slots[r.writeIndex]
}

// ReadSlot returns the slot under the read cursor without advancing.
func (r *Ring[T]) ReadSlot() *T {
	return &r.slots[r.readIndex]
}

// Slot returns the slot at an explicit index.
func (r *Ring[T]) Slot(index int) *T {
	return &r.slots[index%len(r.slots)]
}

// AdvanceWrite moves the write cursor forward one slot and returns the new
// index. It fails when the ring is full, i.e. when another advance would
// lap the read cursor by more than the ring depth.
func (r *Ring[T]) AdvanceWrite() (int, error) {
	if r.writes-r.reads >= uint64(len(r.slots)) {
		return r.writeIndex, errors.New("ring full: write would overtake unread slot")
	}
	r.writes++
	r.writeIndex = (r.writeIndex + 1) % len(r.slots)
	return r.writeIndex, nil
}

// AdvanceRead moves the read cursor forward one slot and returns the new
// index. It fails when the read cursor would pass the write cursor.
func (r *Ring[T]) AdvanceRead() (int, error) {
	if r.reads >= r.writes {
		return r.readIndex, errors.New("ring empty: read would pass write")
	}
	r.reads++
	r.readIndex = (r.readIndex + 1) % len(r.slots)
	return r.readIndex, nil
}

// Lag reports how many slots the read cursor trails the write cursor.
func (r *Ring[T]) Lag() int {
	return int(r.writes - r.reads)
}

// Reset zeroes both cursors and every slot.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.slots {
		r.slots[i] = zero
	}
	r.readIndex = 0
	r.writeIndex = 0
	r.writes = 0
	r.reads = 0
}
