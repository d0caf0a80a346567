package registry

const minHistoryGrowth = 8

// History is a bounded ring buffer. Storage grows on demand up to
// capacity, so an unused history holds no backing array. Appending to a
// full history evicts the oldest entry; iteration order is always arrival
// order.
type History[T any] struct {
	buf      []T
	start    int
	capacity int
}

func NewHistory[T any](capacity int) *History[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &History[T]{capacity: capacity}
}

func (h *History[T]) Append(item T) {
	if len(h.buf) < h.capacity {
		// start stays 0 until the buffer is full.
		if len(h.buf) == cap(h.buf) {
			h.grow()
		}
		h.buf = append(h.buf, item)
		return
	}

	h.buf[h.start] = item
	h.start = (h.start + 1) % h.capacity
}

// grow doubles the backing array without exceeding capacity.
func (h *History[T]) grow() {
	next := min(max(2*cap(h.buf), minHistoryGrowth), h.capacity)
	buf := make([]T, len(h.buf), next)
	copy(buf, h.buf)
	h.buf = buf
}

// Items returns a copy, oldest first.
func (h *History[T]) Items() []T {
	out := make([]T, len(h.buf))
	n := copy(out, h.buf[h.start:])
	copy(out[n:], h.buf[:h.start])
	return out
}

func (h *History[T]) Len() int {
	return len(h.buf)
}

func (h *History[T]) Cap() int {
	return h.capacity
}

// Clear drops every entry and releases the backing array.
func (h *History[T]) Clear() {
	h.buf = nil
	h.start = 0
}
