// Package ring implements the fixed-size FIFO that sits between a producer
// goroutine and a device callback. It does no locking of its own.
package ring

// Buffer is a bounded FIFO of T.
type Buffer[T any] struct {
	buf  []T
	head int
	n    int
}

// New returns a buffer holding at most size elements.
func New[T any](size int) *Buffer[T] {
	return &Buffer[T]{buf: make([]T, max(size, 1))}
}

func (r *Buffer[T]) Len() int   { return r.n }
func (r *Buffer[T]) Cap() int   { return len(r.buf) }
func (r *Buffer[T]) Full() bool { return r.n == len(r.buf) }

// Push copies as many elements as fit and returns how many were taken.
func (r *Buffer[T]) Push(src []T) int {
	taken := 0
	for taken < len(src) && r.n < len(r.buf) {
		tail := (r.head + r.n) % len(r.buf)
		end := len(r.buf)
		if tail < r.head {
			end = r.head
		}
		c := copy(r.buf[tail:end], src[taken:])
		r.n += c
		taken += c
	}
	return taken
}

// Pop removes the oldest element.
func (r *Buffer[T]) Pop() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v, true
}

// Read moves up to len(dst) elements into dst and returns the count.
func (r *Buffer[T]) Read(dst []T) int {
	read := 0
	for read < len(dst) && r.n > 0 {
		end := min(r.head+r.n, len(r.buf))
		c := copy(dst[read:], r.buf[r.head:end])
		r.head = (r.head + c) % len(r.buf)
		r.n -= c
		read += c
	}
	return read
}
