// Package ring provides a fixed-capacity FIFO that overwrites its oldest entry.
package ring

type Buffer[T any] struct {
	items []T
	start int
	size  int
}

func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

func (b *Buffer[T]) Cap() int { return len(b.items) }

func (b *Buffer[T]) Len() int { return b.size }

// Push appends v, evicting the oldest entry when full.
func (b *Buffer[T]) Push(v T) {
	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = v
		b.size++
		return
	}
	b.items[b.start] = v
	b.start = (b.start + 1) % len(b.items)
}

// Slice returns the entries oldest first.
func (b *Buffer[T]) Slice() []T {
	out := make([]T, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(b.start+i)%len(b.items)])
	}
	return out
}

// Retain keeps the entries for which keep returns true, preserving order.
func (b *Buffer[T]) Retain(keep func(T) bool) int {
	kept := make([]T, 0, b.size)
	for _, v := range b.Slice() {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	removed := b.size - len(kept)
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.start, b.size = 0, 0
	for _, v := range kept {
		b.Push(v)
	}
	return removed
}
