package sts

import "sync/atomic"

// Bucket is a fixed-capacity, append-only output bucket with an atomic
// fill count, per spec.md §3: writers never resize it, and once full,
// further inserts are silently dropped and counted as overflow rather
// than recovered (spec.md §9 "overflow is a counter, not an exception").
type Bucket[T any] struct {
	data     []T
	fillCount atomic.Int64
}

// NewBucket allocates a bucket with fixed capacity.
func NewBucket[T any](capacity int) *Bucket[T] {
	return &Bucket[T]{data: make([]T, capacity)}
}

// Insert reserves the next slot via atomic fetch-add and writes v into
// it. Returns ok=false (and increments no state itself — the caller's
// Monitor.*Overflow counter is the source of truth) if the bucket is
// already full.
func (b *Bucket[T]) Insert(v T) (pos int, ok bool) {
	idx := b.fillCount.Add(1) - 1
	if int(idx) >= len(b.data) {
		return 0, false
	}
	b.data[idx] = v
	return int(idx), true
}

// Len returns the number of elements actually written (clamped to
// capacity even if more inserts were attempted).
func (b *Bucket[T]) Len() int {
	n := int(b.fillCount.Load())
	if n > len(b.data) {
		return len(b.data)
	}
	return n
}

// Attempted returns the raw number of Insert calls, including ones that
// overflowed — used to detect the monster-event condition (spec.md
// §4.4 failure contract: nHitsWritten > 2*maxHitsPerModule).
func (b *Bucket[T]) Attempted() int { return int(b.fillCount.Load()) }

// Slice returns the written portion of the bucket.
func (b *Bucket[T]) Slice() []T { return b.data[:b.Len()] }

// Capacity returns the bucket's fixed capacity.
func (b *Bucket[T]) Capacity() int { return len(b.data) }
