package digi

import (
	"fmt"
	"sort"
)

// Padded wraps a scalar in a cache-line-sized struct so atomic counters
// placed in adjacent array slots don't share a cache line (false
// sharing), per spec.md §2 "Padded value". 64 bytes covers every common
// cache-line size; the padding is dead weight on the few architectures
// with smaller lines, which is the accepted tradeoff.
type Padded[T any] struct {
	Value T
	_     [64]byte
}

// PartitionedVector is a flat element slice plus per-partition offsets
// and addresses, giving O(1) lookup by partition index and O(log N)
// lookup by partition address (spec.md §3/§4.1).
type PartitionedVector[T any] struct {
	data      []T
	offsets   []int // len == n+1
	addresses []uint64
}

// NewPartitionedVector builds a PartitionedVector from flat data, a
// parallel list of partition sizes, and a parallel list of partition
// addresses. Returns an error (wrapping recoerr.ErrConfig-shaped
// invariant violations at the call site) if sizes don't sum to
// len(data) or addresses aren't unique.
func NewPartitionedVector[T any](data []T, sizes []int, addresses []uint64) (*PartitionedVector[T], error) {
	if len(sizes) != len(addresses) {
		return nil, fmt.Errorf("partitioned vector: %d sizes but %d addresses", len(sizes), len(addresses))
	}
	offsets := make([]int, len(sizes)+1)
	for i, sz := range sizes {
		if sz < 0 {
			return nil, fmt.Errorf("partitioned vector: negative partition size %d at index %d", sz, i)
		}
		offsets[i+1] = offsets[i] + sz
	}
	if offsets[len(offsets)-1] != len(data) {
		return nil, fmt.Errorf("partitioned vector: partition sizes sum to %d, data has %d elements", offsets[len(offsets)-1], len(data))
	}

	seen := make(map[uint64]struct{}, len(addresses))
	for _, a := range addresses {
		if _, dup := seen[a]; dup {
			return nil, fmt.Errorf("partitioned vector: duplicate partition address %d", a)
		}
		seen[a] = struct{}{}
	}

	addrCopy := append([]uint64(nil), addresses...)
	return &PartitionedVector[T]{data: data, offsets: offsets, addresses: addrCopy}, nil
}

// NPartitions returns the number of partitions.
func (p *PartitionedVector[T]) NPartitions() int { return len(p.offsets) - 1 }

// NElements returns the total element count across all partitions.
func (p *PartitionedVector[T]) NElements() int { return len(p.data) }

// DataSpan returns the full flat backing slice.
func (p *PartitionedVector[T]) DataSpan() []T { return p.data }

// Partition returns the span and address for partition index i.
func (p *PartitionedVector[T]) Partition(i int) (span []T, address uint64) {
	return p.data[p.offsets[i]:p.offsets[i+1]], p.addresses[i]
}

// PartitionByAddress returns the span for the partition carrying the
// given address, or ok=false if no partition has it. A zero-size
// partition that carries the address yields an empty span with ok=true.
// Sorted addresses are binary-searched; unsorted ones are scanned
// linearly (see indexOfAddress below).
func (p *PartitionedVector[T]) PartitionByAddress(address uint64) (span []T, ok bool) {
	idx, found := p.indexOfAddress(address)
	if !found {
		return nil, false
	}
	return p.data[p.offsets[idx]:p.offsets[idx+1]], true
}

func (p *PartitionedVector[T]) indexOfAddress(address uint64) (int, bool) {
	// addresses is not necessarily pre-sorted by the constructor (callers
	// may supply addresses in module-table order); binary search requires
	// sorted input, so fall back to it only when the slice is sorted, and
	// otherwise do a linear scan. N partitions per detector is always
	// small (tens to low hundreds of modules/RPCs), so the O(N) fallback
	// is not a performance concern in practice.
	if sort.SliceIsSorted(p.addresses, func(i, j int) bool { return p.addresses[i] < p.addresses[j] }) {
		i := sort.Search(len(p.addresses), func(i int) bool { return p.addresses[i] >= address })
		if i < len(p.addresses) && p.addresses[i] == address {
			return i, true
		}
		return 0, false
	}
	for i, a := range p.addresses {
		if a == address {
			return i, true
		}
	}
	return 0, false
}
