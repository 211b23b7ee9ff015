package sts

import (
	"math"
	"sync/atomic"
)

// connHasPrevBit marks that some earlier digi has already claimed this
// digi as its successor. Bits 0..30 hold (successor index + 1); zero
// means "no successor" since index 0 can never be a valid successor by
// construction (spec.md §9: the head of a chain never links backward).
const connHasPrevBit = uint32(1) << 31

// Connector is the 32-bit lock-free cell from spec.md §3: one per digi,
// mutated only via compare-and-swap, forming a forest of per-cluster
// chains (spec.md §4.4 stage 3).
type Connector struct {
	word atomic.Uint32
}

// HasPrevious reports whether some other digi already links to this one.
func (c *Connector) HasPrevious() bool {
	return c.word.Load()&connHasPrevBit != 0
}

// Next returns the successor index and whether one is set.
func (c *Connector) Next() (idx int, ok bool) {
	v := c.word.Load() &^ connHasPrevBit
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}

// TryConnect attempts to link owner -> peer: it sets peer's has-previous
// bit and owner's next field. Both updates loop a CAS on the whole word
// so has-previous and next never tear relative to a concurrent reader,
// per spec.md §9. Connection is at most one-to-one: if peer already has
// a predecessor, or owner already has a successor, TryConnect fails and
// returns false without partially applying either half.
func TryConnect(owner, peer *Connector, peerIdx int) bool {
	for {
		peerWord := peer.word.Load()
		if peerWord&connHasPrevBit != 0 {
			return false // peer already claimed
		}
		if !peer.word.CompareAndSwap(peerWord, peerWord|connHasPrevBit) {
			continue
		}
		break
	}

	for {
		ownerWord := owner.word.Load()
		if ownerWord&^connHasPrevBit != 0 {
			// Owner already has a successor; undo the peer claim and fail.
			for {
				peerWord := peer.word.Load()
				if peer.word.CompareAndSwap(peerWord, peerWord&^connHasPrevBit) {
					break
				}
			}
			return false
		}
		newWord := (ownerWord & connHasPrevBit) | uint32(peerIdx+1)
		if owner.word.CompareAndSwap(ownerWord, newWord) {
			return true
		}
	}
}

// AtomicMaxFloat64 tracks a running maximum across concurrent writers.
// float64 has no hardware atomic-max, so this loops a CAS over the bit
// pattern — the canonical workaround (spec.md §4.4 stage 4, §9).
type AtomicMaxFloat64 struct {
	bits atomic.Uint64
}

// Update raises the tracked maximum to candidate if it's larger.
func (m *AtomicMaxFloat64) Update(candidate float64) {
	for {
		oldBits := m.bits.Load()
		old := math.Float64frombits(oldBits)
		if candidate <= old {
			return
		}
		if m.bits.CompareAndSwap(oldBits, math.Float64bits(candidate)) {
			return
		}
	}
}

// Load returns the current maximum (0 if Update was never called).
func (m *AtomicMaxFloat64) Load() float64 {
	return math.Float64frombits(m.bits.Load())
}
