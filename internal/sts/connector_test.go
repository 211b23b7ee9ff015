package sts

import "testing"

func TestTryConnect_AtMostOnePredecessor(t *testing.T) {
	var a, b, c Connector
	if !TryConnect(&a, &b, 1) {
		t.Fatal("a->b should succeed")
	}
	if TryConnect(&c, &b, 1) {
		t.Fatal("c->b should fail: b already has a predecessor")
	}
	if !b.HasPrevious() {
		t.Fatal("b should report HasPrevious")
	}
	if idx, ok := a.Next(); !ok || idx != 1 {
		t.Fatalf("a.Next() = (%d,%v), want (1,true)", idx, ok)
	}
}

func TestTryConnect_AtMostOneSuccessor(t *testing.T) {
	var a, b, c Connector
	if !TryConnect(&a, &b, 1) {
		t.Fatal("a->b should succeed")
	}
	if TryConnect(&a, &c, 2) {
		t.Fatal("a->c should fail: a already has a successor")
	}
	if c.HasPrevious() {
		t.Fatal("c's predecessor claim should have been rolled back")
	}
}

// TestConnectorForestAcyclic reproduces the spec.md §8 invariant: after
// stage 3, the connector graph is a forest regardless of the order in
// which connections are attempted.
func TestConnectorForestAcyclic(t *testing.T) {
	const n = 20
	connectors := make([]Connector, n)
	// Attempt every i->i+1 link twice to stress the CAS discipline; only
	// a simple chain should ever form.
	for i := 0; i < n-1; i++ {
		TryConnect(&connectors[i], &connectors[i+1], i+1)
		TryConnect(&connectors[i], &connectors[i+1], i+1)
	}

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		if connectors[i].HasPrevious() {
			continue
		}
		// Walk the chain from this head; must terminate and never
		// revisit a node (cycle) or fan out (parallel successors are
		// impossible by construction, but walk still must be a simple
		// path).
		idx := i
		steps := 0
		for {
			if seen[idx] {
				t.Fatalf("cycle or cross-link detected at node %d", idx)
			}
			seen[idx] = true
			steps++
			if steps > n {
				t.Fatalf("walk from head %d did not terminate", i)
			}
			next, ok := connectors[idx].Next()
			if !ok {
				break
			}
			idx = next
		}
	}
	if len(seen) != n {
		t.Fatalf("forest walk visited %d nodes, want %d", len(seen), n)
	}
}

func TestAtomicMaxFloat64(t *testing.T) {
	var m AtomicMaxFloat64
	m.Update(3.0)
	m.Update(1.0)
	m.Update(5.0)
	m.Update(4.0)
	if got := m.Load(); got != 5.0 {
		t.Errorf("Load() = %v, want 5.0", got)
	}
}
