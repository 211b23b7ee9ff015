package digi

import "testing"

func TestPartitionedVector_Construction(t *testing.T) {
	data := []string{"a", "b", "c", "d", "e"}
	pv, err := NewPartitionedVector(data, []int{2, 0, 3}, []uint64{10, 20, 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pv.NPartitions() != 3 {
		t.Fatalf("expected 3 partitions, got %d", pv.NPartitions())
	}
	if pv.NElements() != 5 {
		t.Fatalf("expected 5 elements, got %d", pv.NElements())
	}

	span, addr := pv.Partition(2)
	if addr != 30 || len(span) != 3 || span[0] != "c" {
		t.Fatalf("partition(2) = %v, addr=%d", span, addr)
	}

	span, ok := pv.PartitionByAddress(20)
	if !ok || len(span) != 0 {
		t.Fatalf("expected empty span for address 20 (zero-size partition), got %v, ok=%v", span, ok)
	}

	span, ok = pv.PartitionByAddress(30)
	if !ok || len(span) != 3 || span[0] != "c" || span[2] != "e" {
		t.Fatalf("partition-by-address(30) = %v, ok=%v", span, ok)
	}
}

func TestPartitionedVector_SizeMismatch(t *testing.T) {
	_, err := NewPartitionedVector([]int{1, 2, 3}, []int{1, 1}, []uint64{1, 2})
	if err == nil {
		t.Fatal("expected error when partition sizes don't sum to data length")
	}
}

func TestPartitionedVector_DuplicateAddress(t *testing.T) {
	_, err := NewPartitionedVector([]int{1, 2}, []int{1, 1}, []uint64{5, 5})
	if err == nil {
		t.Fatal("expected error for duplicate partition addresses")
	}
}

func TestPartitionedVector_Empty(t *testing.T) {
	pv, err := NewPartitionedVector([]int{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pv.NPartitions() != 0 || pv.NElements() != 0 {
		t.Fatalf("expected empty vector, got %d partitions, %d elements", pv.NPartitions(), pv.NElements())
	}
}
