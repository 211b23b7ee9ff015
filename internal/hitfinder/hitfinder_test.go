package hitfinder

import (
	"reflect"
	"testing"
)

func TestFanOut_PreservesOrder(t *testing.T) {
	got := FanOut(50, func(i int) int { return i * i })
	for i := range got {
		if got[i] != i*i {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], i*i)
		}
	}
}

func TestFanOut_Empty(t *testing.T) {
	got := FanOut(0, func(i int) int { return i })
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestStitch_ConcatenatesInOrder(t *testing.T) {
	frags := [][]int{{1, 2}, {}, {3}, {4, 5, 6}}
	flat, offsets := Stitch(frags)
	want := []int{1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("flat = %v, want %v", flat, want)
	}
	wantOffsets := []int{0, 2, 2, 3, 6}
	if !reflect.DeepEqual(offsets, wantOffsets) {
		t.Fatalf("offsets = %v, want %v", offsets, wantOffsets)
	}
}
