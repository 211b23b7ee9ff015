package sts

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func mkDigi(ch uint32, t float64) digi.Digi {
	return digi.Digi{Addr: digi.NewAddress(digi.SystemSTS, 0, 0, ch), Time: t}
}

// TestSortDigisChannelTime reproduces the spec.md §8 stage-1 invariant:
// after sorting, the sequence is non-decreasing in (channel, time).
func TestSortDigisChannelTime(t *testing.T) {
	digis := []digi.Digi{
		mkDigi(3, 50), mkDigi(1, 20), mkDigi(1, 10), mkDigi(2, 5),
	}
	sortDigisChannelTime(digis)
	for i := 1; i < len(digis); i++ {
		prevCh, curCh := digis[i-1].Addr.Channel(), digis[i].Addr.Channel()
		if curCh < prevCh {
			t.Fatalf("channel decreased at %d: %d -> %d", i, prevCh, curCh)
		}
		if curCh == prevCh && digis[i].Time < digis[i-1].Time {
			t.Fatalf("time decreased within channel %d at %d", curCh, i)
		}
	}
}

func TestChannelOffsets(t *testing.T) {
	digis := []digi.Digi{mkDigi(0, 1), mkDigi(0, 2), mkDigi(2, 3), mkDigi(2, 4), mkDigi(2, 5)}
	offsets := channelOffsets(digis, 4)
	want := []int{0, 2, 2, 5, 5}
	if len(offsets) != len(want) {
		t.Fatalf("len(offsets) = %d, want %d", len(offsets), len(want))
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], want[i])
		}
	}
}

func TestBucket_OverflowCounted(t *testing.T) {
	b := NewBucket[int](2)
	for i := 0; i < 5; i++ {
		b.Insert(i)
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if b.Attempted() != 5 {
		t.Fatalf("Attempted() = %d, want 5", b.Attempted())
	}
	if got := b.Slice(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("Slice() = %v, want [0 1]", got)
	}
}

func TestBuildClusterIdx_SortsByTime(t *testing.T) {
	clusters := []Cluster{{Time: 30}, {Time: 10}, {Time: 20}}
	idx := buildClusterIdx(clusters)
	for i := 1; i < len(idx); i++ {
		if idx[i].Time < idx[i-1].Time {
			t.Fatalf("not sorted: %v", idx)
		}
	}
	// The smallest time (10) is cluster index 1.
	if idx[0].Idx != 1 {
		t.Errorf("idx[0].Idx = %d, want 1", idx[0].Idx)
	}
}
