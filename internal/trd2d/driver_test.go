package trd2d

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func mkDigi2D(row, col int, numCols int, t, charge float64, plane Plane) digi.Digi {
	ch := row*numCols + col
	return digi.Digi{
		Addr:   digi.NewAddress(digi.SystemTRD2D, 0, uint8(plane), uint32(ch)),
		Time:   t,
		Charge: charge,
	}
}

func TestFindHits_SingleClusterPerRow(t *testing.T) {
	const numCols = 32
	digis := []digi.Digi{
		mkDigi2D(0, 5, numCols, 100, 40, PlaneT),
		mkDigi2D(0, 5, numCols, 100, 30, PlaneR),
		mkDigi2D(2, 10, numCols, 200, 50, PlaneT),
	}
	p := ModuleParam{NumCols: numCols, PadWidth: 1, PadHeight: 1, KeepWindow: 30}
	hits, mon := FindHits(digis, 4, p)
	if mon.ClustersBuilt != 2 {
		t.Fatalf("ClustersBuilt = %d, want 2", mon.ClustersBuilt)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Time < hits[i-1].Time {
			t.Fatalf("hits not sorted by time: %v", hits)
		}
	}
}
