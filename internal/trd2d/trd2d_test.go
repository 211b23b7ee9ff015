package trd2d

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func mkDigi(plane Plane, ch uint32, t, charge float64) digi.Digi {
	return digi.Digi{
		Addr:   digi.NewAddress(digi.SystemTRD2D, 0, uint8(plane), ch),
		Time:   t,
		Charge: charge,
	}
}

func TestAddDigi_ExtendsWithinWindow(t *testing.T) {
	var row []Cluster
	AddDigi(&row, 4, mkDigi(PlaneT, 3, 100, 50))
	AddDigi(&row, 4, mkDigi(PlaneR, 4, 102, 60))
	if len(row) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(row))
	}
	c := row[0]
	if c.StartChannel != 3 || c.EndChannel != 4 {
		t.Errorf("footprint = [%d,%d], want [3,4]", c.StartChannel, c.EndChannel)
	}
	if len(c.Digis) != 2 {
		t.Errorf("digis = %d, want 2", len(c.Digis))
	}
}

func TestAddDigi_NewClusterOutsideWindow(t *testing.T) {
	var row []Cluster
	AddDigi(&row, 4, mkDigi(PlaneT, 3, 100, 50))
	AddDigi(&row, 4, mkDigi(PlaneT, 3, 200, 50)) // far outside the 5-unit window
	if len(row) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(row))
	}
}

// TestFindClusters_MergesAdjacentFragments reproduces spec.md §8
// scenario 5: two clusters in row 4, channel ranges [3..6] and [7..9],
// startTime difference 3 time units, both size > 1.
func TestFindClusters_MergesAdjacentFragments(t *testing.T) {
	row := []Cluster{
		{Row: 4, StartChannel: 3, EndChannel: 6, StartTime: 100, LastActivity: 100, Charge: 40, Digis: make([]digi.Digi, 2)},
		{Row: 4, StartChannel: 7, EndChannel: 9, StartTime: 103, LastActivity: 103, Charge: 30, Digis: make([]digi.Digi, 2)},
	}
	open, closed := FindClusters(row, 1000, 0) // keepWindow=0: everything closes immediately
	if len(open) != 0 {
		t.Fatalf("expected 0 open clusters, got %d", len(open))
	}
	if len(closed) != 1 {
		t.Fatalf("expected 1 merged cluster, got %d", len(closed))
	}
	merged := closed[0]
	if merged.StartChannel != 3 || merged.EndChannel != 9 {
		t.Errorf("merged footprint = [%d,%d], want [3,9]", merged.StartChannel, merged.EndChannel)
	}
	if merged.StartTime != 100 {
		t.Errorf("merged start time = %v, want 100 (min)", merged.StartTime)
	}
	if len(merged.Digis) != 4 {
		t.Errorf("merged digi count = %d, want 4", len(merged.Digis))
	}
}

func TestMakeHit_SingleChannel(t *testing.T) {
	c := Cluster{
		Row:          2,
		StartChannel: 5,
		EndChannel:   5,
		StartTime:    100,
		Digis: []digi.Digi{
			mkDigi(PlaneT, 5, 100, 80),
			mkDigi(PlaneR, 5, 101, 40),
		},
	}
	p := ModuleParam{PadWidth: 1, PadHeight: 1}
	h := MakeHit(c, p)
	if h.Topology != TopoSize1 {
		t.Errorf("topology = %v, want TopoSize1", h.Topology)
	}
	if h.Energy != 120 {
		t.Errorf("energy = %v, want 120", h.Energy)
	}
	if h.ClusterSize != 1 {
		t.Errorf("clusterSize = %d, want 1", h.ClusterSize)
	}
}
