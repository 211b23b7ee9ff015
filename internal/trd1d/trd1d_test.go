package trd1d

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func mkDigi(ch uint32, t, charge float64, kind digi.TriggerKind) digi.Digi {
	return digi.Digi{
		Addr:    digi.NewAddress(digi.SystemTRD1D, 0, 0, ch),
		Time:    t,
		Charge:  charge,
		Trigger: kind,
	}
}

func TestClusterizeRow_SelfTriggeredChainExtends(t *testing.T) {
	digis := []digi.Digi{
		mkDigi(5, 100, 50, digi.TriggerSelf),
		mkDigi(6, 101, 60, digi.TriggerSelf),
		mkDigi(7, 102, 55, digi.TriggerSelf),
	}
	clusters := ClusterizeRow(0, digis)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.StartChannel != 5 || c.EndChannel != 7 {
		t.Errorf("footprint = [%d,%d], want [5,7]", c.StartChannel, c.EndChannel)
	}
}

func TestClusterizeRow_NeighbourTerminatesSide(t *testing.T) {
	digis := []digi.Digi{
		mkDigi(5, 100, 50, digi.TriggerSelf),
		mkDigi(6, 101, 10, digi.TriggerNeighbour),
		mkDigi(7, 102, 50, digi.TriggerSelf), // starts a new, separate cluster
	}
	clusters := ClusterizeRow(0, digis)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].EndChannel != 6 {
		t.Errorf("first cluster should absorb the neighbour digi at 6, got end=%d", clusters[0].EndChannel)
	}
	if !clusters[0].ClosedRight {
		t.Error("first cluster should be marked ClosedRight")
	}
}

func TestMergeRowPair_MergesOverlappingFootprints(t *testing.T) {
	a := []Cluster{{Row: 0, StartChannel: 3, EndChannel: 5, StartTime: 100, Digis: make([]digi.Digi, 3)}}
	b := []Cluster{{Row: 1, StartChannel: 4, EndChannel: 6, StartTime: 102, Digis: make([]digi.Digi, 3)}}
	mergedA, mergedB, n := MergeRowPair(a, b, 10)
	if n != 1 {
		t.Fatalf("expected 1 merge, got %d", n)
	}
	if len(mergedB) != 0 {
		t.Fatalf("expected rowB cluster absorbed, got %d remaining", len(mergedB))
	}
	if mergedA[0].StartChannel != 3 || mergedA[0].EndChannel != 6 {
		t.Errorf("merged footprint = [%d,%d], want [3,6]", mergedA[0].StartChannel, mergedA[0].EndChannel)
	}
	if len(mergedA[0].Digis) != 6 {
		t.Errorf("merged digi count = %d, want 6", len(mergedA[0].Digis))
	}
}

func TestFindHits_EndToEnd(t *testing.T) {
	const numCols = 16
	const numRows = 4
	digis := []digi.Digi{
		mkDigi(2, 100, 50, digi.TriggerSelf),  // row 0
		mkDigi(3, 101, 60, digi.TriggerSelf),  // row 0
		mkDigi(20, 50, 40, digi.TriggerSelf),  // row 1 (channel 20 = row 1, col 4)
	}
	p := ModuleParam{NumCols: numCols, PadWidth: 1, RowMergeDt: 5}
	hits, mon := FindHits(digis, numRows, p)
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
