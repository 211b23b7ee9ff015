package sts

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// TestFindHits_SingleFrontBackPair exercises the full stage 1-6
// pipeline end to end: two single-digi clusters, one per side, close
// enough in time and space to produce exactly one hit.
func TestFindHits_SingleFrontBackPair(t *testing.T) {
	asic := testAsic()
	const nChannels = 128

	front := []digi.Digi{{
		Addr:   digi.NewAddress(digi.SystemSTS, 0, 0, 10),
		Time:   1000,
		Charge: 100,
	}}
	back := []digi.Digi{{
		Addr:   digi.NewAddress(digi.SystemSTS, 0, 1, 10),
		Time:   1001,
		Charge: 100,
	}}

	param := digi.ModuleParam{
		NChannels:          nChannels,
		MaxClustersPerSide: 16,
		MaxHitsPerModule:   16,
		Geometry: digi.Geometry{
			PadPitch:     1.0,
			SensorHeight: 1000,
			StereoAngleF: 0,
			StereoAngleB: radians(7.5),
		},
		TimeCutDigiAbs:    5,
		TimeCutClusterAbs: 10,
		ChargeDeltaCut:    0,
	}

	clustersF, clustersB, hits, mon := FindHits(front, back, param, asic, asic)
	if mon.HasErrors() {
		t.Fatalf("unexpected monitor errors: %+v", mon)
	}
	if len(clustersF) != 1 || len(clustersB) != 1 {
		t.Fatalf("expected 1 cluster per side, got front=%d back=%d", len(clustersF), len(clustersB))
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

// TestFindHits_MonsterEventGuard checks that exceeding the hit budget
// by more than 2x aborts the module with MonsterEventModules set,
// rather than growing the hit bucket without bound.
func TestFindHits_MonsterEventGuard(t *testing.T) {
	asic := testAsic()
	const nChannels = 256

	var front, back []digi.Digi
	for i := 0; i < 40; i++ {
		front = append(front, digi.Digi{
			Addr:   digi.NewAddress(digi.SystemSTS, 0, 0, uint32(2*i)),
			Time:   1000,
			Charge: 100,
		})
		back = append(back, digi.Digi{
			Addr:   digi.NewAddress(digi.SystemSTS, 0, 1, uint32(2*i)),
			Time:   1000,
			Charge: 100,
		})
	}

	param := digi.ModuleParam{
		NChannels:          nChannels,
		MaxClustersPerSide: 64,
		MaxHitsPerModule:   4, // deliberately tiny to trigger the guard
		Geometry: digi.Geometry{
			PadPitch:     1.0,
			SensorHeight: 1000,
			StereoAngleF: 0,
			StereoAngleB: radians(7.5),
		},
		TimeCutDigiAbs:    5,
		TimeCutClusterAbs: 1000, // wide open: every front/back pair matches
		ChargeDeltaCut:    0,
	}

	_, _, _, mon := FindHits(front, back, param, asic, asic)
	if mon.MonsterEventModules == 0 {
		t.Fatalf("expected monster-event guard to fire, got %+v", mon)
	}
}
