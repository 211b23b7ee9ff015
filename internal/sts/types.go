// Package sts implements the STS heterogeneous cluster/hit finder
// (spec.md §4.4): a seven-stage pipeline operating per module side, with
// lock-free digi connection via CAS, fixed-capacity overflow-counted
// bucket arrays, and front/back strip matching into hits.
//
// Stage structure and constants are grounded on
// original_source/algo/detectors/sts/Hitfinder.h/.cxx. The Go
// implementation expresses each GPU "kernel" as a free function taking
// a moduleState context, the way spec.md §9 prescribes. FindHits runs
// once per module; internal/tsdriver calls it for each module in turn,
// and this package does not use internal/hitfinder.
package sts

// Side distinguishes the two sensor sides of an STS module.
type Side uint8

const (
	SideFront Side = iota
	SideBack
)

// FindHitsChunksPerModule is carried from the original source's
// kFindHitsChunksPerModule constant (algo/detectors/sts/Hitfinder.h).
// Nothing in this package reads it: matchModuleSide runs a module
// side's front-cluster loop in one piece, without chunking.
const FindHitsChunksPerModule = 16

// Cluster is one STS cluster, materialised by stage 4.
type Cluster struct {
	Side          Side
	Charge        float64
	Size          int
	Position      float64 // channel-weighted centroid; back side shifted by +NChannels
	PositionError float64
	Time          float64
	TimeError     float64
}

// ClusterIdx is the sortable (time, data index) pair from spec.md §3:
// kept in a separate array from the Cluster payload so sort bandwidth
// stays proportional to 8 bytes/element (stage 5).
type ClusterIdx struct {
	Time uint32
	Idx  uint32
}

// Hit is one reconstructed STS space point, from intersecting a front
// and a back cluster (stage 6).
type Hit struct {
	FrontClusterID int
	BackClusterID  int
	X, Y, Z        float64
	CovXY          [2][2]float64
	Time           float64
	TimeError      float64
	// Du, Dv are the projected position errors along the original
	// front/back strip directions, kept alongside the global XY
	// covariance for downstream track fits that work in strip
	// coordinates (Hitfinder::CreateHit.fDu/.fDv).
	Du, Dv float64
}

// Monitor carries per-module-side diagnostics, matching the glossary's
// "plain-old-data struct returned alongside every stage's output".
type Monitor struct {
	ClusterBucketOverflow int
	HitBucketOverflow     int
	MonsterEventModules   int
}

// HasErrors reports whether any overflow or monster-event guard fired,
// mirroring HitfinderMonDevice.HasErrors() in the original source.
func (m Monitor) HasErrors() bool {
	return m.ClusterBucketOverflow > 0 || m.HitBucketOverflow > 0 || m.MonsterEventModules > 0
}

