// Package trd2d implements the TRD-2D (FASP pad-plane) reconstructor
// (spec.md §4.5): a single-threaded, row-bucketed cluster/hit finder.
// Rows are processed one after another in a plain loop;
// internal/hitfinder is not used.
package trd2d

import "github.com/cbm-fles/tsreco/internal/digi"

// Plane distinguishes a FASP pad's two orthogonal readout channels.
type Plane uint8

const (
	PlaneT Plane = iota // time-projection ("tilted") plane
	PlaneR              // rectangular plane
)

// mergeTimeWindow is the add-digi extension window (spec.md §4.5
// "|startTime - digi.time| < 5 time units").
const mergeTimeWindow = 5.0

// adjacentMergeWindow/fragmentMergeWindow are the find-clusters merge
// thresholds: 20 time units normally, 50 for size-1 fragments.
const (
	adjacentMergeWindow = 20.0
	fragmentMergeWindow = 50.0
)

// Cluster is one row-local TRD-2D cluster fragment: a channel-range
// footprint growing over consecutive add-digi calls, per spec.md §3
// "Cluster (TRD)".
type Cluster struct {
	Row          int
	StartChannel int
	EndChannel   int // inclusive
	StartTime    float64
	LastActivity float64
	Charge       float64
	Digis        []digi.Digi
}

// size reports the cluster footprint width in channels.
func (c *Cluster) size() int { return c.EndChannel - c.StartChannel + 1 }

// Topology classifies a materialized cluster's channel footprint, per
// spec.md §4.5 make-hit ("{size-1 T/R, size-2 TR/RT, size-3 TRT/RTR
// symmetric or asymmetric, size->=4 generic}").
type Topology uint8

const (
	TopoSize1 Topology = iota
	TopoSize2
	TopoSize3Symmetric
	TopoSize3Asymmetric
	TopoGeneric
)

// Hit is one reconstructed TRD-2D space point.
type Hit struct {
	Row         int
	Topology    Topology
	X, Y, Z     float64
	SigmaX      float64
	SigmaY      float64
	Time        float64
	Energy      float64
	ClusterSize int
}

// Monitor carries per-module diagnostics.
type Monitor struct {
	ClustersBuilt int
	HitsBuilt     int
	HitsMerged    int
}

// ModuleParam carries the per-module geometry and SYS correction table
// used by MakeHit.
type ModuleParam struct {
	Geometry    digi.Geometry
	NumCols     int
	PadWidth    float64
	PadHeight   float64
	KeepWindow  float64   // time units a cluster stays open without new activity
	SysTable    []float64 // 50 bins, width 0.01 pad-widths, indexed by |dx|
	SysBinWidth float64
}
