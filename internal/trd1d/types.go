// Package trd1d implements the TRD-1D (single-ended strip readout)
// reconstructor (spec.md §4.6): a row/module-parallel clusterizer using
// main-trigger/neighbour-trigger logic, stitched via internal/hitfinder's
// generic fan-out + prefix-sum pattern.
package trd1d

import "github.com/cbm-fles/tsreco/internal/digi"

// Cluster is one row-local TRD-1D cluster, per spec.md §3 "Cluster
// (TRD)": a contiguous channel-range footprint built from a
// self-triggered core optionally bounded by neighbour-triggered edge
// digis.
type Cluster struct {
	Row          int
	StartChannel int
	EndChannel   int
	StartTime    float64
	Digis        []digi.Digi
	// ClosedLeft/ClosedRight record whether this side already absorbed
	// a neighbour-triggered terminator digi and so must not be
	// extended further by the row-merge pass.
	ClosedLeft  bool
	ClosedRight bool
}

// Hit is one reconstructed TRD-1D space point.
type Hit struct {
	Row       int
	X, Y, Z   float64
	Time      float64
	Charge    float64
	ClusterSz int
}

// Monitor carries per-module diagnostics.
type Monitor struct {
	ClustersBuilt int
	HitsBuilt     int
	RowMerges     int
}

// ModuleParam carries per-module geometry and the row-merge time
// window (spec.md §4.6 leaves the exact numeric threshold to the
// implementation: see DESIGN.md's open-question entry for this
// package).
type ModuleParam struct {
	Geometry    digi.Geometry
	NumCols     int
	PadWidth    float64
	RowMergeDt  float64
}
