package trd1d

import (
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/hitfinder"
)

// bucketByRow splits one module's digis into per-row slices, the same
// `row = channel / numCols` addressing
// original_source/algo/detectors/trd/Hitfind.cxx uses.
func bucketByRow(digis []digi.Digi, numRows, numCols int) [][]digi.Digi {
	rows := make([][]digi.Digi, numRows)
	for _, d := range digis {
		row := int(d.Addr.Channel()) / numCols
		if row < 0 || row >= numRows {
			continue
		}
		rows[row] = append(rows[row], d)
	}
	return rows
}

// MakeHit reduces a surviving cluster to a single hit: charge centroid
// for X, row-derived Y, charge-weighted mean time.
func MakeHit(c Cluster, p ModuleParam) Hit {
	var qSum, wxSum, wtSum float64
	for _, d := range c.Digis {
		qSum += d.Charge
		wxSum += d.Charge * float64(d.Addr.Channel())
		wtSum += d.Charge * d.Time
	}
	var x, t float64
	if qSum > 0 {
		x = wxSum / qSum
		t = wtSum / qSum
	} else {
		x = 0.5 * float64(c.StartChannel+c.EndChannel)
	}

	local := [3]float64{(x - float64(p.NumCols)/2) * p.PadWidth, float64(c.Row) * p.PadWidth, 0}
	global := p.Geometry.RotatePoint(local)

	return Hit{
		Row:       c.Row,
		X:         global[0],
		Y:         global[1],
		Z:         global[2],
		Time:      t,
		Charge:    qSum,
		ClusterSz: c.EndChannel - c.StartChannel + 1,
	}
}

// FindHits runs the full TRD-1D pipeline for one module (spec.md §4.6):
// per-row clusterizing (fanned out across a worker pool), two
// even/odd row-merge sweeps, and hit building, with final results
// stitched into a flat slice via the shared prefix-sum pattern.
func FindHits(digis []digi.Digi, numRows int, p ModuleParam) ([]Hit, Monitor) {
	rows := bucketByRow(digis, numRows, p.NumCols)

	clustersByRow := hitfinder.FanOut(numRows, func(i int) []Cluster {
		return ClusterizeRow(i, rows[i])
	})

	var mon Monitor
	for _, rc := range clustersByRow {
		mon.ClustersBuilt += len(rc)
	}

	// Even-row sweep: (0,1), (2,3), ...
	for r := 0; r+1 < numRows; r += 2 {
		a, b, n := MergeRowPair(clustersByRow[r], clustersByRow[r+1], p.RowMergeDt)
		clustersByRow[r], clustersByRow[r+1] = a, b
		mon.RowMerges += n
	}
	// Odd-row sweep: (1,2), (3,4), ...
	for r := 1; r+1 < numRows; r += 2 {
		a, b, n := MergeRowPair(clustersByRow[r], clustersByRow[r+1], p.RowMergeDt)
		clustersByRow[r], clustersByRow[r+1] = a, b
		mon.RowMerges += n
	}

	hitFragments := hitfinder.FanOut(numRows, func(i int) []Hit {
		hits := make([]Hit, 0, len(clustersByRow[i]))
		for _, c := range clustersByRow[i] {
			hits = append(hits, MakeHit(c, p))
		}
		return hits
	})

	flat, _ := hitfinder.Stitch(hitFragments)
	mon.HitsBuilt = len(flat)

	// Hits within a module are expected non-decreasing in time
	// (spec.md §8 invariant family); row-parallel construction does not
	// guarantee this, so a final sort restores it.
	sort.Slice(flat, func(i, j int) bool { return flat[i].Time < flat[j].Time })
	return flat, mon
}
