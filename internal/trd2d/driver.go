package trd2d

import (
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// bucketByRow splits one module's digis into per-row slices using the
// same row = channel / numCols addressing trd1d uses, then sorts each
// row by time so add-digi sees activity in arrival order.
func bucketByRow(digis []digi.Digi, numRows, numCols int) [][]digi.Digi {
	rows := make([][]digi.Digi, numRows)
	for _, d := range digis {
		row := int(d.Addr.Channel()) / numCols
		if row < 0 || row >= numRows {
			continue
		}
		rows[row] = append(rows[row], d)
	}
	for _, r := range rows {
		sort.Slice(r, func(i, j int) bool { return r[i].Time < r[j].Time })
	}
	return rows
}

// FindHits runs the full TRD-2D pipeline for one module: single-threaded,
// row-bucketed (spec.md §4.5 "Single-threaded per module; row-bucketed"),
// unlike TRD-1D/STS's worker-pool fan-out. Rows are clustered and hit-built
// in row order, then merged with neighbouring rows in two even/odd sweeps,
// the same sweep structure original_source/algo/detectors/trd/Hitfind.cxx
// uses for its HitMerger2D pass.
func FindHits(digis []digi.Digi, numRows int, p ModuleParam) ([]Hit, Monitor) {
	rowDigis := bucketByRow(digis, numRows, p.NumCols)

	var tsEnd float64
	for _, d := range digis {
		if d.Time > tsEnd {
			tsEnd = d.Time
		}
	}
	tsEnd += p.KeepWindow + 1 // force every cluster closed: this is a full-timeslice batch pass

	var mon Monitor
	clustersByRow := make([][]Cluster, numRows)
	for i := 0; i < numRows; i++ {
		var rowClusters []Cluster
		for _, d := range rowDigis[i] {
			AddDigi(&rowClusters, i, d)
		}
		_, closed := FindClusters(rowClusters, tsEnd, p.KeepWindow)
		clustersByRow[i] = closed
		mon.ClustersBuilt += len(closed)
	}

	hitsByRow := make([][]Hit, numRows)
	for i := 0; i < numRows; i++ {
		hits := make([]Hit, 0, len(clustersByRow[i]))
		for _, c := range clustersByRow[i] {
			hits = append(hits, MakeHit(c, p))
		}
		hitsByRow[i] = hits
		mon.HitsBuilt += len(hits)
	}

	for r := 0; r+1 < numRows; r += 2 {
		a, b := PostProcess(hitsByRow[r], hitsByRow[r+1], p.PadWidth, p.PadHeight)
		mon.HitsMerged += len(hitsByRow[r+1]) - len(b)
		hitsByRow[r], hitsByRow[r+1] = a, b
	}
	for r := 1; r+1 < numRows; r += 2 {
		a, b := PostProcess(hitsByRow[r], hitsByRow[r+1], p.PadWidth, p.PadHeight)
		mon.HitsMerged += len(hitsByRow[r+1]) - len(b)
		hitsByRow[r], hitsByRow[r+1] = a, b
	}

	var flat []Hit
	for _, rh := range hitsByRow {
		flat = append(flat, rh...)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].Time < flat[j].Time })
	return flat, mon
}
