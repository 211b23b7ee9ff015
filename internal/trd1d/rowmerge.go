package trd1d

import "math"

// mergeableRows reports whether cluster a (row r) and cluster b (row
// r+1) should be merged into one: their channel footprints overlap or
// touch and their start times differ by at most dt. A pair is refused
// outright only when both clusters are closed on both sides.
//
// spec.md §4.6 specifies the two-sweep even/odd row-merge structure
// but, like the upstream HitMerger this package stands in for, leaves
// the exact geometric/time gate to the implementation — see
// DESIGN.md's open-question entry for the chosen RowMergeDt window.
func mergeableRows(a, b Cluster, dt float64) bool {
	if a.ClosedLeft && a.ClosedRight && b.ClosedLeft && b.ClosedRight {
		return false
	}
	overlap := a.StartChannel <= b.EndChannel+1 && b.StartChannel <= a.EndChannel+1
	if !overlap {
		return false
	}
	return math.Abs(a.StartTime-b.StartTime) <= dt
}

func mergeRowsInto(a *Cluster, b Cluster) {
	if b.StartChannel < a.StartChannel {
		a.StartChannel = b.StartChannel
	}
	if b.EndChannel > a.EndChannel {
		a.EndChannel = b.EndChannel
	}
	if b.StartTime < a.StartTime {
		a.StartTime = b.StartTime
	}
	a.Digis = append(a.Digis, b.Digis...)
}

// MergeRowPair implements one sweep of spec.md §4.6's row-merging: rowA
// and rowB are adjacent rows (either an even/odd or odd/even pair
// depending on the sweep), each already clusterized independently.
// Mergeable pairs are folded into rowA's cluster and dropped from rowB.
func MergeRowPair(rowA, rowB []Cluster, dt float64) (mergedA, mergedB []Cluster, nMerged int) {
	usedB := make([]bool, len(rowB))
	for i := range rowA {
		for j := range rowB {
			if usedB[j] {
				continue
			}
			if mergeableRows(rowA[i], rowB[j], dt) {
				mergeRowsInto(&rowA[i], rowB[j])
				usedB[j] = true
				nMerged++
			}
		}
	}
	out := rowB[:0]
	for j, c := range rowB {
		if !usedB[j] {
			out = append(out, c)
		}
	}
	return rowA, out, nMerged
}
