package trd2d

import "math"

// mergeablePair implements spec.md §4.5 post-process's topological
// predicate: a charge-ratio window and a charge-asymmetry window, on
// top of the positional/timing gates already checked by the caller.
func mergeablePair(a, b Hit) bool {
	if a.Energy == 0 || b.Energy == 0 {
		return false
	}
	ratio := a.Energy / b.Energy
	if ratio < 0.2 || ratio > 5.0 {
		return false
	}
	asym := math.Abs(a.Energy-b.Energy) / (a.Energy + b.Energy)
	return asym < 0.8
}

// PostProcess implements spec.md §4.5 post-process: merges
// neighbouring-row hits whose position/time gates and topological
// predicate all hold. The surviving hit (the one with larger energy)
// absorbs the other; absorbed hits are dropped from rowB's output.
func PostProcess(rowA, rowB []Hit, padWidth, padHeight float64) ([]Hit, []Hit) {
	usedB := make([]bool, len(rowB))
	for i := range rowA {
		for j := range rowB {
			if usedB[j] {
				continue
			}
			a, b := &rowA[i], &rowB[j]
			dy := math.Abs(a.Y - b.Y)
			dx := math.Abs(a.X - b.X)
			dt := b.Time - a.Time
			if dt < 0 {
				dt = -dt
			}
			if dy >= 2*padHeight || dx >= 2*padWidth {
				continue
			}
			if dt <= 4000 || dt >= 10000 {
				continue
			}
			if !mergeablePair(*a, *b) {
				continue
			}
			if b.Energy > a.Energy {
				*a = *b
			}
			usedB[j] = true
		}
	}

	out := rowB[:0]
	for j, h := range rowB {
		if !usedB[j] {
			out = append(out, h)
		}
	}
	return rowA, out
}
