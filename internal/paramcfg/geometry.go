package paramcfg

import "gonum.org/v1/gonum/mat"

// rotationMatrix builds a 3x3 row-major rotation matrix from a flattened
// JSON array.
func rotationMatrix(flat [9]float64) *mat.Dense {
	return mat.NewDense(3, 3, flat[:])
}
