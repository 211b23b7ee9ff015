package sts

import (
	"math"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// hitfinderCache mirrors HitfinderCache in
// original_source/algo/detectors/sts/Hitfinder.cxx: geometry constants
// precomputed once per module rather than per cluster pair.
type hitfinderCache struct {
	dY, dX                 float64
	pitch                  float64
	stereoF, stereoB       float64
	lorentzF, lorentzB     float64
	tanStereoF, tanStereoB float64
	errorFac               float64
}

func newHitfinderCache(geom digi.Geometry, nChannels int) hitfinderCache {
	tanF := math.Tan(geom.StereoAngleF)
	tanB := math.Tan(geom.StereoAngleB)
	diff := tanB - tanF
	var errorFac float64
	if diff != 0 {
		errorFac = 1.0 / (diff * diff)
	}
	return hitfinderCache{
		dY:         geom.SensorHeight,
		dX:         float64(nChannels) * geom.PadPitch,
		pitch:      geom.PadPitch,
		stereoF:    geom.StereoAngleF,
		stereoB:    geom.StereoAngleB,
		lorentzF:   geom.LorentzShiftF,
		lorentzB:   geom.LorentzShiftB,
		tanStereoF: tanF,
		tanStereoB: tanB,
		errorFac:   errorFac,
	}
}

// clusterPosition converts a cluster's channel-space centroid into the
// sensor-local strip coordinate, subtracting the Lorentz shift, per
// Hitfinder::GetClusterPosition.
func clusterPosition(c hitfinderCache, centroid float64, isFront bool, nChannels int) float64 {
	iChannel := math.Floor(centroid)
	xDiff := centroid - iChannel
	iStrip := iChannel
	if !isFront {
		iStrip -= float64(nChannels)
	}
	x := (iStrip + xDiff + 0.5) * c.pitch
	if isFront {
		x -= c.lorentzF
	} else {
		x -= c.lorentzB
	}
	return x
}

// intersect solves for the line intersection of a front and back strip
// pair, per Hitfinder::Intersect. Returns ok=false when the resulting
// point falls outside the sensor's active area.
func intersect(c hitfinderCache, xF, exF, xB, exB float64) (x, y, varX, varY, varXY float64, ok bool) {
	if math.Abs(c.stereoF-c.stereoB) < radians(0.5) {
		return 0, 0, 0, 0, 0, false
	}

	if math.Abs(c.stereoF) < radians(0.001) {
		x = xF
		y = c.dY - (xF-xB)/c.tanStereoB
		varX = exF * exF
		varY = (exF*exF + exB*exB) / (c.tanStereoB * c.tanStereoB)
		varXY = -1.0 * exF * exF / c.tanStereoB
		return x, y, varX, varY, varXY, isInside(c, x-c.dX/2, y-c.dY/2)
	}

	if math.Abs(c.stereoB) < radians(0.001) {
		x = xB
		y = c.dY - (xB-xF)/c.tanStereoF
		varX = exB * exB
		varY = (exF*exF + exB*exB) / (c.tanStereoF * c.tanStereoF)
		varXY = -1.0 * exB * exB / c.tanStereoF
		return x, y, varX, varY, varXY, isInside(c, x-c.dX/2, y-c.dY/2)
	}

	x = (c.tanStereoB*xF - c.tanStereoF*xB) / (c.tanStereoB - c.tanStereoF)
	y = c.dY + (xB-xF)/(c.tanStereoB-c.tanStereoF)
	varX = c.errorFac * (exF*exF*c.tanStereoB*c.tanStereoB + exB*exB*c.tanStereoF*c.tanStereoF)
	varY = c.errorFac * (exF*exF + exB*exB)
	varXY = -1.0 * c.errorFac * (exF*exF*c.tanStereoB + exB*exB*c.tanStereoF)
	return x, y, varX, varY, varXY, isInside(c, x-c.dX/2, y-c.dY/2)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func isInside(c hitfinderCache, x, y float64) bool {
	return x >= -c.dX/2 && x <= c.dX/2 && y >= -c.dY/2 && y <= c.dY/2
}

// matchModuleSide implements stage 6 (spec.md §4.4): intersects every
// front cluster with every back cluster inside the other's time
// window, filtering by charge correlation and a cluster-level time cut,
// materializing a Hit per surviving geometric intersection (accounting
// for horizontal cross-connection wraps). Grounded exactly on
// Hitfinder::ProcessClustersKernel / IntersectClusters / CreateHit.
func matchModuleSide(
	clusterIdxF, clusterIdxB []ClusterIdx,
	clusterDataF, clusterDataB []Cluster,
	maxTerrF, maxTerrB float64,
	nChannels int,
	geom digi.Geometry,
	param digi.ModuleParam,
	hitBucket *Bucket[Hit],
) (hitsWritten int, overflow int, monsterEvent bool) {
	nClustersF, nClustersB := len(clusterIdxF), len(clusterIdxB)
	if nClustersF == 0 || nClustersB == 0 {
		return 0, 0, false
	}
	cache := newHitfinderCache(geom, nChannels)
	doChargeCorrelation := param.ChargeDeltaCut > 0

	timeDiff := func(f, b ClusterIdx) float64 { return float64(int64(f.Time) - int64(b.Time)) }

	maxSigmaBoth := 4 * math.Sqrt(maxTerrF*maxTerrF+maxTerrB*maxTerrB)

	startB := 0
	for iF := 0; iF < nClustersF; iF++ {
		// Memory-limit guard (Hitfinder::ProcessClustersKernel): abort
		// the whole module side once combinatorics run away, rather
		// than keep writing into an already-overflowing bucket. Uses
		// the bucket's raw attempt count, not the successfully-written
		// tally, since a full bucket alone must not mask runaway
		// combinatorics.
		if hitBucket.Attempted() > 2*param.MaxHitsPerModule {
			return hitsWritten, overflow, true
		}
		idxF := clusterIdxF[iF]
		clsF := clusterDataF[idxF.Idx]
		maxSigma := 4 * math.Sqrt(clsF.TimeError*clsF.TimeError+maxTerrB*maxTerrB)

		for iB := startB; iB < nClustersB; iB++ {
			idxB := clusterIdxB[iB]
			clsB := clusterDataB[idxB.Idx]

			td := timeDiff(idxF, idxB)
			if td > 0 && td > maxSigmaBoth {
				startB++
				continue
			} else if td > 0 && td > maxSigma {
				continue
			} else if td < 0 && math.Abs(td) > maxSigma {
				break
			}

			if doChargeCorrelation {
				if math.Abs(clsF.Charge-clsB.Charge) > param.ChargeDeltaCut {
					continue
				}
			}

			timeCut := -1.0
			if param.TimeCutClusterAbs > 0 {
				timeCut = param.TimeCutClusterAbs
			} else if param.TimeCutClusterSig > 0 {
				timeCut = param.TimeCutClusterSig * math.Sqrt(clsF.TimeError*clsF.TimeError+clsB.TimeError*clsB.TimeError)
			}
			if math.Abs(td) > timeCut {
				continue
			}

			n, ovf := intersectClusters(cache, nChannels, idxF, clsF, idxB, clsB, geom, hitBucket)
			hitsWritten += n
			overflow += ovf
		}
	}
	return hitsWritten, overflow, false
}

// intersectClusters mirrors Hitfinder::IntersectClusters: it accounts
// for the fact that a strip's line may cross the sensor's horizontal
// edges more than once (horizontal cross-connection), trying every
// relevant wrap of both front and back lines.
func intersectClusters(c hitfinderCache, nChannels int, idxF ClusterIdx, clsF Cluster, idxB ClusterIdx, clsB Cluster, geom digi.Geometry, hitBucket *Bucket[Hit]) (written, overflow int) {
	xF := clusterPosition(c, clsF.Position, true, nChannels)
	exF := clsF.PositionError * c.pitch
	du := exF * math.Cos(c.stereoF)
	xB := clusterPosition(c, clsB.Position, false, nChannels)
	exB := clsB.PositionError * c.pitch
	dv := exB * math.Cos(c.stereoB)

	if xF < 0 || xF > c.dX || xB < 0 || xB > c.dX {
		return 0, 0
	}

	nF := int(math.Floor((xF + c.dY*c.tanStereoF) / c.dX))
	nB := int(math.Floor((xB + c.dY*c.tanStereoB) / c.dX))

	nF1, nF2 := minInt(0, nF), maxInt(0, nF)
	nB1, nB2 := minInt(0, nB), maxInt(0, nB)

	for iF := nF1; iF <= nF2; iF++ {
		xFi := xF - float64(iF)*c.dX
		for iB := nB1; iB <= nB2; iB++ {
			xBi := xB - float64(iB)*c.dX

			x, y, varX, varY, varXY, ok := intersect(c, xFi, exF, xBi, exB)
			if !ok {
				continue
			}

			xC := x - 0.5*c.dX
			yC := y - 0.5*c.dY

			hit := buildHit(geom, xC, yC, varX, varY, varXY, idxF, clsF, idxB, clsB, du, dv)
			if _, ok := hitBucket.Insert(hit); !ok {
				overflow++
				continue
			}
			written++
		}
	}
	return written, overflow
}

func buildHit(geom digi.Geometry, xLocal, yLocal, varX, varY, varXY float64, idxF ClusterIdx, clsF Cluster, idxB ClusterIdx, clsB Cluster, du, dv float64) Hit {
	global := geom.RotatePoint([3]float64{xLocal, yLocal, 0})

	hitTime := 0.5 * (float64(idxF.Time) + float64(idxB.Time))
	hitTimeError := 0.5 * math.Sqrt(clsF.TimeError*clsF.TimeError+clsB.TimeError*clsB.TimeError)

	return Hit{
		FrontClusterID: int(idxF.Idx),
		BackClusterID:  int(idxB.Idx),
		X:              global[0],
		Y:              global[1],
		Z:              global[2],
		CovXY:          [2][2]float64{{varX, varXY}, {varXY, varY}},
		Time:           hitTime,
		TimeError:      hitTimeError,
		Du:             du,
		Dv:             dv,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
