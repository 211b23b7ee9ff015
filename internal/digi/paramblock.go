package digi

import "gonum.org/v1/gonum/mat"

// WalkTable is the (min, max, nBins) walk-correction lookup table used by
// TOF/BMon calibration (spec.md §4.2) and, with a different unit, the
// TRD-2D SYS position-correction table (spec.md §4.5).
type WalkTable struct {
	Min    float64
	Max    float64
	Bins   []float64 // len(Bins) == NBins
	NBins  int
}

// BinSize returns (Max-Min)/NBins, zero if NBins is zero.
func (w WalkTable) BinSize() float64 {
	if w.NBins == 0 {
		return 0
	}
	return (w.Max - w.Min) / float64(w.NBins)
}

// Geometry carries the module/RPC placement constants shared by every
// detector: translation, 3x3 rotation, pad pitch, stereo angles and an
// optional Lorentz shift (STS only).
type Geometry struct {
	Translation  [3]float64
	Rotation     *mat.Dense // 3x3, nil means identity
	PadPitch     float64
	SensorHeight float64 // sensor extent along the strip direction (dY)
	StereoAngleF float64 // front-side stereo angle, radians
	StereoAngleB float64 // back-side stereo angle, radians
	LorentzShiftF float64
	LorentzShiftB float64
}

// RotatePoint applies Translation + Rotation to a local-frame point,
// returning the global-frame coordinates. A nil Rotation is treated as
// identity.
func (g Geometry) RotatePoint(local [3]float64) [3]float64 {
	var out [3]float64
	if g.Rotation == nil {
		out = local
	} else {
		v := mat.NewVecDense(3, local[:])
		var r mat.VecDense
		r.MulVec(g.Rotation, v)
		out = [3]float64{r.AtVec(0), r.AtVec(1), r.AtVec(2)}
	}
	out[0] += g.Translation[0]
	out[1] += g.Translation[1]
	out[2] += g.Translation[2]
	return out
}

// ChannelParam holds the per-channel-side calibration constants for one
// TOF/BMon channel: time offset, ToT gain/offset, and walk table.
type ChannelParam struct {
	TimeOffset [2]float64 // per side
	TotOffset  [2]float64
	TotGain    [2]float64
	Walk       [2]WalkTable
}

// RpcParam is the per-RPC (or per-diamond, for BMon) parameter block:
// spec.md §3 "Module/RPC parameter block". Immutable for the run.
type RpcParam struct {
	Channels         []ChannelParam
	ChannelDeadTime  float64 // ns
	DeadStripMask    []bool
	SwapChannelSides bool
	TOTMin, TOTMax   float64
	NumWalkBinsX     int
	Geometry         Geometry
}

// ModuleParam is the per-module STS/TRD parameter block: bucket
// capacities, channel count, and geometry. Immutable for the run.
type ModuleParam struct {
	NChannels          int
	MaxClustersPerSide int
	MaxHitsPerModule   int
	Geometry           Geometry
	TimeCutDigiAbs     float64
	TimeCutDigiSig     float64
	TimeCutClusterAbs  float64
	TimeCutClusterSig  float64
	ChargeDeltaCut     float64 // <=0 disables charge-correlation cut
	DigiTimeSigma      float64 // sigma_t, single-digi time resolution
}
