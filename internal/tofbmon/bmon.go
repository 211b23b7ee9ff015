package tofbmon

import (
	"fmt"
	"math"
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/recoerr"
)

// Diamond identifies one BMon diamond sensor: its address index (as
// extracted by SelectionMask) and its RPC-shaped calibration constants.
type Diamond struct {
	Index uint32
	Param digi.RpcParam
}

// BMonSetup configures a BMon hit finder: 1..N diamond references with
// an optional selection mask picking which address subfield encodes the
// diamond index. NewBMonFinder accepts a zero SelectionMask only with
// exactly one diamond, and a non-zero mask with one or more diamonds.
type BMonSetup struct {
	Diamonds     []Diamond
	SelectionMask uint32 // 0 => single-diamond mode
}

// BMonHit is a reconstructed BMon hit: one cluster of digis on a single
// diamond collapsed to a time and charge.
type BMonHit struct {
	DiamondIndex uint32
	Time         float64
	TimeError    float64
	Charge       float64
}

// BMonFinder is one instance per run. It validates the setup invariant,
// sorts diamonds by index, and allocates per-channel dead-time state.
type BMonFinder struct {
	setup     BMonSetup
	byIndex   map[uint32]int // diamond index -> position in sorted Diamonds
	deadTime  [][]float64    // per diamond, per channel
}

// NewBMonFinder validates BMonSetup and builds the diamond-index lookup
// and the per-diamond, per-channel dead-time vectors.
func NewBMonFinder(setup BMonSetup) (*BMonFinder, error) {
	if setup.SelectionMask == 0 && len(setup.Diamonds) != 1 {
		return nil, fmt.Errorf("%w: bmon: selection mask is zero but %d diamonds configured (need exactly 1)", recoerr.ErrConfig, len(setup.Diamonds))
	}
	if setup.SelectionMask != 0 && len(setup.Diamonds) == 0 {
		return nil, fmt.Errorf("%w: bmon: selection mask set but no diamonds configured", recoerr.ErrConfig)
	}

	sorted := append([]Diamond(nil), setup.Diamonds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	setup.Diamonds = sorted

	f := &BMonFinder{setup: setup, byIndex: make(map[uint32]int, len(sorted))}
	f.deadTime = make([][]float64, len(sorted))
	for i, d := range sorted {
		f.byIndex[d.Index] = i
		dt := make([]float64, len(d.Param.Channels))
		for c := range dt {
			dt[c] = math.NaN()
		}
		f.deadTime[i] = dt
	}
	return f, nil
}

// diamondIndex extracts the diamond index from a digi address using the
// configured selection mask, or 0 in single-diamond mode.
func (f *BMonFinder) diamondIndex(a digi.Address) uint32 {
	if f.setup.SelectionMask == 0 {
		return f.setup.Diamonds[0].Index
	}
	return uint32(a.Sensor()) & f.setup.SelectionMask
}

// FindHits distributes digis to their diamond bins and clusterizes each
// bin independently (one clusterizer instance per diamond, spec.md
// §4.3), returning hits partitioned by diamond address.
func (f *BMonFinder) FindHits(digis []digi.Digi) (*digi.PartitionedVector[BMonHit], error) {
	bins := make([][]digi.Digi, len(f.setup.Diamonds))
	for _, d := range digis {
		idx, ok := f.byIndex[f.diamondIndex(d.Addr)]
		if !ok {
			continue
		}
		bins[idx] = append(bins[idx], d)
	}

	var flat []BMonHit
	sizes := make([]int, len(bins))
	addrs := make([]uint64, len(bins))
	for i, bin := range bins {
		hits := f.clusterizeDiamond(i, bin)
		flat = append(flat, hits...)
		sizes[i] = len(hits)
		addrs[i] = uint64(f.setup.Diamonds[i].Index)
	}

	return digi.NewPartitionedVector(flat, sizes, addrs)
}

// clusterizeDiamond groups time-adjacent digis on one diamond into
// hits. Channels on a diamond share one dead-time array per channel;
// consecutive digis on the same channel within ChannelDeadTime are
// dropped exactly as in the TOF calibrator.
func (f *BMonFinder) clusterizeDiamond(diamondIdx int, bin []digi.Digi) []BMonHit {
	if len(bin) == 0 {
		return nil
	}
	param := f.setup.Diamonds[diamondIdx].Param
	dt := f.deadTime[diamondIdx]

	sort.Slice(bin, func(i, j int) bool { return bin[i].Time < bin[j].Time })

	var hits []BMonHit
	const clusterWindow = 5.0 // ns; digis closer than this on the diamond merge into one hit
	var cur []digi.Digi

	flush := func() {
		if len(cur) == 0 {
			return
		}
		var sumT, sumQ float64
		for _, d := range cur {
			sumT += d.Time
			sumQ += d.Charge
		}
		n := float64(len(cur))
		hits = append(hits, BMonHit{
			DiamondIndex: f.setup.Diamonds[diamondIdx].Index,
			Time:         sumT / n,
			TimeError:    1.0 / math.Sqrt(n),
			Charge:       sumQ,
		})
		cur = nil
	}

	for _, d := range bin {
		channel := int(d.Addr.Channel())
		if channel < len(dt) {
			prev := dt[channel]
			if !math.IsNaN(prev) && d.Time <= prev {
				dt[channel] = d.Time + param.ChannelDeadTime
				continue
			}
			dt[channel] = d.Time + param.ChannelDeadTime
		}

		if len(cur) > 0 && d.Time-cur[len(cur)-1].Time > clusterWindow {
			flush()
		}
		cur = append(cur, d)
	}
	flush()

	return hits
}
