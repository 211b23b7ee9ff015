// Package tofbmon implements the TOF/BMon dead-time filter, time/ToT
// calibration and walk correction (spec.md §4.2), and BMon hit finding
// (spec.md §4.3).
//
// Exact operation order (dead-time check before offset subtraction,
// insertion sort restoring time order at the end) is grounded on
// original_source/algo/detectors/tof/Calibrate.cxx.
package tofbmon

import (
	"math"
	"time"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// Setup describes the RPC table the calibrator is constructed against:
// NbSm/NbRpc per super-module type, and the per-(type,sm,rpc) parameter
// block.
type Setup struct {
	NbSm  []int // per SmType
	NbRpc []int // per SmType
	Rpcs  [][]digi.RpcParam // Rpcs[smType][sm*NbRpc[smType]+rpc]
}

// Monitor carries per-timeslice diagnostics for one calibration pass,
// per spec.md §4.2 and the Monitor glossary entry: the single source of
// truth for a stage's counters, never an exception.
type Monitor struct {
	Processed         int
	DroppedUnknownRPC int
	DroppedDeadtime   int
	WallTime          time.Duration
	Bytes             int64
}

// Calibrator is one instance per run, built once from Setup and reused
// across timeslices. Per-channel dead-time state is reset at the start
// of every calibration pass (Calibrate.cxx clears mChannelDeadTime at
// the top of operator()).
type Calibrator struct {
	setup Setup

	smTypeOffset []int
	smOffset     []int
	rpcOffset    []int

	deadTime []float64 // NaN-initialised, indexed by channel-side index
}

// NewCalibrator precomputes the (smType, sm, rpc) -> channel-range offset
// table and allocates the per-channel-side dead-time array.
func NewCalibrator(setup Setup) *Calibrator {
	c := &Calibrator{setup: setup}
	c.smTypeOffset = []int{0}
	c.smOffset = []int{0}
	c.rpcOffset = []int{0}

	for smType := 0; smType < len(setup.NbSm); smType++ {
		nbSm := setup.NbSm[smType]
		nbRpc := setup.NbRpc[smType]
		c.smTypeOffset = append(c.smTypeOffset, c.smTypeOffset[len(c.smTypeOffset)-1]+nbSm)
		for sm := 0; sm < nbSm; sm++ {
			c.smOffset = append(c.smOffset, c.smOffset[len(c.smOffset)-1]+nbRpc)
			for rpc := 0; rpc < nbRpc; rpc++ {
				nbChan := len(setup.Rpcs[smType][sm*nbRpc+rpc].Channels)
				c.rpcOffset = append(c.rpcOffset, c.rpcOffset[len(c.rpcOffset)-1]+2*nbChan) // factor 2 for channel sides
			}
		}
	}

	c.deadTime = make([]float64, c.rpcOffset[len(c.rpcOffset)-1])
	for i := range c.deadTime {
		c.deadTime[i] = math.NaN()
	}
	return c
}

// Calibrate runs one pass over a time-sorted span of raw digis, per
// spec.md §4.2 steps 1-5. The returned slice is independently allocated
// and may be shorter than digiIn if digis were dropped.
func (c *Calibrator) Calibrate(digiIn []digi.Digi) ([]digi.Digi, Monitor) {
	start := time.Now()

	var mon Monitor
	out := make([]digi.Digi, 0, len(digiIn))

	for i := range c.deadTime {
		c.deadTime[i] = math.NaN()
	}

	for _, d := range digiIn {
		smType, sm, rpc, side, channel := Decode(d.Addr)

		if int(smType) >= len(c.setup.NbRpc) {
			mon.DroppedUnknownRPC++
			continue
		}
		nbRpc := c.setup.NbRpc[smType]
		rpcIdx := int(sm)*nbRpc + int(rpc)
		if rpcIdx >= len(c.setup.Rpcs[smType]) {
			mon.DroppedUnknownRPC++
			continue
		}
		rpcPar := c.setup.Rpcs[smType][rpcIdx]
		if int(channel) >= len(rpcPar.Channels) {
			mon.DroppedUnknownRPC++
			continue
		}
		chanPar := rpcPar.Channels[channel]

		chanIdx := c.rpcOffset[c.smOffset[c.smTypeOffset[smType]+int(sm)]+int(rpc)] + int(channel) + int(side)*len(rpcPar.Channels)

		dt := c.deadTime[chanIdx]
		if !math.IsNaN(dt) && d.Time <= dt {
			// Extend the blocking window even on rejected pulses: real
			// front-end electronics keep retriggering their dead-time
			// counter, they don't just ignore the pulse.
			c.deadTime[chanIdx] = d.Time + rpcPar.ChannelDeadTime
			mon.DroppedDeadtime++
			continue
		}
		c.deadTime[chanIdx] = d.Time + rpcPar.ChannelDeadTime

		cal := d

		// Two TOF super-module types (5, 8) are exempt from the channel
		// side swap. No documented rationale in the source; kept as-is
		// per spec.md's Open Questions.
		outSide := side
		if rpcPar.SwapChannelSides && smType != 5 && smType != 8 {
			if side == 0 {
				outSide = 1
			} else {
				outSide = 0
			}
			cal.Addr = Address(smType, sm, rpc, outSide, channel)
		}

		cal.Time = cal.Time - chanPar.TimeOffset[side]
		tot := math.Max(cal.Charge-chanPar.TotOffset[side], 0.001)
		cal.Charge = tot * chanPar.TotGain[side]

		cal.Time -= walkCorrection(chanPar.Walk[side], rpcPar.TOTMin, rpcPar.TOTMax, rpcPar.NumWalkBinsX, cal.Charge)

		mon.Processed++
		out = append(out, cal)
	}

	// Insertion sort restores non-decreasing time order: offsets applied
	// above are small relative to typical digi spacing, so input stays
	// nearly sorted and insertion sort beats a general comparison sort.
	insertionSortByTime(out)

	mon.WallTime = time.Since(start)
	mon.Bytes = int64(len(digiIn)) * int64(digiSize)
	return out, mon
}

// walkCorrection implements spec.md §4.2 step 4: clamp to the bin range,
// read w[iW], and linearly interpolate toward the neighbouring bin.
func walkCorrection(w digi.WalkTable, totMin, totMax float64, nBins int, tot float64) float64 {
	if nBins == 0 || len(w.Bins) == 0 {
		return 0
	}
	binSize := (totMax - totMin) / float64(nBins)
	if binSize == 0 {
		return 0
	}
	frac := (tot - totMin) / binSize
	iW := int(frac)
	if iW < 0 {
		iW = 0
	}
	if iW > nBins-1 {
		iW = nBins - 1
	}

	d := frac - float64(iW) - 0.5
	wt := w.Bins[iW]
	if d > 0 {
		if iW < nBins-1 {
			wt += d * (w.Bins[iW+1] - w.Bins[iW])
		}
	} else if d < 0 {
		if iW > 0 {
			wt -= d * (w.Bins[iW-1] - w.Bins[iW])
		}
	}
	return wt
}

// insertionSortByTime sorts in place, ascending by Time. Chosen over a
// general comparison sort because the input is nearly time-ordered
// after calibration (spec.md §4.2 step 5).
func insertionSortByTime(d []digi.Digi) {
	for i := 1; i < len(d); i++ {
		v := d[i]
		j := i
		for j > 0 && d[j-1].Time > v.Time {
			d[j] = d[j-1]
			j--
		}
		d[j] = v
	}
}

const digiSize = 32 // bytes, approximate wire size of one digi.Digi
