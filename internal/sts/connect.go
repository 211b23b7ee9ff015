package sts

import (
	"math"
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// digiTimeCut returns DeltaT = max(timeCutDigiAbs, timeCutDigiSig *
// sqrt(2) * sigma_t), per spec.md §4.4 stage 3.
func digiTimeCut(p digi.ModuleParam) float64 {
	sig := p.TimeCutDigiSig * math.Sqrt2 * p.DigiTimeSigma
	if p.TimeCutDigiAbs > sig {
		return p.TimeCutDigiAbs
	}
	return sig
}

// connectDigis implements stage 3 (spec.md §4.4): for every digi d on
// channel c, binary-search channel c+1's time-sorted slice for the
// first digi not earlier than d.Time-DeltaT, then walk forward until a
// digi within +/-DeltaT is found (connect) or the window is exceeded
// (stop). Connection uses TryConnect so at most one link per pair of
// digis survives regardless of which thread observes it first; here,
// since connection attempts are independent per owner digi, a single
// pass suffices and TryConnect's CAS discipline is preserved for
// parity with the concurrent original.
func connectDigis(digis []digi.Digi, connectors []Connector, offsets []int, nChannels int, deltaT float64) {
	for i, d := range digis {
		ch := int(d.Addr.Channel())
		if ch+1 >= nChannels {
			continue
		}
		lo, hi := offsets[ch+1], offsets[ch+2]
		if lo >= hi {
			continue
		}
		slice := digis[lo:hi]

		start := sort.Search(len(slice), func(k int) bool { return slice[k].Time >= d.Time-deltaT })
		for k := start; k < len(slice); k++ {
			peerTime := slice[k].Time
			if peerTime > d.Time+deltaT {
				break // exceeded window: stop
			}
			if TryConnect(&connectors[i], &connectors[lo+k], lo+k) {
				break // first successful match only
			}
		}
	}
}
