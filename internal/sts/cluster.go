package sts

import (
	"math"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// materializeClusters implements stage 4 (spec.md §4.4): each digi that
// has no predecessor is a cluster head; size-1/2/>=3 clusters use the
// three distinct closed-form formulas below, grounded exactly on
// original_source/algo/detectors/sts/Hitfinder.cxx
// (CreateClusterFromConnectors{1,2,N}).
//
// side selects the +nChannels position shift for back-side clusters.
// The returned count is the number of clusters that couldn't fit in
// bucket (the caller adds it to Monitor.ClusterBucketOverflow); maxTimeError accumulates the module side's
// atomic running maximum cluster timing error, consumed by stage 6.
func materializeClusters(digis []digi.Digi, connectors []Connector, side Side, nChannels int, asic AsicParams, bucket *Bucket[Cluster], maxTimeError *AtomicMaxFloat64) int {
	overflow := 0
	for i := range digis {
		if connectors[i].HasPrevious() {
			continue // not a cluster head
		}
		next, hasNext := connectors[i].Next()
		if !hasNext {
			cl := clusterSize1(digis[i], side, nChannels, asic)
			maxTimeError.Update(cl.TimeError)
			if _, ok := bucket.Insert(cl); !ok {
				overflow++
			}
			continue
		}
		if _, hasNext2 := connectors[next].Next(); !hasNext2 {
			cl := clusterSize2(digis[i], digis[next], side, nChannels, asic)
			maxTimeError.Update(cl.TimeError)
			if _, ok := bucket.Insert(cl); !ok {
				overflow++
			}
			continue
		}
		cl := clusterSizeN(digis, connectors, i, side, nChannels, asic)
		maxTimeError.Update(cl.TimeError)
		if _, ok := bucket.Insert(cl); !ok {
			overflow++
		}
	}
	return overflow
}

func sidePosition(x float64, side Side, nChannels int) float64 {
	if side == SideBack {
		return x + float64(nChannels)
	}
	return x
}

func clusterSize1(d digi.Digi, side Side, nChannels int, asic AsicParams) Cluster {
	return Cluster{
		Side:          side,
		Charge:        asic.AdcToCharge(d.Charge),
		Size:          1,
		Position:      sidePosition(float64(d.Addr.Channel()), side, nChannels),
		PositionError: 1.0 / math.Sqrt(24),
		Time:          d.Time,
		TimeError:     asic.TimeResolution,
	}
}

func clusterSize2(d1, d2 digi.Digi, side Side, nChannels int, asic AsicParams) Cluster {
	eNoiseSq := asic.Noise * asic.Noise
	chargePerAdc := asic.DynamicRange / float64(asic.NAdc)
	eDigitSq := chargePerAdc * chargePerAdc / 12.0

	x1 := float64(d1.Addr.Channel())
	q1 := asic.AdcToCharge(d1.Charge)
	q2 := asic.AdcToCharge(d2.Charge)

	if d1.Addr.Channel() > d2.Addr.Channel() {
		x1 -= float64(nChannels)
	}

	width1 := asic.LandauWidth(q1)
	eq1sq := width1*width1 + eNoiseSq + eDigitSq
	width2 := asic.LandauWidth(q2)
	eq2sq := width2*width2 + eNoiseSq + eDigitSq

	time := 0.5 * (d1.Time + d2.Time)
	timeError := asic.TimeResolution * 0.70710678 // 1/sqrt(2)

	x := x1 + 0.5 + (q2-q1)/3.0/math.Max(q1, q2)
	if x < -0.5 {
		x += float64(nChannels)
	}

	var ex0sq, ex1sq, ex2sq float64
	if q1 < q2 {
		ex0sq = (q2 - q1) * (q2 - q1) / q2 / q2 / 72.0
		ex1sq = eq1sq / q2 / q2 / 9.0
		ex2sq = eq2sq * q1 * q1 / q2 / q2 / q2 / q2 / 9.0
	} else {
		ex0sq = (q2 - q1) * (q2 - q1) / q1 / q1 / 72.0
		ex1sq = eq1sq * q2 * q2 / q1 / q1 / q1 / q1 / 9.0
		ex2sq = eq2sq / q1 / q1 / 9.0
	}
	xError := math.Sqrt(ex0sq + ex1sq + ex2sq)

	return Cluster{
		Side:          side,
		Charge:        q1 + q2,
		Size:          2,
		Position:      sidePosition(x, side, nChannels),
		PositionError: xError,
		Time:          time,
		TimeError:     timeError,
	}
}

func clusterSizeN(digis []digi.Digi, connectors []Connector, head int, side Side, nChannels int, asic AsicParams) Cluster {
	chargePerAdc := asic.DynamicRange / float64(asic.NAdc)
	eDigitSq := chargePerAdc * chargePerAdc / 12.0
	eNoiseSq := asic.Noise * asic.Noise

	var chanF, chanL float64
	var qF, qL, qM, eqFsq, eqLsq, eqMsq float64
	var tSum, tResolSum, xSum float64

	idx := head
	for {
		d := digis[idx]
		charge := asic.AdcToCharge(d.Charge)
		width := asic.LandauWidth(charge)
		eChargeSq := width*width + eNoiseSq + eDigitSq

		tResolSum += asic.TimeResolution
		tSum += d.Time
		xSum += charge * float64(d.Addr.Channel())

		hasPrev := connectors[idx].HasPrevious()
		next, hasNext := connectors[idx].Next()

		if !hasPrev {
			chanF = float64(d.Addr.Channel())
			qF = charge
			eqFsq = eChargeSq
		} else if !hasNext {
			chanL = float64(d.Addr.Channel())
			qL = charge
			eqLsq = eChargeSq
		} else {
			qM += charge
			eqMsq += eChargeSq
		}

		if !hasNext {
			break
		}
		idx = next
	}

	if chanF > chanL {
		chanF -= float64(nChannels)
	}

	nDigis := chanL - chanF + 1
	tSum /= nDigis
	timeError := (tResolSum / nDigis) / math.Sqrt(nDigis)
	qSum := qF + qM + qL

	qM /= nDigis - 2.0
	eqMsq /= nDigis - 2.0

	x := 0.5 * (chanF + chanL + (qL-qF)/qM)
	if x < -0.5 {
		x += float64(nChannels)
	}

	exFsq := eqFsq / qM / qM / 4.0
	exMsq := eqMsq * (qL - qF) * (qL - qF) / qM / qM / qM / qM / 4.0
	exLsq := eqLsq / qM / qM / 4.0
	xError := math.Sqrt(exFsq + exMsq + exLsq)

	if x < chanF || x > chanL {
		x = xSum / qSum
	}

	return Cluster{
		Side:          side,
		Charge:        qSum,
		Size:          int(nDigis),
		Position:      sidePosition(x, side, nChannels),
		PositionError: xError,
		Time:          tSum,
		TimeError:     timeError,
	}
}
