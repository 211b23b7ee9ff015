package sts

// AsicParams carries the front-end ASIC constants used by cluster
// charge/error calculations (spec.md §4.4 stage 4): ADC-to-charge
// conversion, electronic noise, and the Landau-width lookup table used
// to estimate a single strip's charge-measurement uncertainty.
//
// Grounded on original_source/algo/detectors/sts/Hitfinder.cxx
// (asic.AdcToCharge, asic.noise, asic.dynamicRange, asic.nAdc,
// asic.timeResolution, LandauWidth's table-interpolation algorithm).
type AsicParams struct {
	Noise          float64
	DynamicRange   float64
	NAdc           int
	TimeResolution float64
	LandauTable    []float64
	LandauStepSize float64
}

// AdcToCharge converts a raw ADC count to charge units.
func (a AsicParams) AdcToCharge(adc float64) float64 {
	return adc * a.DynamicRange / float64(a.NAdc)
}

// LandauWidth estimates the Landau-distribution width (charge
// measurement uncertainty contribution) for a given charge, by linear
// interpolation of a precomputed table, clamped at both ends.
func (a AsicParams) LandauWidth(charge float64) float64 {
	n := len(a.LandauTable)
	if n == 0 || a.LandauStepSize <= 0 {
		return 0
	}
	if charge <= a.LandauStepSize {
		return a.LandauTable[0]
	}
	if charge > a.LandauStepSize*float64(n-1) {
		return a.LandauTable[n-1]
	}

	idx := int(charge/a.LandauStepSize + 0.999999) // ceil
	e2 := float64(idx) * a.LandauStepSize
	v2 := a.LandauTable[idx]
	idx--
	e1 := float64(idx) * a.LandauStepSize
	v1 := a.LandauTable[idx]
	return v1 + (charge-e1)*(v2-v1)/(e2-e1)
}
