package tsdriver

import (
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// fillHistograms builds the per-timeslice telemetry container (spec.md
// §4.7/§6: rate/occupancy histograms alongside the archive record) and
// folds it into the run-integrated view httpsrv serves.
func (d *Driver) fillHistograms(res *RecoResults) {
	c := &histo.Container{TimesliceID: res.Timeslice}

	stsHits := histo.NewH1D("sts_hits_per_module", "STS hits per module", 64, 0, 64)
	// StoreVsTsId lets a receiver (internal/telemetry/registry) track
	// per-module hit counts across timeslices, not just their run sum
	// (spec.md §4.7).
	stsHits.Meta.Set(histo.FlagStoreVsTsID, true)
	stsOcc := histo.NewH1D("sts_digis_per_module", "STS digis per module", 64, 0, 64)
	for _, m := range res.STS {
		stsHits.Fill(float64(m.Module), float64(len(m.Hits)))
		stsOcc.Fill(float64(m.Module), float64(len(m.FrontDigis)+len(m.BackDigis)))
	}
	c.H1 = append(c.H1, stsHits, stsOcc)

	trd2dHits := histo.NewH1D("trd2d_hits_per_module", "TRD-2D hits per module", 32, 0, 32)
	for _, m := range res.TRD2D {
		trd2dHits.Fill(float64(m.Module), float64(len(m.Hits)))
	}
	c.H1 = append(c.H1, trd2dHits)

	trd1dHits := histo.NewH1D("trd1d_hits_per_module", "TRD-1D hits per module", 32, 0, 32)
	for _, m := range res.TRD1D {
		trd1dHits.Fill(float64(m.Module), float64(len(m.Hits)))
	}
	c.H1 = append(c.H1, trd1dHits)

	tofRate := histo.NewH1D("tof_digis", "TOF calibrated digis", 1, 0, 1)
	tofRate.Fill(0.5, float64(len(res.TOFDigis)))
	bmonRate := histo.NewH1D("bmon_hits", "BMon hits", 1, 0, 1)
	bmonRate.Fill(0.5, float64(len(res.BMonHits)))
	c.H1 = append(c.H1, tofRate, bmonRate)

	d.lastTimeslice = c
	// Merge errors only occur on flag/axis mismatches between identically
	// named histograms, which cannot happen here since every name above is
	// built fresh each call with the same binning and flags.
	_ = histo.Merge(d.integrated, c)
}

// LastTimeslice returns the histogram container built for the most
// recently processed timeslice, suitable for wire.Sender.Publish.
func (d *Driver) LastTimeslice() *histo.Container { return d.lastTimeslice }

// Integrated returns the run-wide histogram container accumulated by
// merging every timeslice's container, suitable for httpsrv.SetContainer.
func (d *Driver) Integrated() *histo.Container { return d.integrated }

// ResetHistograms clears the integrated view, backing the "/Reset_Hist"
// control endpoint (spec.md §6).
func (d *Driver) ResetHistograms() { d.integrated = &histo.Container{} }
