package tsdriver

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
	"github.com/cbm-fles/tsreco/internal/tofbmon"
	"github.com/cbm-fles/tsreco/internal/trd1d"
	"github.com/cbm-fles/tsreco/internal/trd2d"
)

// Driver dispatches one timeslice's per-subsystem digis to every
// detector's calibrator/cluster-finder/hit-finder and assembles the
// per-module results into a RecoResults record (spec.md §2 "Timeslice
// driver", §6 data-flow). One Driver instance is reused across the
// whole run: TOF/BMon's dead-time state and cumulative histograms live
// on the instances held here, the way a single Calibrator/BMonFinder is
// constructed once per run in spec.md §4.2/§4.3.
type Driver struct {
	cfg Config
	log *logging.Logger

	runID uuid.UUID

	calibrator *tofbmon.Calibrator
	bmonFinder *tofbmon.BMonFinder

	integrated    *histo.Container
	lastTimeslice *histo.Container
}

// NewDriver constructs a Driver for one run. runID identifies the run in
// every emitted RecoResults record and in the archive's dump-summary
// header (spec.md §3 "[ADD] Run/timeslice identifiers").
func NewDriver(cfg Config, runID uuid.UUID, log *logging.Logger) (*Driver, error) {
	if len(cfg.STSModules) == 0 && len(cfg.TRD2DModules) == 0 && len(cfg.TRD1DModules) == 0 &&
		len(cfg.TOF.Rpcs) == 0 && len(cfg.BMon.Diamonds) == 0 {
		return nil, errConfigNoModules()
	}

	calibrator := tofbmon.NewCalibrator(cfg.TOF)

	bmonFinder, err := tofbmon.NewBMonFinder(cfg.BMon)
	if err != nil {
		return nil, fmt.Errorf("tsdriver: %w", err)
	}

	return &Driver{
		cfg:        cfg,
		log:        log,
		runID:      runID,
		calibrator: calibrator,
		bmonFinder: bmonFinder,
		integrated: &histo.Container{},
	}, nil
}

// Process runs every configured subsystem stage over one timeslice and
// returns the aggregated RecoResults record. Modules present in the
// timeslice's digi span but absent from Config are skipped; this is not
// an error (a run may configure a subset of installed modules).
func (d *Driver) Process(ts Timeslice) (*RecoResults, error) {
	res := &RecoResults{
		RunID:          d.runID,
		Timeslice:      ts.Index,
		StartTime:      ts.StartTime,
		DigiEventViews: []DigiEventView{},
		Tracks:         []Track{},
	}

	if stsDigis := ts.Digis[digi.SystemSTS]; len(stsDigis) > 0 {
		res.STS = d.processSTS(stsDigis)
	}
	if trd2dDigis := ts.Digis[digi.SystemTRD2D]; len(trd2dDigis) > 0 {
		res.TRD2D = d.processTRD2D(trd2dDigis)
	}
	if trd1dDigis := ts.Digis[digi.SystemTRD1D]; len(trd1dDigis) > 0 {
		res.TRD1D = d.processTRD1D(trd1dDigis)
	}
	if tofDigis := ts.Digis[digi.SystemTOF]; len(tofDigis) > 0 {
		cal, mon := d.calibrator.Calibrate(tofDigis)
		res.TOFDigis = cal
		res.TOFMonitor = mon
	}
	if bmonDigis := ts.Digis[digi.SystemBMon]; len(bmonDigis) > 0 {
		hits, err := d.bmonFinder.FindHits(bmonDigis)
		if err != nil {
			return nil, fmt.Errorf("tsdriver: bmon: %w", err)
		}
		res.BMonHits = hits.DataSpan()
	}

	d.fillHistograms(res)
	return res, nil
}

// bucketByModule groups digis by the module id packed into their
// address, the same grouping every detector package's own driver
// assumes its caller has already performed.
func bucketByModule(digis []digi.Digi) map[uint16][]digi.Digi {
	byModule := make(map[uint16][]digi.Digi)
	for _, d := range digis {
		m := d.Addr.Module()
		byModule[m] = append(byModule[m], d)
	}
	return byModule
}

func (d *Driver) processSTS(digis []digi.Digi) []STSModuleResult {
	type sides struct{ front, back []digi.Digi }
	byModule := make(map[uint16]*sides)
	for _, dg := range digis {
		module, side, _ := sts.DecodeAddress(dg.Addr)
		s, ok := byModule[module]
		if !ok {
			s = &sides{}
			byModule[module] = s
		}
		if side == sts.SideFront {
			s.front = append(s.front, dg)
		} else {
			s.back = append(s.back, dg)
		}
	}

	modules := sortedModuleKeys(byModule)
	results := make([]STSModuleResult, 0, len(modules))
	for _, m := range modules {
		cfg, ok := d.cfg.STSModules[m]
		if !ok {
			d.log.Debug("tsdriver: sts module %d has digis but no configuration, skipping", m)
			continue
		}
		s := byModule[m]
		front, back, hits, mon := sts.FindHits(s.front, s.back, cfg.Param, cfg.AsicFront, cfg.AsicBack)
		results = append(results, STSModuleResult{
			Module:       m,
			FrontDigis:   s.front,
			BackDigis:    s.back,
			FrontCluster: front,
			BackCluster:  back,
			Hits:         hits,
			Monitor:      mon,
		})
	}
	return results
}

func (d *Driver) processTRD2D(digis []digi.Digi) []TRD2DModuleResult {
	byModule := bucketByModule(digis)
	modules := sortedModuleKeys(byModule)
	results := make([]TRD2DModuleResult, 0, len(modules))
	for _, m := range modules {
		cfg, ok := d.cfg.TRD2DModules[m]
		if !ok {
			d.log.Debug("tsdriver: trd2d module %d has digis but no configuration, skipping", m)
			continue
		}
		hits, mon := trd2d.FindHits(byModule[m], cfg.NumRows, cfg.Param)
		results = append(results, TRD2DModuleResult{Module: m, Digis: byModule[m], Hits: hits, Monitor: mon})
	}
	return results
}

func (d *Driver) processTRD1D(digis []digi.Digi) []TRD1DModuleResult {
	byModule := bucketByModule(digis)
	modules := sortedModuleKeys(byModule)
	results := make([]TRD1DModuleResult, 0, len(modules))
	for _, m := range modules {
		cfg, ok := d.cfg.TRD1DModules[m]
		if !ok {
			d.log.Debug("tsdriver: trd1d module %d has digis but no configuration, skipping", m)
			continue
		}
		hits, mon := trd1d.FindHits(byModule[m], cfg.NumRows, cfg.Param)
		results = append(results, TRD1DModuleResult{Module: m, Digis: byModule[m], Hits: hits, Monitor: mon})
	}
	return results
}

func sortedModuleKeys[T any](m map[uint16]T) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// errConfigNoModules mirrors recoerr.ErrConfig: a run started with no
// detector modules configured at all is a construction-time contract
// violation, not a per-timeslice condition.
func errConfigNoModules() error {
	return fmt.Errorf("%w: tsdriver: no STS/TRD2D/TRD1D modules configured", recoerr.ErrConfig)
}
