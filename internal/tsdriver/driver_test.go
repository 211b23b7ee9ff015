package tsdriver

import (
	"testing"

	"github.com/google/uuid"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/tofbmon"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New(logging.LevelError, "")
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	return log
}

func testSTSConfig() map[uint16]STSModuleConfig {
	asic := sts.AsicParams{
		Noise:          1000,
		DynamicRange:   50000,
		NAdc:           256,
		TimeResolution: 5,
		LandauTable:    []float64{100, 120, 150, 200, 260, 330},
		LandauStepSize: 5000,
	}
	param := digi.ModuleParam{
		NChannels:          128,
		MaxClustersPerSide: 16,
		MaxHitsPerModule:   16,
		Geometry: digi.Geometry{
			PadPitch:     1.0,
			SensorHeight: 1000,
			StereoAngleB: 0.13,
		},
		TimeCutDigiAbs:    5,
		TimeCutClusterAbs: 10,
	}
	return map[uint16]STSModuleConfig{
		0: {Param: param, AsicFront: asic, AsicBack: asic},
	}
}

// minimalConfig configures one STS module only; TOF/BMon are left
// structurally valid (NewCalibrator tolerates an empty Setup,
// NewBMonFinder accepts SelectionMask==0 with exactly one diamond)
// but no digis of those systems are fed in, so
// their dispatch branches in Process never run.
func minimalConfig() Config {
	return Config{
		STSModules: testSTSConfig(),
		BMon:       tofbmon.BMonSetup{Diamonds: []tofbmon.Diamond{{}}},
	}
}

func TestNewDriverRejectsEmptyConfig(t *testing.T) {
	_, err := NewDriver(Config{}, uuid.New(), testLogger(t))
	if !recoerr.Is(err, recoerr.ErrConfig) {
		t.Fatalf("NewDriver(Config{}) error = %v, want wrapping recoerr.ErrConfig", err)
	}
}

func TestProcessSTSModule(t *testing.T) {
	runID := uuid.New()
	d, err := NewDriver(minimalConfig(), runID, testLogger(t))
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	ts := Timeslice{
		Index:     7,
		StartTime: 123.0,
		Digis: map[digi.System][]digi.Digi{
			digi.SystemSTS: {
				{Addr: sts.Address(0, sts.SideFront, 10), Time: 1000, Charge: 100},
				{Addr: sts.Address(0, sts.SideBack, 10), Time: 1001, Charge: 100},
			},
		},
	}

	res, err := d.Process(ts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if res.RunID != runID {
		t.Errorf("RunID = %v, want %v", res.RunID, runID)
	}
	if res.Timeslice != 7 {
		t.Errorf("Timeslice = %d, want 7", res.Timeslice)
	}
	if len(res.STS) != 1 {
		t.Fatalf("len(STS) = %d, want 1", len(res.STS))
	}
	if res.STS[0].Module != 0 {
		t.Errorf("STS[0].Module = %d, want 0", res.STS[0].Module)
	}
	if len(res.STS[0].Hits) != 1 {
		t.Errorf("len(STS[0].Hits) = %d, want 1", len(res.STS[0].Hits))
	}
	if len(res.TRD2D) != 0 || len(res.TRD1D) != 0 || len(res.TOFDigis) != 0 || len(res.BMonHits) != 0 {
		t.Errorf("unconfigured/empty subsystems produced output: %+v", res)
	}

	last := d.LastTimeslice()
	if last == nil || last.TimesliceID != 7 {
		t.Fatalf("LastTimeslice() = %+v, want TimesliceID 7", last)
	}

	integrated := d.Integrated()
	if integrated == nil || len(integrated.H1) == 0 {
		t.Fatalf("Integrated() produced no histograms")
	}

	d.ResetHistograms()
	if len(d.Integrated().H1) != 0 {
		t.Errorf("ResetHistograms() left %d histograms, want 0", len(d.Integrated().H1))
	}
}

func TestProcessSkipsUnconfiguredModule(t *testing.T) {
	d, err := NewDriver(minimalConfig(), uuid.New(), testLogger(t))
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	ts := Timeslice{
		Index: 1,
		Digis: map[digi.System][]digi.Digi{
			digi.SystemSTS: {
				{Addr: sts.Address(9, sts.SideFront, 1), Time: 0, Charge: 50},
			},
		},
	}

	res, err := d.Process(ts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.STS) != 0 {
		t.Errorf("module 9 has no configuration, want it skipped, got %+v", res.STS)
	}
}
