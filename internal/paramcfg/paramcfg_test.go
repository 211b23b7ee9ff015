package paramcfg

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigJSON = `{
  "sts": [
    {
      "module_id": 3,
      "n_channels": 128,
      "max_clusters_per_side": 16,
      "max_hits_per_module": 16,
      "geometry": {"translation": [0,0,0], "pad_pitch": 1.0, "sensor_height": 1000, "stereo_angle_b": 0.13},
      "time_cut_digi_abs": 5,
      "time_cut_cluster_abs": 10,
      "asic_front": {"noise": 1000, "dynamic_range": 50000, "n_adc": 256, "time_resolution": 5, "landau_table": [100,120,150], "landau_step_size": 5000},
      "asic_back": {"noise": 1000, "dynamic_range": 50000, "n_adc": 256, "time_resolution": 5, "landau_table": [100,120,150], "landau_step_size": 5000}
    }
  ],
  "trd2d": [
    {"module_id": 1, "num_rows": 4, "num_cols": 32, "pad_width": 1.0, "pad_height": 1.0, "keep_window": 50, "sys_bin_width": 0.01, "geometry": {"translation": [0,0,0]}}
  ],
  "trd1d": [
    {"module_id": 2, "num_rows": 1, "num_cols": 64, "pad_width": 0.5, "row_merge_dt": 20, "geometry": {"translation": [0,0,0]}}
  ],
  "tof": {
    "sm_types": [
      {"nb_sm": 1, "nb_rpc": 1, "rpcs": [{"channel_dead_time": 5, "tot_min": 10, "tot_max": 200, "num_walk_bins_x": 2, "channels": [], "geometry": {"translation": [0,0,0]}}]}
    ]
  },
  "bmon": {
    "selection_mask": 0,
    "diamonds": [
      {"index": 0, "param": {"channel_dead_time": 5, "tot_min": 10, "tot_max": 200, "channels": [], "geometry": {"translation": [0,0,0]}}}
    ]
  }
}`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	if err := os.WriteFile(path, []byte(testConfigJSON), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAndToConfig(t *testing.T) {
	path := writeTestConfig(t)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := ToConfig(f)

	if len(cfg.STSModules) != 1 {
		t.Fatalf("len(STSModules) = %d, want 1", len(cfg.STSModules))
	}
	sts, ok := cfg.STSModules[3]
	if !ok {
		t.Fatalf("STSModules missing module 3: %+v", cfg.STSModules)
	}
	if sts.Param.NChannels != 128 {
		t.Errorf("STS module 3 NChannels = %d, want 128", sts.Param.NChannels)
	}
	if sts.AsicFront.NAdc != 256 {
		t.Errorf("STS module 3 AsicFront.NAdc = %d, want 256", sts.AsicFront.NAdc)
	}

	trd2d, ok := cfg.TRD2DModules[1]
	if !ok {
		t.Fatalf("TRD2DModules missing module 1: %+v", cfg.TRD2DModules)
	}
	if trd2d.NumRows != 4 {
		t.Errorf("TRD2D module 1 NumRows = %d, want 4", trd2d.NumRows)
	}

	trd1d, ok := cfg.TRD1DModules[2]
	if !ok {
		t.Fatalf("TRD1DModules missing module 2: %+v", cfg.TRD1DModules)
	}
	if trd1d.Param.RowMergeDt != 20 {
		t.Errorf("TRD1D module 2 RowMergeDt = %f, want 20", trd1d.Param.RowMergeDt)
	}

	if len(cfg.TOF.Rpcs) != 1 || len(cfg.TOF.Rpcs[0]) != 1 {
		t.Fatalf("TOF.Rpcs = %+v, want one sm-type with one rpc", cfg.TOF.Rpcs)
	}

	if len(cfg.BMon.Diamonds) != 1 || cfg.BMon.Diamonds[0].Index != 0 {
		t.Fatalf("BMon.Diamonds = %+v, want one diamond at index 0", cfg.BMon.Diamonds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load() on a missing file: want error, got nil")
	}
}
