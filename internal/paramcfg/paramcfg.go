// Package paramcfg loads the per-run calibration parameter blocks
// (spec.md §3) from a JSON configuration file, the same way the teacher
// loads its tuning configuration in cmd/radar (--config flag, JSON file,
// see legacy/internal/config in the reference tree).
package paramcfg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/tofbmon"
	"github.com/cbm-fles/tsreco/internal/trd1d"
	"github.com/cbm-fles/tsreco/internal/trd2d"
	"github.com/cbm-fles/tsreco/internal/tsdriver"
)

// DefaultConfigPath is the fallback --config location, mirroring the
// teacher's config.DefaultConfigPath convention.
const DefaultConfigPath = "tsreco-params.json"

// File is the on-disk JSON shape of a full run's calibration constants:
// one entry per installed module/RPC/diamond, keyed by the module id
// packed into that subsystem's digi addresses (tsdriver.Config's own
// keying scheme).
type File struct {
	STS   []STSModuleFile   `json:"sts"`
	TRD2D []TRD2DModuleFile `json:"trd2d"`
	TRD1D []TRD1DModuleFile `json:"trd1d"`
	TOF   TOFFile           `json:"tof"`
	BMon  BMonFile          `json:"bmon"`
}

type geometryFile struct {
	Translation   [3]float64  `json:"translation"`
	Rotation      *[9]float64 `json:"rotation,omitempty"`
	PadPitch      float64     `json:"pad_pitch"`
	SensorHeight  float64     `json:"sensor_height"`
	StereoAngleF  float64     `json:"stereo_angle_f"`
	StereoAngleB  float64     `json:"stereo_angle_b"`
	LorentzShiftF float64     `json:"lorentz_shift_f"`
	LorentzShiftB float64     `json:"lorentz_shift_b"`
}

// asicFile is one front-end ASIC's calibration constants (spec.md §4.4
// stage 4), used for both the front and back side of an STS module.
type asicFile struct {
	Noise          float64   `json:"noise"`
	DynamicRange   float64   `json:"dynamic_range"`
	NAdc           int       `json:"n_adc"`
	TimeResolution float64   `json:"time_resolution"`
	LandauTable    []float64 `json:"landau_table"`
	LandauStepSize float64   `json:"landau_step_size"`
}

func toAsicParams(a asicFile) sts.AsicParams {
	return sts.AsicParams{
		Noise:          a.Noise,
		DynamicRange:   a.DynamicRange,
		NAdc:           a.NAdc,
		TimeResolution: a.TimeResolution,
		LandauTable:    a.LandauTable,
		LandauStepSize: a.LandauStepSize,
	}
}

// STSModuleFile is one STS module's full configuration: geometry and
// cluster/hit cuts plus the front/back ASIC constants sts.FindHits
// needs (spec.md §4.4).
type STSModuleFile struct {
	ModuleID           uint16       `json:"module_id"`
	NChannels          int          `json:"n_channels"`
	MaxClustersPerSide int          `json:"max_clusters_per_side"`
	MaxHitsPerModule   int          `json:"max_hits_per_module"`
	Geometry           geometryFile `json:"geometry"`
	TimeCutDigiAbs     float64      `json:"time_cut_digi_abs"`
	TimeCutDigiSig     float64      `json:"time_cut_digi_sig"`
	TimeCutClusterAbs  float64      `json:"time_cut_cluster_abs"`
	TimeCutClusterSig  float64      `json:"time_cut_cluster_sig"`
	ChargeDeltaCut     float64      `json:"charge_delta_cut"`
	DigiTimeSigma      float64      `json:"digi_time_sigma"`
	AsicFront          asicFile     `json:"asic_front"`
	AsicBack           asicFile     `json:"asic_back"`
}

// TRD2DModuleFile is one TRD-2D (pad-plane) module's configuration
// (spec.md §4.6).
type TRD2DModuleFile struct {
	ModuleID    uint16       `json:"module_id"`
	NumRows     int          `json:"num_rows"`
	Geometry    geometryFile `json:"geometry"`
	NumCols     int          `json:"num_cols"`
	PadWidth    float64      `json:"pad_width"`
	PadHeight   float64      `json:"pad_height"`
	KeepWindow  float64      `json:"keep_window"`
	SysTable    []float64    `json:"sys_table"`
	SysBinWidth float64      `json:"sys_bin_width"`
}

// TRD1DModuleFile is one TRD-1D (strip) module's configuration
// (spec.md §4.6).
type TRD1DModuleFile struct {
	ModuleID   uint16       `json:"module_id"`
	NumRows    int          `json:"num_rows"`
	Geometry   geometryFile `json:"geometry"`
	NumCols    int          `json:"num_cols"`
	PadWidth   float64      `json:"pad_width"`
	RowMergeDt float64      `json:"row_merge_dt"`
}

type channelFile struct {
	TimeOffset [2]float64  `json:"time_offset"`
	TotOffset  [2]float64  `json:"tot_offset"`
	TotGain    [2]float64  `json:"tot_gain"`
	Walk       [2]walkFile `json:"walk"`
}

type walkFile struct {
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
	Bins []float64 `json:"bins"`
}

type RpcFile struct {
	Channels         []channelFile `json:"channels"`
	ChannelDeadTime  float64       `json:"channel_dead_time"`
	DeadStripMask    []bool        `json:"dead_strip_mask"`
	SwapChannelSides bool          `json:"swap_channel_sides"`
	TOTMin           float64       `json:"tot_min"`
	TOTMax           float64       `json:"tot_max"`
	NumWalkBinsX     int           `json:"num_walk_bins_x"`
	Geometry         geometryFile  `json:"geometry"`
}

// smTypeFile is one TOF super-module type: its RPC count per
// super-module and the flattened per-(sm,rpc) parameter table
// tofbmon.Setup.Rpcs expects (spec.md §4.2).
type smTypeFile struct {
	NbSm int       `json:"nb_sm"`
	NbRpc int      `json:"nb_rpc"`
	Rpcs []RpcFile `json:"rpcs"` // len == NbSm*NbRpc, indexed sm*NbRpc+rpc
}

// TOFFile is the full TOF RPC table (spec.md §4.2 Setup).
type TOFFile struct {
	SmTypes []smTypeFile `json:"sm_types"`
}

// diamondFile is one BMon diamond's address-selection index and RPC-
// shaped calibration constants (spec.md §4.3).
type diamondFile struct {
	Index uint32  `json:"index"`
	Param RpcFile `json:"param"`
}

// BMonFile configures BMon hit finding. Invariant (spec.md §4.3):
// exactly one of {SelectionMask == 0, len(Diamonds) == 1} must hold,
// checked by tofbmon.NewBMonFinder, not here.
type BMonFile struct {
	SelectionMask uint32        `json:"selection_mask"`
	Diamonds      []diamondFile `json:"diamonds"`
}

// Load reads and decodes a parameter file from disk.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("paramcfg: read %q: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("paramcfg: parse %q: %w", path, err)
	}
	return &f, nil
}

func toGeometry(g geometryFile) digi.Geometry {
	out := digi.Geometry{
		Translation:   g.Translation,
		PadPitch:      g.PadPitch,
		SensorHeight:  g.SensorHeight,
		StereoAngleF:  g.StereoAngleF,
		StereoAngleB:  g.StereoAngleB,
		LorentzShiftF: g.LorentzShiftF,
		LorentzShiftB: g.LorentzShiftB,
	}
	if g.Rotation != nil {
		out.Rotation = rotationMatrix(*g.Rotation)
	}
	return out
}

// ToSTSModuleConfig converts one JSON STS module entry into a
// tsdriver.STSModuleConfig.
func ToSTSModuleConfig(m STSModuleFile) tsdriver.STSModuleConfig {
	return tsdriver.STSModuleConfig{
		Param: digi.ModuleParam{
			NChannels:          m.NChannels,
			MaxClustersPerSide: m.MaxClustersPerSide,
			MaxHitsPerModule:   m.MaxHitsPerModule,
			Geometry:           toGeometry(m.Geometry),
			TimeCutDigiAbs:     m.TimeCutDigiAbs,
			TimeCutDigiSig:     m.TimeCutDigiSig,
			TimeCutClusterAbs:  m.TimeCutClusterAbs,
			TimeCutClusterSig:  m.TimeCutClusterSig,
			ChargeDeltaCut:     m.ChargeDeltaCut,
			DigiTimeSigma:      m.DigiTimeSigma,
		},
		AsicFront: toAsicParams(m.AsicFront),
		AsicBack:  toAsicParams(m.AsicBack),
	}
}

// ToTRD2DModuleConfig converts one JSON TRD-2D module entry into a
// tsdriver.TRD2DModuleConfig.
func ToTRD2DModuleConfig(m TRD2DModuleFile) tsdriver.TRD2DModuleConfig {
	return tsdriver.TRD2DModuleConfig{
		Param: trd2d.ModuleParam{
			Geometry:    toGeometry(m.Geometry),
			NumCols:     m.NumCols,
			PadWidth:    m.PadWidth,
			PadHeight:   m.PadHeight,
			KeepWindow:  m.KeepWindow,
			SysTable:    m.SysTable,
			SysBinWidth: m.SysBinWidth,
		},
		NumRows: m.NumRows,
	}
}

// ToTRD1DModuleConfig converts one JSON TRD-1D module entry into a
// tsdriver.TRD1DModuleConfig.
func ToTRD1DModuleConfig(m TRD1DModuleFile) tsdriver.TRD1DModuleConfig {
	return tsdriver.TRD1DModuleConfig{
		Param: trd1d.ModuleParam{
			Geometry:   toGeometry(m.Geometry),
			NumCols:    m.NumCols,
			PadWidth:   m.PadWidth,
			RowMergeDt: m.RowMergeDt,
		},
		NumRows: m.NumRows,
	}
}

// ToRpcParam converts one JSON RPC/diamond entry into a digi.RpcParam.
func ToRpcParam(r RpcFile) digi.RpcParam {
	chans := make([]digi.ChannelParam, len(r.Channels))
	for i, c := range r.Channels {
		chans[i] = digi.ChannelParam{
			TimeOffset: c.TimeOffset,
			TotOffset:  c.TotOffset,
			TotGain:    c.TotGain,
			Walk: [2]digi.WalkTable{
				{Min: c.Walk[0].Min, Max: c.Walk[0].Max, Bins: c.Walk[0].Bins, NBins: len(c.Walk[0].Bins)},
				{Min: c.Walk[1].Min, Max: c.Walk[1].Max, Bins: c.Walk[1].Bins, NBins: len(c.Walk[1].Bins)},
			},
		}
	}
	return digi.RpcParam{
		Channels:         chans,
		ChannelDeadTime:  r.ChannelDeadTime,
		DeadStripMask:    r.DeadStripMask,
		SwapChannelSides: r.SwapChannelSides,
		TOTMin:           r.TOTMin,
		TOTMax:           r.TOTMax,
		NumWalkBinsX:     r.NumWalkBinsX,
		Geometry:         toGeometry(r.Geometry),
	}
}

// ToTOFSetup converts the JSON RPC table into a tofbmon.Setup.
func ToTOFSetup(f TOFFile) tofbmon.Setup {
	setup := tofbmon.Setup{
		NbSm:  make([]int, len(f.SmTypes)),
		NbRpc: make([]int, len(f.SmTypes)),
		Rpcs:  make([][]digi.RpcParam, len(f.SmTypes)),
	}
	for i, st := range f.SmTypes {
		setup.NbSm[i] = st.NbSm
		setup.NbRpc[i] = st.NbRpc
		rpcs := make([]digi.RpcParam, len(st.Rpcs))
		for j, r := range st.Rpcs {
			rpcs[j] = ToRpcParam(r)
		}
		setup.Rpcs[i] = rpcs
	}
	return setup
}

// ToBMonSetup converts the JSON BMon block into a tofbmon.BMonSetup.
func ToBMonSetup(f BMonFile) tofbmon.BMonSetup {
	diamonds := make([]tofbmon.Diamond, len(f.Diamonds))
	for i, d := range f.Diamonds {
		diamonds[i] = tofbmon.Diamond{Index: d.Index, Param: ToRpcParam(d.Param)}
	}
	return tofbmon.BMonSetup{SelectionMask: f.SelectionMask, Diamonds: diamonds}
}

// ToConfig converts a fully loaded File into a tsdriver.Config, the
// shape NewDriver is constructed from.
func ToConfig(f *File) tsdriver.Config {
	cfg := tsdriver.Config{
		STSModules:   make(map[uint16]tsdriver.STSModuleConfig, len(f.STS)),
		TRD2DModules: make(map[uint16]tsdriver.TRD2DModuleConfig, len(f.TRD2D)),
		TRD1DModules: make(map[uint16]tsdriver.TRD1DModuleConfig, len(f.TRD1D)),
		TOF:          ToTOFSetup(f.TOF),
		BMon:         ToBMonSetup(f.BMon),
	}
	for _, m := range f.STS {
		cfg.STSModules[m.ModuleID] = ToSTSModuleConfig(m)
	}
	for _, m := range f.TRD2D {
		cfg.TRD2DModules[m.ModuleID] = ToTRD2DModuleConfig(m)
	}
	for _, m := range f.TRD1D {
		cfg.TRD1DModules[m.ModuleID] = ToTRD1DModuleConfig(m)
	}
	return cfg
}
