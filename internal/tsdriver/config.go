package tsdriver

import (
	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/tofbmon"
	"github.com/cbm-fles/tsreco/internal/trd1d"
	"github.com/cbm-fles/tsreco/internal/trd2d"
)

// STSModuleConfig bundles the per-module parameter block with the
// per-side ASIC constants sts.FindHits needs.
type STSModuleConfig struct {
	Param               digi.ModuleParam
	AsicFront, AsicBack sts.AsicParams
}

// TRD2DModuleConfig bundles a TRD-2D module's parameter block with its
// row count, needed to bucket digis by row before calling trd2d.FindHits.
type TRD2DModuleConfig struct {
	Param   trd2d.ModuleParam
	NumRows int
}

// TRD1DModuleConfig is the TRD-1D analogue of TRD2DModuleConfig.
type TRD1DModuleConfig struct {
	Param   trd1d.ModuleParam
	NumRows int
}

// Config is the full per-run configuration the driver is constructed
// from: one parameter block per module/RPC, keyed by the module id
// packed into each subsystem's digi address.
type Config struct {
	STSModules   map[uint16]STSModuleConfig
	TRD2DModules map[uint16]TRD2DModuleConfig
	TRD1DModules map[uint16]TRD1DModuleConfig

	TOF  tofbmon.Setup
	BMon tofbmon.BMonSetup
}
