package tofbmon

import "github.com/cbm-fles/tsreco/internal/digi"

// TOF/BMon addresses pack (superModuleType, superModule, rpc) into the
// 16-bit module field of digi.Address, and the channel side into the
// sensor field. 5/6/5 bits covers any realistic TOF wall layout.
func packModule(smType, sm, rpc uint16) uint16 {
	return (smType&0x1F)<<11 | (sm&0x3F)<<5 | (rpc & 0x1F)
}

func unpackModule(m uint16) (smType, sm, rpc uint16) {
	rpc = m & 0x1F
	sm = (m >> 5) & 0x3F
	smType = (m >> 11) & 0x1F
	return
}

// Address builds a TOF/BMon digi address.
func Address(smType, sm, rpc uint16, side uint8, channel uint32) digi.Address {
	return digi.NewAddress(digi.SystemTOF, packModule(smType, sm, rpc), side, channel)
}

// Decode splits a digi address back into (smType, sm, rpc, side, channel).
func Decode(a digi.Address) (smType, sm, rpc uint16, side uint8, channel uint32) {
	smType, sm, rpc = unpackModule(a.Module())
	side = a.Sensor()
	channel = a.Channel()
	return
}
