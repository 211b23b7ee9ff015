package sts

import "github.com/cbm-fles/tsreco/internal/digi"

// Address builds an STS digi address: module id in the address's module
// field, strip side in the sensor field. digi.Digi.Side() is not used
// here (that helper targets TOF/BMon's side-swap convention); STS keeps
// its own encode/decode pair since front and back clusters are processed
// by entirely separate stage invocations (spec.md §4.4).
func Address(module uint16, side Side, channel uint32) digi.Address {
	return digi.NewAddress(digi.SystemSTS, module, uint8(side), channel)
}

// DecodeAddress splits an STS digi address into module, side and channel.
func DecodeAddress(a digi.Address) (module uint16, side Side, channel uint32) {
	return a.Module(), Side(a.Sensor()), a.Channel()
}
