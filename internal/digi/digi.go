// Package digi defines the raw-hit data model shared by every detector
// stage: the immutable Digi record, its packed detector address, and the
// per-run calibration parameter block each stage is constructed with.
package digi

import "fmt"

// System identifies a sub-detector contributing digis to a timeslice.
type System uint8

const (
	SystemSTS System = iota
	SystemTOF
	SystemBMon
	SystemTRD2D
	SystemTRD1D
)

func (s System) String() string {
	switch s {
	case SystemSTS:
		return "STS"
	case SystemTOF:
		return "TOF"
	case SystemBMon:
		return "BMon"
	case SystemTRD2D:
		return "TRD2D"
	case SystemTRD1D:
		return "TRD1D"
	default:
		return "unknown"
	}
}

// TriggerKind distinguishes a self-triggered digi from a neighbour-read
// digi on detectors where one channel's threshold crossing causes an
// adjacent channel to be read out without crossing its own threshold
// (TRD-1D main/neighbour logic, spec.md §4.6).
type TriggerKind uint8

const (
	TriggerSelf TriggerKind = iota
	TriggerNeighbour
)

// Address is a packed bitfield hierarchically encoding
// subsystem/module/sensor/channel, per spec.md §3. The packing is
// intentionally opaque to callers: use NewAddress/the accessors rather
// than reconstructing the bit layout elsewhere.
//
// Layout (from MSB): 8 bits system, 16 bits module, 8 bits sensor/side,
// 32 bits channel. This comfortably covers every detector's addressing
// scheme described in spec.md without detector-specific bit tricks.
type Address uint64

// NewAddress packs the hierarchical address fields into one Address.
func NewAddress(sys System, module uint16, sensor uint8, channel uint32) Address {
	return Address(uint64(sys))<<56 | Address(module)<<40 | Address(sensor)<<32 | Address(channel)
}

func (a Address) System() System   { return System(a >> 56) }
func (a Address) Module() uint16   { return uint16(a >> 40) }
func (a Address) Sensor() uint8    { return uint8(a >> 32) }
func (a Address) Channel() uint32  { return uint32(a) }

func (a Address) String() string {
	return fmt.Sprintf("%s/m%d/s%d/c%d", a.System(), a.Module(), a.Sensor(), a.Channel())
}

// Digi is an immutable raw digitised hit. Fields are never mutated after
// construction; calibration stages produce new Digi values rather than
// updating in place.
type Digi struct {
	Addr    Address
	Channel uint32
	Time    float64 // ns
	Charge  float64 // ToT or ADC units, detector-dependent
	Trigger TriggerKind
}

// Side returns 0/1 for detectors that encode a channel-side bit in the
// sensor field (TOF RPCs); STS front/back sides are tracked separately
// by the cluster finder instead of via this field.
func (d Digi) Side() uint8 { return d.Addr.Sensor() & 0x1 }
