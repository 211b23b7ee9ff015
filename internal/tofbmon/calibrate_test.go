package tofbmon

import (
	"math"
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func singleRpcSetup(nChannels int, deadTime float64) Setup {
	chans := make([]digi.ChannelParam, nChannels)
	for i := range chans {
		chans[i] = digi.ChannelParam{
			Walk: [2]digi.WalkTable{{}, {}},
		}
	}
	return Setup{
		NbSm:  []int{1},
		NbRpc: []int{1},
		Rpcs: [][]digi.RpcParam{{
			{
				Channels:        chans,
				ChannelDeadTime: deadTime,
				TOTMin:          0,
				TOTMax:          10,
				NumWalkBinsX:    0,
			},
		}},
	}
}

// TestDeadTime reproduces spec.md §8 scenario 1: two digis on the same
// channel 5 ns apart with a 50 ns dead time emit only the first.
func TestDeadTime(t *testing.T) {
	setup := singleRpcSetup(4, 50)
	cal := NewCalibrator(setup)

	addr := Address(0, 0, 0, 0, 2)
	in := []digi.Digi{
		{Addr: addr, Time: 100, Charge: 1},
		{Addr: addr, Time: 105, Charge: 1},
	}

	out, mon := cal.Calibrate(in)

	if len(out) != 1 {
		t.Fatalf("expected 1 emitted digi, got %d", len(out))
	}
	if mon.DroppedDeadtime != 1 {
		t.Fatalf("expected deadTimeCount=1, got %d", mon.DroppedDeadtime)
	}
	if out[0].Time != 100 {
		t.Fatalf("expected surviving digi at t=100, got %v", out[0].Time)
	}

	chanIdx := cal.rpcOffset[0] + 2
	if got := cal.deadTime[chanIdx]; got != 155 {
		t.Fatalf("expected refreshed dead time 155, got %v", got)
	}
}

func TestUnknownRPCDropped(t *testing.T) {
	setup := singleRpcSetup(4, 50)
	cal := NewCalibrator(setup)

	// smType 3 doesn't exist in this setup (only smType 0).
	addr := Address(3, 0, 0, 0, 0)
	out, mon := cal.Calibrate([]digi.Digi{{Addr: addr, Time: 1, Charge: 1}})

	if len(out) != 0 || mon.DroppedUnknownRPC != 1 {
		t.Fatalf("expected digi dropped as unknown RPC, got out=%v mon=%+v", out, mon)
	}
}

func TestCalibrate_OutputNonDecreasingTime(t *testing.T) {
	setup := singleRpcSetup(4, 0)
	setup.Rpcs[0][0].Channels[0].TimeOffset = [2]float64{5, 0}
	setup.Rpcs[0][0].Channels[1].TimeOffset = [2]float64{-5, 0}
	cal := NewCalibrator(setup)

	in := []digi.Digi{
		{Addr: Address(0, 0, 0, 0, 0), Time: 10, Charge: 1},
		{Addr: Address(0, 0, 0, 0, 1), Time: 11, Charge: 1},
	}
	out, _ := cal.Calibrate(in)

	for i := 1; i < len(out); i++ {
		if out[i].Time < out[i-1].Time {
			t.Fatalf("output not time-sorted: %v", out)
		}
	}
}

func TestWalkCorrection_Interpolates(t *testing.T) {
	w := digi.WalkTable{Bins: []float64{0, 10, 20}}
	// iW should land in bin 1 (tot=5, range 0..9 bins of width 3 => bin index 1)
	got := walkCorrection(w, 0, 9, 3, 5)
	if math.IsNaN(got) {
		t.Fatal("unexpected NaN")
	}
}
