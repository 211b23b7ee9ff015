package tofbmon

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/digi"
)

func testDiamondSetup() BMonSetup {
	mkParam := func() digi.RpcParam {
		return digi.RpcParam{Channels: make([]digi.ChannelParam, 8), ChannelDeadTime: 10}
	}
	return BMonSetup{
		Diamonds: []Diamond{
			{Index: 0, Param: mkParam()},
			{Index: 1, Param: mkParam()},
		},
		SelectionMask: 0x1,
	}
}

func TestBMonSetup_InvariantViolation(t *testing.T) {
	_, err := NewBMonFinder(BMonSetup{SelectionMask: 0, Diamonds: []Diamond{{}, {}}})
	if err == nil {
		t.Fatal("expected error: zero mask with 2 diamonds violates invariant")
	}
}

func TestBMonFindHits_Partitioning(t *testing.T) {
	f, err := NewBMonFinder(testDiamondSetup())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addr0 := digi.NewAddress(digi.SystemBMon, 0, 0, 3)
	addr1 := digi.NewAddress(digi.SystemBMon, 0, 1, 3)

	digis := []digi.Digi{
		{Addr: addr0, Time: 100, Charge: 1},
		{Addr: addr0, Time: 101, Charge: 1},
		{Addr: addr1, Time: 200, Charge: 1},
	}

	hits, err := f.FindHits(digis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	span0, ok := hits.PartitionByAddress(0)
	if !ok || len(span0) != 1 {
		t.Fatalf("expected 1 merged hit for diamond 0, got %v", span0)
	}
	span1, ok := hits.PartitionByAddress(1)
	if !ok || len(span1) != 1 || span1[0].Time != 200 {
		t.Fatalf("expected 1 hit for diamond 1 at t=200, got %v", span1)
	}
}
