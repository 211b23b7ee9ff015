package histo

import "testing"

func TestH2D_AccumulateColumn_ColumnSumMatchesSourceSum(t *testing.T) {
	src := NewH1D("x", "x title", 2, 0, 2)
	src.Fill(0.5, 1)
	src.Fill(1.5, 2)

	ext := NewH2DTsID("x_ts_id", "x vs timeslice", src)
	if err := ext.AccumulateColumn(0, src); err != nil {
		t.Fatalf("AccumulateColumn() error = %v", err)
	}

	var colSum float64
	for iy := 1; iy <= ext.NBinsY(); iy++ {
		colSum += ext.BinContent(1, iy)
	}
	var srcSum float64
	for ib := 1; ib <= src.NBins(); ib++ {
		srcSum += src.BinContent(ib)
	}
	if colSum != srcSum {
		t.Fatalf("column sum = %v, want %v (source sum)", colSum, srcSum)
	}
}

func TestH2D_AccumulateColumn_GrowsXAxisForLaterColumns(t *testing.T) {
	src := NewH1D("x", "", 2, 0, 2)
	src.Fill(0.5, 1)

	ext := NewH2DTsID("x_ts_id", "", src)
	if err := ext.AccumulateColumn(0, src); err != nil {
		t.Fatalf("AccumulateColumn(0) error = %v", err)
	}
	if err := ext.AccumulateColumn(3, src); err != nil {
		t.Fatalf("AccumulateColumn(3) error = %v", err)
	}
	if ext.NBinsX() < 4 {
		t.Fatalf("NBinsX() = %d, want >= 4 after writing column 3", ext.NBinsX())
	}
	if ext.BinContent(1, 1) != 1.0 {
		t.Errorf("column 0 content lost after growth: got %v, want 1.0", ext.BinContent(1, 1))
	}
	if ext.BinContent(4, 1) != 1.0 {
		t.Errorf("column 3 content = %v, want 1.0", ext.BinContent(4, 1))
	}
}

func TestH2D_AccumulateColumn_TwoTimeslicesPopulateTwoColumns(t *testing.T) {
	a := NewH1D("x", "", 2, 0, 2)
	a.Fill(0.5, 1)
	a.Fill(1.5, 2)

	b := NewH1D("x", "", 2, 0, 2)
	b.Fill(0.5, 2)
	b.Fill(1.5, 3)

	ext := NewH2DTsID("x_ts_id", "", a)
	if err := ext.AccumulateColumn(0, a); err != nil {
		t.Fatalf("AccumulateColumn(0) error = %v", err)
	}
	if err := ext.AccumulateColumn(1, b); err != nil {
		t.Fatalf("AccumulateColumn(1) error = %v", err)
	}

	if ext.BinContent(1, 1) != 1.0 || ext.BinContent(1, 2) != 2.0 {
		t.Errorf("column 0 = (%v, %v), want (1, 2)", ext.BinContent(1, 1), ext.BinContent(1, 2))
	}
	if ext.BinContent(2, 1) != 2.0 || ext.BinContent(2, 2) != 3.0 {
		t.Errorf("column 1 = (%v, %v), want (2, 3)", ext.BinContent(2, 1), ext.BinContent(2, 2))
	}
}

func TestH2D_AccumulateColumn_AxisMismatchErrors(t *testing.T) {
	a := NewH1D("x", "", 2, 0, 2)
	ext := NewH2DTsID("x_ts_id", "", a)

	b := NewH1D("x", "", 3, 0, 2)
	if err := ext.AccumulateColumn(0, b); err == nil {
		t.Fatal("expected axis-mismatch error, got nil")
	}
}
