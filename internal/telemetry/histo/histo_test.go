package histo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_StringRoundTrip(t *testing.T) {
	var m Metadata
	m.Set(FlagStoreVsTsID, true)
	m.Set(FlagSetMinimum, true)
	s := m.String()

	got, err := ParseMetadata(s)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.True(t, got.Has(FlagStoreVsTsID))
	assert.True(t, got.Has(FlagSetMinimum))
	assert.False(t, got.Has(FlagOmitIntegrated))
}

func TestMetadata_CheckFlagsInvalidWhenNeitherSet(t *testing.T) {
	var m Metadata
	m.Set(FlagOmitIntegrated, true)
	assert.False(t, m.Valid(), "omit-integrated without store-vs-ts must be invalid")
}

func TestSeparateNameAndMetadata(t *testing.T) {
	name, meta := SeparateNameAndMetadata("folder/hist!05")
	assert.Equal(t, "folder/hist", name)
	assert.Equal(t, "05", meta)

	name, meta = SeparateNameAndMetadata("bare-name")
	assert.Equal(t, "bare-name", name)
	assert.Equal(t, "", meta)
}

func TestH1D_FillAndBinContent(t *testing.T) {
	h := NewH1D("x", "title", 10, 0, 10)
	bin := h.Fill(5.5, 2.0)
	require.Equal(t, 6, bin) // bin 6 covers [5,6)
	assert.Equal(t, 2.0, h.BinContent(6))
	assert.Equal(t, math.Sqrt(4.0), h.BinError(6))
	assert.Equal(t, 1, h.Entries())
}

func TestH1D_FillOutOfRangeReturnsMinusOne(t *testing.T) {
	h := NewH1D("x", "title", 10, 0, 10)
	assert.Equal(t, -1, h.Fill(-1, 1))
	assert.Equal(t, -1, h.Fill(10, 1))
	assert.Equal(t, 0, h.Entries())
}

func TestH1D_MeanMatchesWeightedMeanStdDev(t *testing.T) {
	h := NewH1D("x", "title", 4, 0, 4)
	h.Fill(0.5, 1)
	h.Fill(3.5, 1)
	mean, _ := h.WeightedMeanStdDev()
	assert.InDelta(t, h.Mean(), mean, 1e-9)
}

func TestH1D_MergeSumsEntriesAndBins(t *testing.T) {
	a := NewH1D("x", "t", 4, 0, 4)
	b := NewH1D("x", "t", 4, 0, 4)
	a.Fill(0.5, 1)
	b.Fill(0.5, 2)
	b.Fill(2.5, 1)

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 3.0, a.BinContent(1))
	assert.Equal(t, 1.0, a.BinContent(3))
	assert.Equal(t, 3, a.Entries())
}

func TestH1D_MergeAxisMismatchErrors(t *testing.T) {
	a := NewH1D("x", "t", 4, 0, 4)
	b := NewH1D("x", "t", 5, 0, 4)
	assert.Error(t, a.Merge(b))
}

func TestProf1D_FillComputesMeanAndSEM(t *testing.T) {
	p := NewProf1D("p", "t", 2, 0, 2, 0, 0)
	p.Fill(0.5, 10, 1)
	p.Fill(0.5, 20, 1)
	assert.InDelta(t, 15.0, p.BinContent(1), 1e-9)
	assert.True(t, p.BinError(1) >= 0)
}

func TestProf1D_YWindowRejectsOutOfRange(t *testing.T) {
	p := NewProf1D("p", "t", 2, 0, 2, 0, 10)
	bin := p.Fill(0.5, 50, 1)
	assert.Equal(t, -1, bin)
}

func TestH2D_FillAndMerge(t *testing.T) {
	a := NewH2D("xy", "t", 2, 0, 2, 2, 0, 2)
	b := NewH2D("xy", "t", 2, 0, 2, 2, 0, 2)
	bx, by := a.Fill(0.5, 0.5, 1)
	require.Equal(t, 1, bx)
	require.Equal(t, 1, by)
	b.Fill(0.5, 0.5, 3)

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 4.0, a.BinContent(1, 1))
}

func TestContainerMerge_ByName(t *testing.T) {
	dst := &Container{TimesliceID: 1, H1: []*H1D{NewH1D("a", "", 2, 0, 2)}}
	dst.H1[0].Fill(0.5, 1)

	src := &Container{TimesliceID: 2, H1: []*H1D{
		NewH1D("a", "", 2, 0, 2),
		NewH1D("b", "", 2, 0, 2),
	}}
	src.H1[0].Fill(0.5, 4)
	src.H1[1].Fill(1.5, 7)

	require.NoError(t, Merge(dst, src))
	require.Len(t, dst.H1, 2)
	assert.Equal(t, 5.0, dst.H1[0].BinContent(1))
	assert.Equal(t, 7.0, dst.H1[1].BinContent(2))
}
