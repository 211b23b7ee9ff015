package histo

import (
	"fmt"
	"math"
)

// H2D is a two-dimensional weighted histogram, row-major over
// (nBinsX, nBinsY) regular bins.
type H2D struct {
	Name, Title string
	Meta        Metadata

	nBinsX, nBinsY   int
	minX, maxX       float64
	minY, maxY       float64
	bins             []binAcc // len == nBinsX*nBinsY, row-major (x fastest)
	entries          int
	totals           totalSums2D
}

// NewH2D constructs an empty 2D histogram.
func NewH2D(name, title string, nBinsX int, minX, maxX float64, nBinsY int, minY, maxY float64) *H2D {
	return &H2D{
		Name: name, Title: title,
		nBinsX: nBinsX, minX: minX, maxX: maxX,
		nBinsY: nBinsY, minY: minY, maxY: maxY,
		bins: make([]binAcc, nBinsX*nBinsY),
	}
}

func (h *H2D) NBinsX() int { return h.nBinsX }
func (h *H2D) NBinsY() int { return h.nBinsY }
func (h *H2D) Entries() int { return h.entries }

func (h *H2D) binWidthX() float64 { return (h.maxX - h.minX) / float64(h.nBinsX) }
func (h *H2D) binWidthY() float64 { return (h.maxY - h.minY) / float64(h.nBinsY) }

// Fill adds one weighted entry, returning the (1-based x, 1-based y) bin
// indices, or (-1,-1) if (x,y) falls outside the axis range.
func (h *H2D) Fill(x, y, w float64) (binX, binY int) {
	if h.nBinsX == 0 || h.nBinsY == 0 {
		return -1, -1
	}
	ix := int((x - h.minX) / h.binWidthX())
	iy := int((y - h.minY) / h.binWidthY())
	if ix < 0 || ix >= h.nBinsX || iy < 0 || iy >= h.nBinsY {
		return -1, -1
	}
	h.bins[iy*h.nBinsX+ix].fill(w)
	h.entries++
	h.totals.update(x, y, w)
	return ix + 1, iy + 1
}

func (h *H2D) BinContent(binX, binY int) float64 {
	return h.bins[(binY-1)*h.nBinsX+(binX-1)].value
}

func (h *H2D) BinError(binX, binY int) float64 {
	v := h.bins[(binY-1)*h.nBinsX+(binX-1)].variance
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

func (h *H2D) Reset() {
	for i := range h.bins {
		h.bins[i] = binAcc{}
	}
	h.entries = 0
	h.totals.reset()
}

// Merge folds other's bins/entries/total sums into h in place.
func (h *H2D) Merge(other *H2D) error {
	if h.nBinsX != other.nBinsX || h.nBinsY != other.nBinsY || h.minX != other.minX ||
		h.maxX != other.maxX || h.minY != other.minY || h.maxY != other.maxY {
		return fmt.Errorf("histo: cannot merge H2D %q: axis mismatch", h.Name)
	}
	for i := range h.bins {
		h.bins[i].value += other.bins[i].value
		h.bins[i].variance += other.bins[i].variance
	}
	h.entries += other.entries
	h.totals.sumW += other.totals.sumW
	h.totals.sumW2 += other.totals.sumW2
	h.totals.sumWX += other.totals.sumWX
	h.totals.sumWX2 += other.totals.sumWX2
	h.totals.sumWY += other.totals.sumWY
	h.totals.sumWXY += other.totals.sumWXY
	h.totals.sumWY2 += other.totals.sumWY2
	return nil
}

// NewH2DTsID constructs an empty timeslice-index extension histogram for
// source: its Y axis mirrors source's axis exactly, and its X axis is the
// timeslice index, one bin per unit, grown on demand by AccumulateColumn
// (spec.md §4.7 "StoreVsTsId causes the server to open an extra 2D
// histogram whose extra axis is the timeslice index").
func NewH2DTsID(name, title string, source *H1D) *H2D {
	return &H2D{
		Name: name, Title: title,
		nBinsX: 1, minX: 0, maxX: 1,
		nBinsY: source.nBins, minY: source.min, maxY: source.max,
		bins: make([]binAcc, source.nBins),
	}
}

// growX extends h's X axis to hold at least newNBinsX one-unit-wide
// columns, preserving every existing column's content. h's bins are
// row-major (x fastest), so growing the row stride requires copying every
// row into its new, wider slot.
func (h *H2D) growX(newNBinsX int) {
	if newNBinsX <= h.nBinsX {
		return
	}
	grown := make([]binAcc, newNBinsX*h.nBinsY)
	for y := 0; y < h.nBinsY; y++ {
		copy(grown[y*newNBinsX:y*newNBinsX+h.nBinsX], h.bins[y*h.nBinsX:(y+1)*h.nBinsX])
	}
	h.bins = grown
	h.nBinsX = newNBinsX
	h.maxX = float64(newNBinsX)
}

// AccumulateColumn folds source's bin contents into h's column tsID,
// growing h's X axis to fit tsID if needed (spec.md §4.7's Receiver merge
// semantics: "writing the incoming 1D slice into the row corresponding to
// the sender-provided timeslice index, accumulating bin contents,
// weights, and the axis-wise total sums"). source's axis must match h's Y
// axis exactly, since h's Y axis was defined by the first such source
// NewH2DTsID saw.
func (h *H2D) AccumulateColumn(tsID int, source *H1D) error {
	if source.nBins != h.nBinsY || source.min != h.minY || source.max != h.maxY {
		return fmt.Errorf("histo: cannot extend %q: axis mismatch with column source %q", h.Name, source.Name)
	}
	if tsID < 0 {
		return fmt.Errorf("histo: cannot extend %q: negative timeslice index %d", h.Name, tsID)
	}
	if tsID >= h.nBinsX {
		h.growX(tsID + 1)
	}

	binWidthY := (h.maxY - h.minY) / float64(h.nBinsY)
	x := float64(tsID) + 0.5
	for iy := 0; iy < h.nBinsY; iy++ {
		cell := &h.bins[iy*h.nBinsX+tsID]
		cell.value += source.bins[iy].value
		cell.variance += source.bins[iy].variance

		y := h.minY + (float64(iy)+0.5)*binWidthY
		h.totals.update(x, y, source.bins[iy].value)
	}
	h.entries += source.entries
	return nil
}

// profAcc is a ROOT-style profile bin: weighted sample count plus sums of
// w*y and w*y^2, giving mean/effective-count/SEM per bin.
type profAcc struct {
	sumW, sumWY, sumWY2 float64
}

func (p *profAcc) fill(y, w float64) {
	p.sumW += w
	p.sumWY += w * y
	p.sumWY2 += w * y * y
}

func (p profAcc) mean() float64 {
	if p.sumW == 0 {
		return 0
	}
	return p.sumWY / p.sumW
}

// effCount is ROOT's effective entry count for a weighted sample,
// sum(w)^2/sum(w^2); reduces to the plain count when all weights are 1.
func (p profAcc) effCount() float64 {
	if p.sumWY2 == 0 {
		return 0
	}
	return p.sumW * p.sumW / p.sumWY2
}

func (p profAcc) sem() float64 {
	if p.sumW == 0 {
		return 0
	}
	mean := p.mean()
	variance := p.sumWY2/p.sumW - mean*mean
	if variance < 0 {
		variance = 0
	}
	n := p.effCount()
	if n <= 0 {
		return 0
	}
	return math.Sqrt(variance / n)
}

// Prof1D is a one-dimensional profile histogram: each x-bin accumulates a
// weighted mean/SEM of y, optionally restricted to a [yMin, yMax] keep
// window (Histogram.h's Prof1D::Fill).
type Prof1D struct {
	Name, Title string
	Meta        Metadata

	nBins      int
	min, max   float64
	yMin, yMax float64 // yMin == yMax means unbounded
	bins       []profAcc
	entries    int
	totals     totalSums1D
}

func NewProf1D(name, title string, nBins int, min, max, yMin, yMax float64) *Prof1D {
	return &Prof1D{Name: name, Title: title, nBins: nBins, min: min, max: max, yMin: yMin, yMax: yMax, bins: make([]profAcc, nBins)}
}

func (p *Prof1D) NBins() int { return p.nBins }

func (p *Prof1D) binWidth() float64 { return (p.max - p.min) / float64(p.nBins) }

func (p *Prof1D) Fill(x, y, w float64) int {
	if p.yMin != p.yMax && (y < p.yMin || y > p.yMax) {
		return -1
	}
	if p.nBins == 0 {
		return -1
	}
	idx := int((x - p.min) / p.binWidth())
	if idx < 0 || idx >= p.nBins {
		return -1
	}
	p.bins[idx].fill(y, w)
	p.entries++
	p.totals.update(x, w)
	return idx + 1
}

func (p *Prof1D) BinContent(bin int) float64 { return p.bins[bin-1].mean() }
func (p *Prof1D) BinCount(bin int) float64   { return p.bins[bin-1].effCount() }
func (p *Prof1D) BinError(bin int) float64   { return p.bins[bin-1].sem() }
func (p *Prof1D) MinY() float64              { return p.yMin }
func (p *Prof1D) MaxY() float64              { return p.yMax }
func (p *Prof1D) Entries() int               { return p.entries }

func (p *Prof1D) Reset() {
	for i := range p.bins {
		p.bins[i] = profAcc{}
	}
	p.entries = 0
	p.totals.reset()
}

func (p *Prof1D) Merge(other *Prof1D) error {
	if p.nBins != other.nBins || p.min != other.min || p.max != other.max {
		return fmt.Errorf("histo: cannot merge Prof1D %q: axis mismatch", p.Name)
	}
	for i := range p.bins {
		p.bins[i].sumW += other.bins[i].sumW
		p.bins[i].sumWY += other.bins[i].sumWY
		p.bins[i].sumWY2 += other.bins[i].sumWY2
	}
	p.entries += other.entries
	p.totals.sumW += other.totals.sumW
	p.totals.sumW2 += other.totals.sumW2
	p.totals.sumWX += other.totals.sumWX
	p.totals.sumWX2 += other.totals.sumWX2
	return nil
}

// Prof2D is the two-dimensional counterpart of Prof1D: each (x,y)-bin
// accumulates a weighted mean/SEM of z, with an optional [zMin, zMax]
// keep window.
type Prof2D struct {
	Name, Title string
	Meta        Metadata

	nBinsX, nBinsY int
	minX, maxX     float64
	minY, maxY     float64
	zMin, zMax     float64
	bins           []profAcc
	entries        int
	totals         totalSums2D
}

func NewProf2D(name, title string, nBinsX int, minX, maxX float64, nBinsY int, minY, maxY, zMin, zMax float64) *Prof2D {
	return &Prof2D{
		Name: name, Title: title,
		nBinsX: nBinsX, minX: minX, maxX: maxX,
		nBinsY: nBinsY, minY: minY, maxY: maxY,
		zMin: zMin, zMax: zMax,
		bins: make([]profAcc, nBinsX*nBinsY),
	}
}

func (p *Prof2D) binWidthX() float64 { return (p.maxX - p.minX) / float64(p.nBinsX) }
func (p *Prof2D) binWidthY() float64 { return (p.maxY - p.minY) / float64(p.nBinsY) }

func (p *Prof2D) Fill(x, y, z, w float64) (binX, binY int) {
	if p.zMin != p.zMax && (z < p.zMin || z > p.zMax) {
		return -1, -1
	}
	if p.nBinsX == 0 || p.nBinsY == 0 {
		return -1, -1
	}
	ix := int((x - p.minX) / p.binWidthX())
	iy := int((y - p.minY) / p.binWidthY())
	if ix < 0 || ix >= p.nBinsX || iy < 0 || iy >= p.nBinsY {
		return -1, -1
	}
	p.bins[iy*p.nBinsX+ix].fill(z, w)
	p.entries++
	p.totals.update(x, y, w)
	return ix + 1, iy + 1
}

func (p *Prof2D) BinContent(binX, binY int) float64 { return p.bins[(binY-1)*p.nBinsX+(binX-1)].mean() }
func (p *Prof2D) BinCount(binX, binY int) float64   { return p.bins[(binY-1)*p.nBinsX+(binX-1)].effCount() }
func (p *Prof2D) BinError(binX, binY int) float64   { return p.bins[(binY-1)*p.nBinsX+(binX-1)].sem() }
func (p *Prof2D) MinZ() float64                     { return p.zMin }
func (p *Prof2D) MaxZ() float64                     { return p.zMax }

func (p *Prof2D) Reset() {
	for i := range p.bins {
		p.bins[i] = profAcc{}
	}
	p.entries = 0
	p.totals.reset()
}

func (p *Prof2D) Merge(other *Prof2D) error {
	if p.nBinsX != other.nBinsX || p.nBinsY != other.nBinsY || p.minX != other.minX ||
		p.maxX != other.maxX || p.minY != other.minY || p.maxY != other.maxY {
		return fmt.Errorf("histo: cannot merge Prof2D %q: axis mismatch", p.Name)
	}
	for i := range p.bins {
		p.bins[i].sumW += other.bins[i].sumW
		p.bins[i].sumWY += other.bins[i].sumWY
		p.bins[i].sumWY2 += other.bins[i].sumWY2
	}
	p.entries += other.entries
	p.totals.sumW += other.totals.sumW
	p.totals.sumW2 += other.totals.sumW2
	p.totals.sumWX += other.totals.sumWX
	p.totals.sumWX2 += other.totals.sumWX2
	p.totals.sumWY += other.totals.sumWY
	p.totals.sumWXY += other.totals.sumWXY
	p.totals.sumWY2 += other.totals.sumWY2
	return nil
}
