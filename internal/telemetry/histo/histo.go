// Package histo implements the ROOT-free histogram/profile types used by
// the telemetry pipeline (spec.md §4.7): H1D, H2D, Prof1D, Prof2D, each
// carrying a metadata flag word and the running total-sum accumulators
// needed to report a histogram's overall mean/stddev without rescanning
// its bins.
//
// Bin layout and accumulator fields are grounded on
// original_source/algo/qa/Histogram.h (HistogramMetadata, TotalSums1D/2D,
// H1D/H2D/Prof1D/Prof2D); the weighted-storage bin (value, variance) pair
// mirrors boost::histogram's weight_storage cell there.
package histo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Flag is one bit of HistogramMetadata's control-flag word.
type Flag uint8

const (
	FlagStoreVsTsID    Flag = 1 << iota // store the histogram vs. timeslice index
	FlagOmitIntegrated                  // omit storing the all-timeslices-integrated histogram
	FlagSetMinimum                      // a display minimum has been set
)

// Metadata is the small control-flag word sent alongside a histogram's
// name in the wire protocol's config message.
type Metadata struct {
	Flags Flag
}

// Has reports whether f is set.
func (m Metadata) Has(f Flag) bool { return m.Flags&f != 0 }

// Set sets or clears f.
func (m *Metadata) Set(f Flag, v bool) {
	if v {
		m.Flags |= f
	} else {
		m.Flags &^= f
	}
}

// Valid mirrors HistogramMetadata::CheckFlags: a histogram must be
// plotted either vs. timeslice index, or integrated over all of them.
func (m Metadata) Valid() bool { return m.Has(FlagStoreVsTsID) || !m.Has(FlagOmitIntegrated) }

// String renders the flag word as two lowercase hex digits.
func (m Metadata) String() string { return fmt.Sprintf("%02x", uint8(m.Flags)) }

// ParseMetadata parses a metadata string as produced by String. An empty
// string decodes to the zero value.
func ParseMetadata(s string) (Metadata, error) {
	if s == "" {
		return Metadata{}, nil
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return Metadata{}, fmt.Errorf("histo: parse metadata %q: %w", s, err)
	}
	return Metadata{Flags: Flag(v)}, nil
}

// SeparateNameAndMetadata splits a "name!metadata" wire token on its last
// '!', matching HistogramMetadata::SeparateNameAndMetadata. A token with
// no '!' returns an empty metadata string.
func SeparateNameAndMetadata(msg string) (name, metadata string) {
	idx := strings.LastIndex(msg, "!")
	if idx < 0 {
		return msg, ""
	}
	return msg[:idx], msg[idx+1:]
}

// totalSums1D mirrors TotalSums1D: running sums of weight and
// weight*x/weight*x^2, updated only for in-range fills.
type totalSums1D struct {
	sumW, sumW2, sumWX, sumWX2 float64
}

func (s *totalSums1D) update(x, w float64) {
	s.sumW += w
	s.sumW2 += w * w
	s.sumWX += w * x
	s.sumWX2 += w * x * x
}

func (s *totalSums1D) reset() { *s = totalSums1D{} }

// Mean returns the weighted mean over all in-range fills, NaN if empty.
func (s totalSums1D) Mean() float64 {
	if s.sumW == 0 {
		return math.NaN()
	}
	return s.sumWX / s.sumW
}

// StdDev returns the weighted standard deviation over all in-range fills.
func (s totalSums1D) StdDev() float64 {
	if s.sumW == 0 {
		return math.NaN()
	}
	mean := s.sumWX / s.sumW
	variance := s.sumWX2/s.sumW - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

type totalSums2D struct {
	totalSums1D
	sumWY, sumWXY, sumWY2 float64
}

func (s *totalSums2D) update(x, y, w float64) {
	s.totalSums1D.update(x, w)
	s.sumWXY += w * x * y
	s.sumWY += w * y
	s.sumWY2 += w * y * y
}

func (s *totalSums2D) reset() { *s = totalSums2D{} }

// binAcc is one weight_storage cell: accumulated weight and weight^2,
// giving content = value and error = sqrt(variance) per ROOT convention.
type binAcc struct {
	value, variance float64
}

func (b *binAcc) fill(w float64) {
	b.value += w
	b.variance += w * w
}

// H1D is a one-dimensional weighted histogram over nBins regular bins in
// [min, max).
type H1D struct {
	Name, Title string
	Meta        Metadata

	nBins    int
	min, max float64
	bins     []binAcc
	entries  int
	totals   totalSums1D
}

// NewH1D constructs an empty histogram.
func NewH1D(name, title string, nBins int, min, max float64) *H1D {
	return &H1D{Name: name, Title: title, nBins: nBins, min: min, max: max, bins: make([]binAcc, nBins)}
}

// NBins, Min, Max expose the axis definition.
func (h *H1D) NBins() int    { return h.nBins }
func (h *H1D) Min() float64  { return h.min }
func (h *H1D) Max() float64  { return h.max }
func (h *H1D) Entries() int  { return h.entries }

func (h *H1D) binWidth() float64 { return (h.max - h.min) / float64(h.nBins) }

// Fill adds one weighted entry. Returns the 1-based bin index, or -1 if x
// falls outside [min, max) (ROOT TH1::Fill convention: out-of-range fills
// don't update the total sums).
func (h *H1D) Fill(x, w float64) int {
	if h.nBins == 0 {
		return -1
	}
	idx := int((x - h.min) / h.binWidth())
	if idx < 0 || idx >= h.nBins {
		return -1
	}
	h.bins[idx].fill(w)
	h.entries++
	h.totals.update(x, w)
	return idx + 1
}

// BinContent returns bin's accumulated weight (1-based bin index).
func (h *H1D) BinContent(bin int) float64 { return h.bins[bin-1].value }

// BinError returns sqrt(variance) for bin (1-based bin index).
func (h *H1D) BinError(bin int) float64 { return math.Sqrt(h.bins[bin-1].variance) }

// Mean/StdDev report the overall weighted mean/stddev across all in-range
// fills, computed from the running total sums (not rescanning bins).
func (h *H1D) Mean() float64   { return h.totals.Mean() }
func (h *H1D) StdDev() float64 { return h.totals.StdDev() }

// Reset clears all bins, entries and total sums.
func (h *H1D) Reset() {
	for i := range h.bins {
		h.bins[i] = binAcc{}
	}
	h.entries = 0
	h.totals.reset()
}

// binCenters returns the geometric center of every bin, used by
// WeightedMeanStdDev to compute a weighted mean/stddev summary via
// gonum/stat rather than re-deriving it by hand.
func (h *H1D) binCenters() []float64 {
	centers := make([]float64, h.nBins)
	w := h.binWidth()
	for i := range centers {
		centers[i] = h.min + (float64(i)+0.5)*w
	}
	return centers
}

// WeightedMeanStdDev recomputes mean/stddev directly from the bin
// contents via gonum/stat, as a cross-check against the streamed
// totalSums-based Mean/StdDev above (both should agree up to rounding).
func (h *H1D) WeightedMeanStdDev() (mean, stddev float64) {
	weights := make([]float64, h.nBins)
	for i := range h.bins {
		weights[i] = h.bins[i].value
	}
	return stat.MeanStdDev(h.binCenters(), weights)
}

// Merge folds other's bins, entries and total sums into h in place.
// Merging requires identical axis definitions (spec.md §8 "histogram
// merge commutativity/associativity").
func (h *H1D) Merge(other *H1D) error {
	if h.nBins != other.nBins || h.min != other.min || h.max != other.max {
		return fmt.Errorf("histo: cannot merge H1D %q: axis mismatch", h.Name)
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
	return nil
}
