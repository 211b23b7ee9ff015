package histo

// Snapshot types expose a histogram's full state as plain, fully
// exported structs so they can cross process boundaries via gob or JSON
// (encoding/gob silently drops unexported fields, so the wire layer
// never encodes an *H1D etc. directly).

type H1DSnapshot struct {
	Name, Title                string
	Flags                      uint8
	NBins                      int
	Min, Max                   float64
	Values, Variances          []float64
	Entries                    int
	SumW, SumW2, SumWX, SumWX2 float64
}

func (h *H1D) Snapshot() H1DSnapshot {
	values := make([]float64, h.nBins)
	variances := make([]float64, h.nBins)
	for i, b := range h.bins {
		values[i], variances[i] = b.value, b.variance
	}
	return H1DSnapshot{
		Name: h.Name, Title: h.Title, Flags: uint8(h.Meta.Flags),
		NBins: h.nBins, Min: h.min, Max: h.max,
		Values: values, Variances: variances, Entries: h.entries,
		SumW: h.totals.sumW, SumW2: h.totals.sumW2, SumWX: h.totals.sumWX, SumWX2: h.totals.sumWX2,
	}
}

func H1DFromSnapshot(s H1DSnapshot) *H1D {
	h := NewH1D(s.Name, s.Title, s.NBins, s.Min, s.Max)
	h.Meta.Flags = Flag(s.Flags)
	for i := range h.bins {
		h.bins[i] = binAcc{value: s.Values[i], variance: s.Variances[i]}
	}
	h.entries = s.Entries
	h.totals = totalSums1D{sumW: s.SumW, sumW2: s.SumW2, sumWX: s.SumWX, sumWX2: s.SumWX2}
	return h
}

type H2DSnapshot struct {
	Name, Title       string
	Flags             uint8
	NBinsX, NBinsY    int
	MinX, MaxX        float64
	MinY, MaxY        float64
	Values, Variances []float64
	Entries           int
	SumW, SumW2, SumWX, SumWX2, SumWY, SumWXY, SumWY2 float64
}

func (h *H2D) Snapshot() H2DSnapshot {
	values := make([]float64, len(h.bins))
	variances := make([]float64, len(h.bins))
	for i, b := range h.bins {
		values[i], variances[i] = b.value, b.variance
	}
	return H2DSnapshot{
		Name: h.Name, Title: h.Title, Flags: uint8(h.Meta.Flags),
		NBinsX: h.nBinsX, NBinsY: h.nBinsY, MinX: h.minX, MaxX: h.maxX, MinY: h.minY, MaxY: h.maxY,
		Values: values, Variances: variances, Entries: h.entries,
		SumW: h.totals.sumW, SumW2: h.totals.sumW2, SumWX: h.totals.sumWX, SumWX2: h.totals.sumWX2,
		SumWY: h.totals.sumWY, SumWXY: h.totals.sumWXY, SumWY2: h.totals.sumWY2,
	}
}

func H2DFromSnapshot(s H2DSnapshot) *H2D {
	h := NewH2D(s.Name, s.Title, s.NBinsX, s.MinX, s.MaxX, s.NBinsY, s.MinY, s.MaxY)
	h.Meta.Flags = Flag(s.Flags)
	for i := range h.bins {
		h.bins[i] = binAcc{value: s.Values[i], variance: s.Variances[i]}
	}
	h.entries = s.Entries
	h.totals = totalSums2D{
		totalSums1D: totalSums1D{sumW: s.SumW, sumW2: s.SumW2, sumWX: s.SumWX, sumWX2: s.SumWX2},
		sumWY:       s.SumWY, sumWXY: s.SumWXY, sumWY2: s.SumWY2,
	}
	return h
}

type Prof1DSnapshot struct {
	Name, Title               string
	Flags                     uint8
	NBins                     int
	Min, Max                  float64
	YMin, YMax                float64
	SumW, SumWY, SumWY2       []float64
	Entries                   int
	TSumW, TSumW2, TSumWX, TSumWX2 float64
}

func (p *Prof1D) Snapshot() Prof1DSnapshot {
	sumW := make([]float64, p.nBins)
	sumWY := make([]float64, p.nBins)
	sumWY2 := make([]float64, p.nBins)
	for i, b := range p.bins {
		sumW[i], sumWY[i], sumWY2[i] = b.sumW, b.sumWY, b.sumWY2
	}
	return Prof1DSnapshot{
		Name: p.Name, Title: p.Title, Flags: uint8(p.Meta.Flags),
		NBins: p.nBins, Min: p.min, Max: p.max, YMin: p.yMin, YMax: p.yMax,
		SumW: sumW, SumWY: sumWY, SumWY2: sumWY2, Entries: p.entries,
		TSumW: p.totals.sumW, TSumW2: p.totals.sumW2, TSumWX: p.totals.sumWX, TSumWX2: p.totals.sumWX2,
	}
}

func Prof1DFromSnapshot(s Prof1DSnapshot) *Prof1D {
	p := NewProf1D(s.Name, s.Title, s.NBins, s.Min, s.Max, s.YMin, s.YMax)
	p.Meta.Flags = Flag(s.Flags)
	for i := range p.bins {
		p.bins[i] = profAcc{sumW: s.SumW[i], sumWY: s.SumWY[i], sumWY2: s.SumWY2[i]}
	}
	p.entries = s.Entries
	p.totals = totalSums1D{sumW: s.TSumW, sumW2: s.TSumW2, sumWX: s.TSumWX, sumWX2: s.TSumWX2}
	return p
}

type Prof2DSnapshot struct {
	Name, Title            string
	Flags                  uint8
	NBinsX, NBinsY         int
	MinX, MaxX             float64
	MinY, MaxY             float64
	ZMin, ZMax             float64
	SumW, SumWY, SumWY2    []float64
	Entries                int
	TSumW, TSumW2, TSumWX, TSumWX2, TSumWY, TSumWXY, TSumWY2 float64
}

func (p *Prof2D) Snapshot() Prof2DSnapshot {
	sumW := make([]float64, len(p.bins))
	sumWY := make([]float64, len(p.bins))
	sumWY2 := make([]float64, len(p.bins))
	for i, b := range p.bins {
		sumW[i], sumWY[i], sumWY2[i] = b.sumW, b.sumWY, b.sumWY2
	}
	return Prof2DSnapshot{
		Name: p.Name, Title: p.Title, Flags: uint8(p.Meta.Flags),
		NBinsX: p.nBinsX, NBinsY: p.nBinsY, MinX: p.minX, MaxX: p.maxX, MinY: p.minY, MaxY: p.maxY,
		ZMin: p.zMin, ZMax: p.zMax,
		SumW: sumW, SumWY: sumWY, SumWY2: sumWY2, Entries: p.entries,
		TSumW: p.totals.sumW, TSumW2: p.totals.sumW2, TSumWX: p.totals.sumWX, TSumWX2: p.totals.sumWX2,
		TSumWY: p.totals.sumWY, TSumWXY: p.totals.sumWXY, TSumWY2: p.totals.sumWY2,
	}
}

func Prof2DFromSnapshot(s Prof2DSnapshot) *Prof2D {
	p := NewProf2D(s.Name, s.Title, s.NBinsX, s.MinX, s.MaxX, s.NBinsY, s.MinY, s.MaxY, s.ZMin, s.ZMax)
	p.Meta.Flags = Flag(s.Flags)
	for i := range p.bins {
		p.bins[i] = profAcc{sumW: s.SumW[i], sumWY: s.SumWY[i], sumWY2: s.SumWY2[i]}
	}
	p.entries = s.Entries
	p.totals = totalSums2D{
		totalSums1D: totalSums1D{sumW: s.TSumW, sumW2: s.TSumW2, sumWX: s.TSumWX, sumWX2: s.TSumWX2},
		sumWY:       s.TSumWY, sumWXY: s.TSumWXY, sumWY2: s.TSumWY2,
	}
	return p
}

// ContainerSnapshot is the gob/wire-safe form of Container.
type ContainerSnapshot struct {
	TimesliceID uint64
	H1          []H1DSnapshot
	H2          []H2DSnapshot
	Prof1       []Prof1DSnapshot
	Prof2       []Prof2DSnapshot
}

func (c *Container) Snapshot() ContainerSnapshot {
	s := ContainerSnapshot{TimesliceID: c.TimesliceID}
	for _, h := range c.H1 {
		s.H1 = append(s.H1, h.Snapshot())
	}
	for _, h := range c.H2 {
		s.H2 = append(s.H2, h.Snapshot())
	}
	for _, p := range c.Prof1 {
		s.Prof1 = append(s.Prof1, p.Snapshot())
	}
	for _, p := range c.Prof2 {
		s.Prof2 = append(s.Prof2, p.Snapshot())
	}
	return s
}

func ContainerFromSnapshot(s ContainerSnapshot) *Container {
	c := &Container{TimesliceID: s.TimesliceID}
	for _, h := range s.H1 {
		c.H1 = append(c.H1, H1DFromSnapshot(h))
	}
	for _, h := range s.H2 {
		c.H2 = append(c.H2, H2DFromSnapshot(h))
	}
	for _, p := range s.Prof1 {
		c.Prof1 = append(c.Prof1, Prof1DFromSnapshot(p))
	}
	for _, p := range s.Prof2 {
		c.Prof2 = append(c.Prof2, Prof2DFromSnapshot(p))
	}
	return c
}
