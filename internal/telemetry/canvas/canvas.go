// Package canvas implements the canvas/pad configuration DSL used by the
// histogram telemetry wire protocol's config message (spec.md §4.7/§6):
// a pad lists the objects (histograms/canvases) drawn on it plus
// grid/log-axis flags, and a canvas lists its pads plus a grid layout.
//
// The text grammar is carried exactly from
// original_source/algo/qa/CanvasConfig.cxx and algo/qa/PadConfig.cxx:
//
//	canvas := name ';' title ';' nPadsX ';' nPadsY (';' pad)+ ';'
//	pad    := gridX ',' gridY ',' logX ',' logY ',' logZ (',' '(' name ',' opt ')')*
//
// gridX/gridY/logX/logY/logZ render as "0"/"1" (C++ operator<< on bool
// without std::boolalpha).
package canvas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// TsIDSuffix is appended to a histogram's name when it is registered as
// its timeslice-indexed variant (HistogramMetadata::ksTsIdSuffix).
const TsIDSuffix = "_ts_id"

// ObjectRef is one drawn object on a pad: its registered name and ROOT
// draw option string.
type ObjectRef struct {
	Name string
	Opt  string
}

// PadConfig is one pad's axis flags plus its drawn objects.
type PadConfig struct {
	GridX, GridY bool
	LogX, LogY, LogZ bool
	Objects          []ObjectRef
}

// SetGrid sets both grid flags.
func (p *PadConfig) SetGrid(gridX, gridY bool) { p.GridX, p.GridY = gridX, gridY }

// SetLog sets all three log-axis flags.
func (p *PadConfig) SetLog(logX, logY, logZ bool) { p.LogX, p.LogY, p.LogZ = logX, logY, logZ }

// RegisterObject appends an object reference.
func (p *PadConfig) RegisterObject(name, opt string) {
	p.Objects = append(p.Objects, ObjectRef{Name: name, Opt: opt})
}

// RegisterHistogram mirrors PadConfig::RegisterHistogram: a histogram
// storing a per-timeslice variant registers only that variant; otherwise
// it registers its integrated name, unless OmitIntegrated is set (in
// which case it is not drawn on this pad at all).
func (p *PadConfig) RegisterHistogram(name string, meta histo.Metadata, opt string) {
	switch {
	case meta.Has(histo.FlagStoreVsTsID):
		p.RegisterObject(name+TsIDSuffix, opt)
	case !meta.Has(histo.FlagOmitIntegrated):
		p.RegisterObject(name, opt)
	}
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// String renders the pad in CanvasConfig.cxx's wire grammar.
func (p PadConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s,%s,%s,%s,%s", boolStr(p.GridX), boolStr(p.GridY), boolStr(p.LogX), boolStr(p.LogY), boolStr(p.LogZ))
	if len(p.Objects) == 0 {
		b.WriteString(",(nullptr,nullptr)")
		return b.String()
	}
	for _, o := range p.Objects {
		fmt.Fprintf(&b, ",(%s,%s)", o.Name, o.Opt)
	}
	return b.String()
}

// ParsePad parses one pad token as produced by PadConfig.String.
func ParsePad(s string) (PadConfig, error) {
	fields := splitTopLevel(s, ',')
	if len(fields) < 5 {
		return PadConfig{}, fmt.Errorf("canvas: malformed pad config %q: need 5 flags, got %d fields", s, len(fields))
	}
	flags := make([]bool, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseBool(strings.TrimSpace(fields[i]))
		if err != nil {
			return PadConfig{}, fmt.Errorf("canvas: parse pad flag %d (%q): %w", i, fields[i], err)
		}
		flags[i] = v
	}
	p := PadConfig{GridX: flags[0], GridY: flags[1], LogX: flags[2], LogY: flags[3], LogZ: flags[4]}

	for _, tok := range fields[5:] {
		tok = strings.TrimSpace(tok)
		if !strings.HasPrefix(tok, "(") || !strings.HasSuffix(tok, ")") {
			return PadConfig{}, fmt.Errorf("canvas: malformed object token %q", tok)
		}
		inner := tok[1 : len(tok)-1]
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return PadConfig{}, fmt.Errorf("canvas: malformed object token %q", tok)
		}
		name, opt := parts[0], parts[1]
		if name == "nullptr" && opt == "nullptr" {
			continue // empty-pad placeholder, not a real object
		}
		p.RegisterObject(name, opt)
	}
	return p, nil
}

// splitTopLevel splits s on sep, ignoring occurrences inside balanced
// parentheses, so a pad's "(name,opt)" tuples survive splitting on ','.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// CanvasConfig is a canvas's pad grid layout plus its pads.
type CanvasConfig struct {
	Name, Title    string
	NPadsX, NPadsY int
	Pads           []PadConfig
}

// NewCanvasConfig constructs a canvas with the given initial grid size.
func NewCanvasConfig(name, title string, nPadsX, nPadsY int) *CanvasConfig {
	if nPadsX == 0 {
		nPadsX = 1
	}
	if nPadsY == 0 {
		nPadsY = 1
	}
	return &CanvasConfig{Name: name, Title: title, NPadsX: nPadsX, NPadsY: nPadsY}
}

// AddPad appends a pad, growing the grid layout by one row/column (the
// narrower dimension) whenever the current grid can no longer hold every
// pad, exactly as CanvasConfig::AddPadConfig does.
func (c *CanvasConfig) AddPad(p PadConfig) {
	c.Pads = append(c.Pads, p)
	if c.NPadsX*c.NPadsY < len(c.Pads) {
		if c.NPadsX > c.NPadsY {
			c.NPadsY++
		} else {
			c.NPadsX++
		}
	}
}

// String renders the canvas in CanvasConfig.cxx's wire grammar.
func (c CanvasConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s;%s;%d;%d", c.Name, c.Title, c.NPadsX, c.NPadsY)
	if len(c.Pads) == 0 {
		b.WriteString(";")
		b.WriteString(PadConfig{}.String())
	} else {
		for _, p := range c.Pads {
			b.WriteString(";")
			b.WriteString(p.String())
		}
	}
	b.WriteString(";")
	return b.String()
}

// ParseCanvas parses a canvas DSL string as produced by CanvasConfig.String.
func ParseCanvas(s string) (*CanvasConfig, error) {
	s = strings.TrimSuffix(s, ";")
	fields := strings.Split(s, ";")
	if len(fields) < 4 {
		return nil, fmt.Errorf("canvas: malformed canvas config %q", s)
	}
	nx, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("canvas: parse nPadsX: %w", err)
	}
	ny, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("canvas: parse nPadsY: %w", err)
	}
	c := &CanvasConfig{Name: fields[0], Title: fields[1], NPadsX: nx, NPadsY: ny}
	for _, padStr := range fields[4:] {
		p, err := ParsePad(padStr)
		if err != nil {
			return nil, err
		}
		c.Pads = append(c.Pads, p)
	}
	return c, nil
}
