package canvas

import (
	"testing"

	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadConfig_StringFormat(t *testing.T) {
	p := PadConfig{}
	p.SetGrid(true, false)
	p.SetLog(false, true, false)
	p.RegisterObject("h1", "colz")
	assert.Equal(t, "1,0,0,1,0,(h1,colz)", p.String())
}

func TestPadConfig_EmptyRendersNullptrPlaceholder(t *testing.T) {
	p := PadConfig{}
	assert.Equal(t, "0,0,0,0,0,(nullptr,nullptr)", p.String())
}

func TestPadConfig_RegisterHistogram_TsIdVariant(t *testing.T) {
	var p PadConfig
	var meta histo.Metadata
	meta.Set(histo.FlagStoreVsTsID, true)
	p.RegisterHistogram("rate", meta, "hist")
	require.Len(t, p.Objects, 1)
	assert.Equal(t, "rate_ts_id", p.Objects[0].Name)
}

func TestPadConfig_RegisterHistogram_OmitIntegratedSkips(t *testing.T) {
	var p PadConfig
	var meta histo.Metadata
	meta.Set(histo.FlagOmitIntegrated, true)
	p.RegisterHistogram("rate", meta, "hist")
	assert.Empty(t, p.Objects)
}

func TestPadConfig_RoundTrip(t *testing.T) {
	p := PadConfig{GridX: true, LogZ: true}
	p.RegisterObject("h1", "colz")
	p.RegisterObject("h2", "")

	got, err := ParsePad(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCanvasConfig_StringFormat(t *testing.T) {
	c := NewCanvasConfig("cv1", "Canvas 1", 1, 1)
	var p PadConfig
	p.RegisterObject("h1", "colz")
	c.AddPad(p)
	assert.Equal(t, "cv1;Canvas 1;1;1;0,0,0,0,0,(h1,colz);", c.String())
}

func TestCanvasConfig_AddPadGrowsGrid(t *testing.T) {
	c := NewCanvasConfig("cv1", "t", 1, 1)
	c.AddPad(PadConfig{})
	c.AddPad(PadConfig{})
	// 1x1 grid can't hold 2 pads: narrower dimension (tie -> X) grows.
	assert.Equal(t, 2, c.NPadsX)
	assert.Equal(t, 1, c.NPadsY)
}

func TestCanvasConfig_RoundTrip(t *testing.T) {
	c := NewCanvasConfig("cv1", "Canvas 1", 2, 1)
	var p1, p2 PadConfig
	p1.RegisterObject("h1", "colz")
	p1.SetGrid(true, true)
	p2.RegisterObject("h2", "hist")
	p2.SetLog(true, false, true)
	c.AddPad(p1)
	c.AddPad(p2)

	got, err := ParseCanvas(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCanvasConfig_RoundTrip_EmptyPads(t *testing.T) {
	c := NewCanvasConfig("cv1", "t", 1, 1)
	got, err := ParseCanvas(c.String())
	require.NoError(t, err)
	assert.Equal(t, "cv1", got.Name)
	assert.Equal(t, 1, len(got.Pads))
}
