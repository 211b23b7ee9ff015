// Package plothist renders a histogram container to offline PNG charts,
// one file per histogram, the archive-side counterpart to httpsrv's live
// HTML listing. Grounded on
// legacy/internal/lidar/monitor/gridplotter.go's GridPlotter:
// GeneratePlots/generateRingPlot build one gonum.org/v1/plot chart per
// series and save it via (*plot.Plot).Save; here each histogram stands in
// for GridPlotter's per-ring series.
package plothist

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// chartWidth/chartHeight match gridplotter.go's 14x6 inch PNG canvas.
const (
	chartWidth  = 14 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// WriteContainer renders every 1D histogram/profile in c as a line-chart
// PNG under outputDir, named "<name>.png". 2D histograms and profiles are
// skipped, matching httpsrv's own "2D heatmap rendering is out of scope"
// carve-out. Returns the number of files written.
func WriteContainer(outputDir string, c *histo.Container) (int, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: plothist: mkdir %s: %v", recoerr.ErrArchiveIO, outputDir, err)
	}

	n := 0
	for _, h := range c.H1 {
		if err := writeH1D(outputDir, h); err != nil {
			return n, err
		}
		n++
	}
	for _, p := range c.Prof1 {
		if err := writeProf1D(outputDir, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writeH1D(outputDir string, h *histo.H1D) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (entries=%d, mean=%.3f)", h.Title, h.Entries(), h.Mean())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "content"

	width := (h.Max() - h.Min()) / float64(h.NBins())
	pts := make(plotter.XYs, h.NBins())
	for i := range pts {
		pts[i].X = h.Min() + (float64(i)+0.5)*width
		pts[i].Y = h.BinContent(i + 1)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plothist: %s: %w", h.Name, err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	path := filepath.Join(outputDir, h.Name+".png")
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("%w: plothist: save %s: %v", recoerr.ErrArchiveIO, path, err)
	}
	return nil
}

func writeProf1D(outputDir string, pr *histo.Prof1D) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (entries=%d)", pr.Title, pr.Entries())
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "mean"

	pts := make(plotter.XYs, pr.NBins())
	for i := range pts {
		pts[i].X = float64(i + 1)
		pts[i].Y = pr.BinContent(i + 1)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plothist: %s: %w", pr.Name, err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	path := filepath.Join(outputDir, pr.Name+".png")
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("%w: plothist: save %s: %v", recoerr.ErrArchiveIO, path, err)
	}
	return nil
}
