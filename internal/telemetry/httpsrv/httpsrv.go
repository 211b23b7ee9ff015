// Package httpsrv implements the telemetry listing server (spec.md §6): a
// small HTTP surface showing every registered 1D histogram and 1D profile
// as a live chart,
// plus three control endpoints (reset/save/stop). Route registration and
// the goroutine+ListenAndServe+graceful-Shutdown lifecycle mirror
// legacy/internal/lidar/monitor/webserver.go's WebServer; chart rendering
// uses go-echarts the same way that file's handleTrafficChart/
// handleBackgroundGridPolar do.
package httpsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// Config holds the listing server's configuration.
type Config struct {
	ListenAddr string
}

// Hooks lets the driver wire reset/save behaviour without this package
// depending on the archive/driver packages directly.
type Hooks struct {
	OnReset func()
	OnSave  func() error
}

// Server serves a live listing of every registered histogram plus the
// three control endpoints spec.md §6 names.
type Server struct {
	cfg   Config
	hooks Hooks
	log   *logging.Logger

	server *http.Server

	mu        sync.RWMutex
	container *histo.Container
}

// New constructs a listing server. SetContainer supplies (and can later
// replace) the histogram set it renders.
func New(cfg Config, hooks Hooks, log *logging.Logger) *Server {
	s := &Server{cfg: cfg, hooks: hooks, log: log, container: &histo.Container{}}
	s.server = &http.Server{Addr: cfg.ListenAddr, Handler: s.routes()}
	return s
}

// SetContainer swaps the histogram set served by "/". Safe for concurrent use.
func (s *Server) SetContainer(c *histo.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.container = c
}

func (s *Server) snapshot() *histo.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.container
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/Reset_Hist", s.handleResetHist)
	mux.HandleFunc("/Save_Hist", s.handleSaveHist)
	mux.HandleFunc("/Stop_Server", s.handleStopServer)
	return mux
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully, mirroring WebServer.Start's goroutine + ctx.Done + Shutdown
// sequence.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.log.Info("telemetry listing server on %s", s.cfg.ListenAddr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("telemetry listing server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleIndex renders one bar chart per 1D histogram and 1D profile; 2D
// histograms, 2D profiles and canvases are not shown on the page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := s.snapshot()

	page := components.NewPage()
	for _, h := range c.H1 {
		page.AddCharts(h1DBarChart(h))
	}
	for _, p := range c.Prof1 {
		page.AddCharts(prof1DBarChart(p))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func h1DBarChart(h *histo.H1D) *charts.Bar {
	bars := make([]opts.BarData, h.NBins())
	labels := make([]string, h.NBins())
	width := (h.Max() - h.Min()) / float64(h.NBins())
	for i := 0; i < h.NBins(); i++ {
		bars[i] = opts.BarData{Value: h.BinContent(i + 1)}
		labels[i] = fmt.Sprintf("%.2f", h.Min()+float64(i)*width)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: h.Title, Subtitle: fmt.Sprintf("entries=%d mean=%.3f", h.Entries(), h.Mean())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(h.Name, bars)
	return bar
}

func prof1DBarChart(p *histo.Prof1D) *charts.Bar {
	bars := make([]opts.BarData, p.NBins())
	labels := make([]string, p.NBins())
	for i := 0; i < p.NBins(); i++ {
		bars[i] = opts.BarData{Value: p.BinContent(i + 1)}
		labels[i] = fmt.Sprintf("bin %d", i+1)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: fmt.Sprintf("entries=%d", p.Entries())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(p.Name, bars)
	return bar
}

func (s *Server) handleResetHist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if s.hooks.OnReset != nil {
		s.hooks.OnReset()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSaveHist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if s.hooks.OnSave != nil {
		if err := s.hooks.OnSave(); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStopServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopping"})
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
}
