// Command tsreco runs the online reconstruction core: it pulls
// timeslices from a source, dispatches them through the per-detector
// reconstruction stages, and optionally archives the results and
// publishes per-timeslice histograms to a telemetry endpoint.
//
// Flag registration and signal-driven graceful shutdown follow
// legacy/cmd/lidar/lidar.go's own main: package-level flag.* vars,
// signal.NotifyContext, and a sync.WaitGroup joining the background
// goroutines before exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/cbm-fles/tsreco/internal/archive"
	"github.com/cbm-fles/tsreco/internal/archive/histostore"
	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/paramcfg"
	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/telemetry/httpsrv"
	"github.com/cbm-fles/tsreco/internal/telemetry/plothist"
	"github.com/cbm-fles/tsreco/internal/telemetry/registry"
	"github.com/cbm-fles/tsreco/internal/telemetry/wire"
	"github.com/cbm-fles/tsreco/internal/tsdriver"
	"github.com/cbm-fles/tsreco/internal/tssource/pcapsource"
)

// demoUDPPort is the UDP destination port pcapsource filters pcap
// captures on. Not a spec-named flag: pcapsource is a demo/reference
// Source, not a production ingest path (see its own package doc).
const demoUDPPort = 47265

var (
	input               = flag.String("input", "", "timeslice source locator (path to a pcap capture for the reference source)")
	output              = flag.String("output", "", "archive output file; empty = no archive")
	compressed          = flag.Bool("compressed", false, "enable ZSTD archive compression")
	logLevel            = flag.String("log-level", "info", "log level: trace, debug, info, warning, error")
	logFile             = flag.String("log-file", "", "log file path; empty = stderr")
	device              = flag.Int("device", -1, "accelerator device index (accepted for CLI compatibility; this build is CPU-only)")
	ompThreads          = flag.Int("omp-threads", 0, "CPU worker count; 0 = runtime.GOMAXPROCS default")
	numTs               = flag.Int("num-ts", 0, "number of timeslices to process; 0 = unlimited")
	skipTs              = flag.Int("skip-ts", 0, "number of leading timeslices to skip")
	collectKernelTimes  = flag.Bool("collect-kernel-times", false, "enable accelerator profiling (accepted for CLI compatibility; unused on this CPU-only build)")
	dumpArchive         = flag.String("dump-archive", "", "read-back mode: print a summary of the archive at this path and exit")
	configPath          = flag.String("config", paramcfg.DefaultConfigPath, "calibration parameter JSON file")
	telemetryListenAddr = flag.String("telemetry", "", "wire protocol listen address; empty = telemetry publish disabled")
	httpListenAddr      = flag.String("http-listen", "", "telemetry HTTP listing/control server address; empty = disabled")
	histoDBPath         = flag.String("histo-db", "", "on-disk histogram store path; empty = disabled")
	plotDir             = flag.String("plot-dir", "", "directory for offline PNG histogram charts; empty = disabled")
	receiveAddr         = flag.String("receive", "", "wire protocol address to connect to as a histogram receiver; when set, tsreco runs as a receive-only telemetry aggregator instead of processing --input")
)

func main() {
	flag.Parse()

	if *dumpArchive != "" {
		if err := runDumpArchive(*dumpArchive); err != nil {
			fmt.Fprintln(os.Stderr, "tsreco:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tsreco:", err)
		os.Exit(1)
	}
}

func run() error {
	if *input == "" && *receiveAddr == "" {
		return fmt.Errorf("%w: tsreco: --input or --receive is required", recoerr.ErrConfig)
	}
	if *ompThreads > 0 {
		runtime.GOMAXPROCS(*ompThreads)
	}

	log, err := logging.New(logging.ParseLevel(*logLevel), *logFile)
	if err != nil {
		return fmt.Errorf("tsreco: logger: %w", err)
	}

	paramFile, err := paramcfg.Load(*configPath)
	if err != nil {
		return fmt.Errorf("tsreco: config: %w", err)
	}
	cfg := paramcfg.ToConfig(paramFile)

	runID := uuid.New()
	driver, err := tsdriver.NewDriver(cfg, runID, log)
	if err != nil {
		return fmt.Errorf("tsreco: driver: %w", err)
	}
	log.Info("tsreco: run %s starting, input=%s", runID, *input)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var sender *wire.Sender
	var httpServer *httpsrv.Server

	var histoStore *histostore.Store
	if *histoDBPath != "" {
		histoStore, err = histostore.Open(*histoDBPath)
		if err != nil {
			return fmt.Errorf("tsreco: histostore: %w", err)
		}
		defer histoStore.Close()
	}

	// In --receive mode the integrated view is a registry.Registry fed by
	// runReceive instead of this process's own driver; onReset/integrated
	// pick the active one so the HTTP control endpoints (spec.md §6
	// "/Reset_Hist"/"/Save_Hist") work the same either way.
	var reg *registry.Registry
	onReset := driver.ResetHistograms
	integrated := driver.Integrated
	if *receiveAddr != "" {
		reg = registry.New()
		onReset = reg.Reset
		integrated = reg.Container
	}

	// saveIntegrated mirrors the integrated histogram container into the
	// on-disk store under this run's folder path (spec.md §6's
	// directory-structured mirror, stood in by histostore).
	saveIntegrated := func() error {
		if histoStore == nil {
			return nil
		}
		return histoStore.PutContainer(fmt.Sprintf("runs/%s/integrated", runID), integrated(), time.Now().UnixNano())
	}

	if *telemetryListenAddr != "" {
		sender = wire.NewSender(wire.Config{ListenAddr: *telemetryListenAddr, Compress: *compressed}, log)
		if err := sender.Listen(); err != nil {
			return fmt.Errorf("tsreco: telemetry: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sender.Serve(); err != nil {
				log.Error("tsreco: telemetry sender stopped: %v", err)
			}
		}()
		defer sender.Stop()
	}

	if *httpListenAddr != "" {
		httpServer = httpsrv.New(httpsrv.Config{ListenAddr: *httpListenAddr}, httpsrv.Hooks{
			OnReset: onReset,
			OnSave:  saveIntegrated,
		}, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpServer.Start(ctx); err != nil {
				log.Error("tsreco: http server stopped: %v", err)
			}
		}()
	}

	if *receiveAddr != "" {
		if err := runReceive(ctx, *receiveAddr, reg, httpServer, saveIntegrated, log); err != nil && err != context.Canceled {
			return err
		}
		stop()
		wg.Wait()
		log.Info("tsreco: run %s complete", runID)
		return nil
	}

	src, err := pcapsource.New(pcapsource.Config{Path: *input, UDPPort: demoUDPPort})
	if err != nil {
		return fmt.Errorf("tsreco: source: %w", err)
	}
	defer src.Close()

	var writer *archive.Writer
	if *output != "" {
		writer, err = archive.Create(*output, archive.Header{RunID: runID}, *compressed)
		if err != nil {
			return fmt.Errorf("tsreco: archive: %w", err)
		}
		defer writer.Close()
	}

	if err := processLoop(ctx, driver, src, writer, sender, log); err != nil && err != context.Canceled {
		return err
	}

	if httpServer != nil {
		httpServer.SetContainer(driver.Integrated())
	}
	if err := saveIntegrated(); err != nil {
		log.Error("tsreco: histostore save: %v", err)
	}
	if *plotDir != "" {
		n, err := plothist.WriteContainer(*plotDir, driver.Integrated())
		if err != nil {
			log.Error("tsreco: plothist: %v", err)
		} else {
			log.Info("tsreco: wrote %d histogram charts to %s", n, *plotDir)
		}
	}
	stop()
	wg.Wait()
	log.Info("tsreco: run %s complete", runID)
	return nil
}

// processLoop pulls timeslices until the source is exhausted, --num-ts
// is reached, or ctx is cancelled, dispatching each to the driver and
// its archive/telemetry sinks.
func processLoop(ctx context.Context, driver *tsdriver.Driver, src tsdriver.Source, writer *archive.Writer, sender *wire.Sender, log *logging.Logger) error {
	processed := 0
	skipped := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ts, err := src.Next(ctx)
		if err == io.EOF {
			log.Info("tsreco: source exhausted after %d timeslices", processed)
			return nil
		}
		if err != nil {
			return fmt.Errorf("tsreco: source: %w", err)
		}

		if skipped < *skipTs {
			skipped++
			continue
		}

		res, err := driver.Process(ts)
		if err != nil {
			return fmt.Errorf("tsreco: process timeslice %d: %w", ts.Index, err)
		}

		if writer != nil {
			if err := writer.WriteRecord(res); err != nil {
				return fmt.Errorf("tsreco: %w", err)
			}
		}
		if sender != nil {
			sender.Publish(driver.LastTimeslice())
		}

		processed++
		if *numTs > 0 && processed >= *numTs {
			log.Info("tsreco: reached --num-ts=%d, stopping", *numTs)
			return nil
		}
	}
}

// runReceive drives the spec.md §4.7 "Receiver" role: a single-threaded
// loop that dials a wire.Sender, pulls config/data messages with
// Subscribe, and folds every incoming container into reg by name,
// extending StoreVsTsId-flagged histograms into their "<name>_ts_id" 2D
// view. Each update is pushed to httpServer (when enabled) and mirrored
// via saveIntegrated so --histo-db reflects the aggregated, not just
// locally-produced, view.
func runReceive(ctx context.Context, addr string, reg *registry.Registry, httpServer *httpsrv.Server, saveIntegrated func() error, log *logging.Logger) error {
	rcv, err := wire.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("tsreco: receive: dial %s: %w", addr, err)
	}
	defer rcv.Close()

	data, config, errCh := rcv.Subscribe(ctx)
	received := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cfg, ok := <-config:
			if !ok {
				config = nil
				continue
			}
			log.Debug("tsreco: receive: config: %d histograms, %d canvases", len(cfg.Histograms), len(cfg.Canvases))

		case c, ok := <-data:
			if !ok {
				log.Info("tsreco: receive: sender closed after %d containers", received)
				return nil
			}
			if err := reg.Merge(c); err != nil {
				log.Error("tsreco: receive: merge: %v", err)
				continue
			}
			received++
			if httpServer != nil {
				httpServer.SetContainer(reg.Container())
			}
			if err := saveIntegrated(); err != nil {
				log.Error("tsreco: receive: histostore: %v", err)
			}

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("tsreco: receive: %w", err)
			}
		}
	}
}

// runDumpArchive opens an archive and prints a one-line summary per
// record (spec.md §6 "--dump-archive": first N events, first M hits
// per sensor, first K tracks — this CLI reports full per-record
// counts rather than truncating, since printing a count is cheap
// regardless of size).
func runDumpArchive(path string) error {
	r, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("dump-archive: %w", err)
	}
	defer r.Close()

	h := r.Header()
	fmt.Printf("run %s, created unix-nano %d\n", h.RunID, h.CreatedUnixNano)

	n := 0
	for {
		res, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("dump-archive: %w", err)
		}
		n++
		fmt.Printf("ts=%d start=%.3f sts_modules=%d trd2d_modules=%d trd1d_modules=%d tof_digis=%d bmon_hits=%d tracks=%d\n",
			res.Timeslice, res.StartTime, len(res.STS), len(res.TRD2D), len(res.TRD1D), len(res.TOFDigis), len(res.BMonHits), len(res.Tracks))
	}
	fmt.Printf("%d records\n", n)
	return nil
}
