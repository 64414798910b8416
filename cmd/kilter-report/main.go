// Command kilter-report reads a Kilter Board app snapshot and writes the
// analytics report: leaderboards, grade/angle tables and hold usage heat
// maps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/kilter.report/internal/config"
	"github.com/banshee-data/kilter.report/internal/db"
	"github.com/banshee-data/kilter.report/internal/fsutil"
	"github.com/banshee-data/kilter.report/internal/monitoring"
	"github.com/banshee-data/kilter.report/internal/render"
	"github.com/banshee-data/kilter.report/internal/report"
	"github.com/banshee-data/kilter.report/internal/version"
)

// snapshotPattern finds app exports unpacked into subdirectories of the
// working directory, e.g. kilter/db.sqlite3.
const snapshotPattern = "*/*.sqlite3*"

type options struct {
	Input      string
	Output     string
	ConfigFile string
	OutDir     string
	Strata     bool
	Version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("kilter-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Input, "i", "", "input snapshot (default: newest "+snapshotPattern+")")
	fs.StringVar(&o.Output, "o", "", "accepted for compatibility, unused")
	fs.StringVar(&o.ConfigFile, "c", "", "config file (.yaml, .yml or .json)")
	fs.StringVar(&o.OutDir, "out", "", "output directory (overrides output_dir)")
	fs.BoolVar(&o.Strata, "strata", false, "also aggregate hold usage per grade and angle")
	fs.BoolVar(&o.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kilter-report [-i snapshot] [-c config] [-out dir] [-strata]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func loadConfig(o options) (*config.ReportConfig, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.OutDir != "" {
		cfg.OutputDir = o.OutDir
	}
	if o.Strata {
		cfg.Stratified = true
	}
	return cfg, nil
}

// resolveInput returns the -i path or the newest snapshot below the
// working directory.
func resolveInput(fsys fsutil.FileSystem, input string) (string, error) {
	if input != "" {
		return input, nil
	}
	path, err := fsutil.Latest(fsys, snapshotPattern)
	if err != nil {
		return "", fmt.Errorf("%w: %w", db.ErrSourceUnavailable, err)
	}
	return path, nil
}

func run(ctx context.Context, o options, cfg *config.ReportConfig, fsys fsutil.FileSystem) (*report.Summary, error) {
	if o.Output != "" {
		monitoring.Logf("-o %s is ignored; writing to %s", o.Output, cfg.OutputDir)
	}

	input, err := resolveInput(fsys, o.Input)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("reading %s", input)

	snap, err := db.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	out := render.NewOutput(fsys, cfg.OutputDir)
	metrics := monitoring.NewRunMetrics()
	out.Metrics = metrics

	sink, err := report.BuildSink(cfg, out)
	if err != nil {
		return nil, err
	}
	sum, err := report.NewRunner(snap, cfg, sink, out, metrics).Run(ctx, input)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if o.Version {
		fmt.Println(version.Current())
		return
	}

	cfg, err := loadConfig(o)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := monitoring.Init(monitoring.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, o, cfg, fsutil.OSFileSystem{})
	if err != nil {
		monitoring.Logger().Error().Err(err).Msg("report failed")
		stop()
		os.Exit(1)
	}
	monitoring.Logf("wrote %d artifacts to %s (run %s)", len(sum.Artifacts), cfg.OutputDir, sum.RunID)
}
