// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command redsim simulates circuit description documents.
//
// With a single document, redsim can write a compressed snapshot trace and a
// waveform plot of the run. With several documents, the runs are simulated
// concurrently and only their reports are printed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/db47h/redsim"
	"github.com/db47h/redsim/desc"
	"github.com/db47h/redsim/internal/runindex"
	"github.com/db47h/redsim/internal/trace"
	"github.com/db47h/redsim/internal/tuning"
	"github.com/db47h/redsim/internal/waveform"
	"github.com/pkg/errors"
)

func main() {
	var (
		config   = flag.String("config", "", "run configuration file (YAML, optional)")
		maxTicks = flag.Uint64("max_ticks", 0, "tick bound, overrides the configuration")
		tracePth = flag.String("trace", "", "write a zstd JSONL snapshot trace to this file")
		plotPth  = flag.String("plot", "", "write a waveform plot to this file (.png, .svg, .pdf)")
		ports    = flag.String("ports", "", "comma separated ports to plot, as component.port")
		dbPath   = flag.String("db", "", "record runs in this SQLite index")
		workers  = flag.Int("workers", 0, "concurrent simulations when running several documents")
		level    = flag.String("log", "info", "log level: debug, info, warn or error")
	)
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*level)); err != nil {
		fmt.Fprintln(os.Stderr, "bad -log value:", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: redsim [flags] circuit.yaml...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	tu := tuning.Default()
	if *config != "" {
		var err error
		if tu, err = tuning.Load(*config); err != nil {
			logger.Error("load configuration", "err", err)
			os.Exit(1)
		}
	}
	if *maxTicks != 0 {
		tu.MaxTicks = *maxTicks
	}
	if *tracePth != "" {
		tu.Output.Trace = *tracePth
	}
	if *plotPth != "" {
		tu.Output.Plot = *plotPth
	}
	if *ports != "" {
		tu.Output.PlotPorts = strings.Split(*ports, ",")
	}
	if *dbPath != "" {
		tu.Output.DB = *dbPath
	}

	var err error
	if flag.NArg() == 1 {
		err = runOne(logger, &tu, flag.Arg(0))
	} else {
		err = runMany(logger, &tu, *workers, flag.Args())
	}
	if err != nil {
		logger.Error("run failed", "err", err)
		if redsim.KindOf(err) != redsim.NoError {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

type loaded struct {
	name  string
	c     *redsim.Circuit
	stims []redsim.Stimulus
}

func load(path string) (*loaded, error) {
	d, err := desc.Load(path)
	if err != nil {
		return nil, err
	}
	c, stims, err := d.Circuit()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	name := d.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &loaded{name, c, stims}, nil
}

func runOne(logger *slog.Logger, tu *tuning.Tuning, path string) (err error) {
	l, err := load(path)
	if err != nil {
		return err
	}
	for _, d := range l.c.Diagnostics() {
		logger.Warn(d.Message, "circuit", l.name, "code", d.Code.String(), "component", d.Component, "port", d.Port)
	}

	opts := tu.Options()
	opts.Logger = logger.With("circuit", l.name)
	opts.Record = tu.Output.Plot != ""

	var tw *trace.Writer
	if tu.Output.Trace != "" {
		if tw, err = trace.Create(tu.Output.Trace); err != nil {
			return err
		}
		defer func() {
			if cerr := tw.Close(); err == nil {
				err = cerr
			}
		}()
		var werr error
		opts.Observe = func(s *redsim.Snapshot) {
			if werr == nil {
				werr = tw.Write(s)
			}
		}
		defer func() {
			if err == nil {
				err = werr
			}
		}()
	}

	s := redsim.New(l.c, opts)
	if err = s.Schedule(l.stims...); err != nil {
		return err
	}
	r, err := s.Run()
	printReport(l.name, &r)
	if err != nil {
		return err
	}

	if tu.Output.Plot != "" {
		if err = plot(s, l.name, tu); err != nil {
			return err
		}
	}
	if tu.Output.DB != "" {
		return record(tu.Output.DB, []*loaded{l}, []redsim.Report{r}, tu.Output.Trace)
	}
	return nil
}

func plot(s *redsim.Simulation, name string, tu *tuning.Tuning) error {
	var snaps []*redsim.Snapshot
	for t := uint64(0); t < s.Ticks(); t++ {
		snap, err := s.At(t)
		if err != nil {
			continue // dropped by keep
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) == 0 {
		return errors.New("no snapshot to plot")
	}
	ports := tu.Output.PlotPorts
	if len(ports) == 0 {
		ports = waveform.Sources(snaps[0])
	}
	return waveform.Save(tu.Output.Plot, name, snaps, ports)
}

func runMany(logger *slog.Logger, tu *tuning.Tuning, workers int, paths []string) error {
	var (
		ls   []*loaded
		jobs []redsim.Job
	)
	for _, p := range paths {
		l, err := load(p)
		if err != nil {
			return err
		}
		opts := tu.Options()
		opts.Logger = logger.With("circuit", l.name)
		ls = append(ls, l)
		jobs = append(jobs, redsim.Job{Circuit: l.c, Options: opts, Stimuli: l.stims})
	}

	res := redsim.RunBatch(workers, jobs)
	reports := make([]redsim.Report, len(res))
	var failed error
	for i := range res {
		reports[i] = res[i].Report
		if res[i].Err != nil {
			logger.Error("run failed", "circuit", ls[i].name, "err", res[i].Err)
			if failed == nil {
				failed = errors.Wrap(res[i].Err, ls[i].name)
			}
			continue
		}
		printReport(ls[i].name, &reports[i])
	}
	if tu.Output.DB != "" {
		if err := record(tu.Output.DB, ls, reports, ""); err != nil {
			return err
		}
	}
	return failed
}

func record(path string, ls []*loaded, rs []redsim.Report, tracePath string) error {
	x, err := runindex.Open(path)
	if err != nil {
		return err
	}
	defer x.Close()
	ctx := context.Background()
	for i, l := range ls {
		r := &rs[i]
		if _, err := x.Record(ctx, &runindex.Run{
			Circuit:     l.name,
			Components:  l.c.Len(),
			Outcome:     r.Outcome,
			Tick:        r.Tick,
			Period:      r.Period,
			Diagnostics: r.Diagnostics,
			Trace:       tracePath,
		}); err != nil {
			return err
		}
	}
	return nil
}

func printReport(name string, r *redsim.Report) {
	switch r.Outcome {
	case redsim.Periodic:
		fmt.Printf("%s: %v at tick %d, period %d from tick %d\n", name, r.Outcome, r.Tick, r.Period, r.PeriodStart)
	default:
		fmt.Printf("%s: %v at tick %d\n", name, r.Outcome, r.Tick)
	}
	for _, d := range r.Diagnostics {
		fmt.Printf("  %v\n", d)
	}
}
