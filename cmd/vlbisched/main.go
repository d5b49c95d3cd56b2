package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/catalog"
	"github.com/busoc-assist/vlbisched/internal/config"
	"github.com/busoc-assist/vlbisched/internal/logging"
	"github.com/busoc-assist/vlbisched/internal/multisched"
	"github.com/busoc-assist/vlbisched/internal/report"
	"github.com/busoc-assist/vlbisched/internal/scheduler"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

const (
	Version = "0.1.0"
	Program = "vlbisched"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, helpText)
		os.Exit(2)
	}
}

func main() {
	var (
		workers      = flag.Int("workers", 0, "multi-schedule worker pool size (0: use general.workers)")
		seed         = flag.Int64("seed", 0, "RNG seed for sampling multi-schedule variants past max-combinations")
		dumpSchedule = flag.Bool("dump-schedule", false, "print the per-scan log in addition to the summary")
		listStations = flag.Bool("list-stations", false, "list catalog stations and exit")
		listSources  = flag.Bool("list-sources", false, "list catalog sources and exit")
		version      = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Fprintf(os.Stderr, "%s-%s\n", Program, Version)
		return
	}

	log := logging.New(logrus.InfoLevel)
	entry := logging.Base(log, Program, Version)

	opts := runOptions{
		configPath:   flag.Arg(0),
		workers:      *workers,
		seed:         *seed,
		dumpSchedule: *dumpSchedule,
		listStations: *listStations,
		listSources:  *listSources,
	}
	Exit(run(opts, entry))
}

type runOptions struct {
	configPath   string
	workers      int
	seed         int64
	dumpSchedule bool
	listStations bool
	listSources  bool
}

func run(o runOptions, entry *logrus.Entry) error {
	if o.configPath == "" {
		flag.Usage()
		return nil
	}

	doc, err := config.Load(o.configPath)
	if err != nil {
		return badUsage(err.Error())
	}

	cat, loadErrs, err := doc.LoadCatalogFiles()
	if err != nil {
		return catalogErr(err)
	}
	for _, le := range loadErrs {
		entry.WithFields(logrus.Fields{"file": le.File, "line": le.Line}).Warn("catalog: skipped malformed entry")
	}

	if o.listStations {
		ListStations(cat)
		return nil
	}
	if o.listSources {
		ListSources(cat)
		return nil
	}

	sess, err := astro.NewSession(doc.General.Start, doc.General.End)
	if err != nil {
		return genericErr(err)
	}

	workers := o.workers
	if workers == 0 {
		workers = doc.General.Workers
	}
	seed := o.seed
	if seed == 0 {
		seed = doc.General.Seed
	}

	if workers <= 1 && len(doc.Sweeps) == 0 {
		net, sources, reg, schedOpts, err := doc.Build(cat)
		if err != nil {
			return genericErr(err)
		}
		schedOpts.Log = entry

		sched := scheduler.New(net, sources, sess, reg, schedOpts)
		if err := sched.Run(); err != nil {
			return genericErr(err)
		}
		summary := report.Build(sched.Scans, net, sources, schedOpts.SessionStart)
		report.WriteSummary(os.Stdout, summary)
		if o.dumpSchedule {
			report.WriteScanLog(os.Stdout, schedOpts.SessionStart, sched.Scans)
		}
		entry.WithField("scans", len(sched.Scans)).Info("schedule complete")
		return nil
	}

	return runSweep(doc, cat, sess, workers, seed, entry, o.dumpSchedule)
}

// runSweep expands the document's [[multisched]] blocks into a Cartesian
// product of weight-factor variants (sampled down to General.MaxCombinations
// using the -seed RNG seed when the product exceeds it) and runs one
// independent schedule per variant through multisched.Run. doc.Build
// re-overlays the catalog's stations/sources fresh for every variant, but
// those Station/Source values are the catalog's own long-lived instances
// (re-applying the same overlay repeatedly is idempotent, but their event
// cursors and stats are still shared mutable state) so the scheduling pass
// itself is serialized by schedMu; only the per-worker weight.Registry that
// multisched.Run hands each worker is genuinely independent. This trades
// wall-clock parallelism on the scheduling pass for correctness against
// that shared state.
func runSweep(doc *config.Document, cat *catalog.Catalog, sess *astro.Session, workers int, seed int64, entry *logrus.Entry, dumpSchedule bool) error {
	sweeps := make([]multisched.ParameterSweep, len(doc.Sweeps))
	for i, sw := range doc.Sweeps {
		sweeps[i] = multisched.ParameterSweep{Name: sw.Name, Values: sw.Values, MemberIDs: sw.MemberIDs}
	}
	variants := multisched.Expand(sweeps, doc.General.MaxCombinations, seed)
	entry.WithField("variants", len(variants)).Info("multi-schedule sweep")

	var schedMu sync.Mutex
	results := multisched.Run(context.Background(), variants, workers, func(ctx context.Context, v multisched.Variant, reg *weight.Registry) (interface{}, error) {
		workerLog := logging.ForWorker(entry.Logger, v.Index)
		_ = ctx

		schedMu.Lock()
		defer schedMu.Unlock()

		net, sources, baseReg, schedOpts, err := doc.Build(cat)
		if err != nil {
			return nil, err
		}
		reg.Factors = applySweepFactors(baseReg.Factors, v)
		reg.BandBackups = baseReg.BandBackups
		reg.Sequence = baseReg.Sequence
		reg.Calibrator = baseReg.Calibrator
		schedOpts.Log = workerLog

		sched := scheduler.New(net, sources, sess, reg, schedOpts)
		if err := sched.Run(); err != nil {
			return nil, err
		}
		summary := report.Build(sched.Scans, net, sources, schedOpts.SessionStart)
		workerLog.WithField("scans", len(sched.Scans)).Info("variant complete")
		return summary, nil
	})

	for _, r := range results {
		if r.Err != nil {
			entry.WithField("variant", r.Variant.Index).Warn(r.Err)
			continue
		}
		summary, ok := r.Value.(report.Summary)
		if !ok {
			continue
		}
		fmt.Printf("--- variant %d %v ---\n", r.Variant.Index, r.Variant.Values)
		report.WriteSummary(os.Stdout, summary)
	}
	return nil
}

func applySweepFactors(base weight.Factors, v multisched.Variant) weight.Factors {
	for name, val := range v.Values {
		switch name {
		case "sky-coverage":
			base.SkyCoverage = val
		case "number-of-observations":
			base.NumberOfObservations = val
		case "duration":
			base.Duration = val
		case "average-sources":
			base.AverageSources = val
		case "average-stations":
			base.AverageStations = val
		case "average-baselines":
			base.AverageBaselines = val
		case "idle":
			base.Idle = val
		case "declination-weight":
			base.DeclinationWeight = val
		case "low-elevation-weight":
			base.LowElevationWeight = val
		}
	}
	return base
}
