// Package scheduler implements the outer iteration loop: high-impact
// pre-fixing, the scan-selection recursion, a-posteriori fill-in,
// idle-to-observing extension, check-and-statistics replay, and the
// optimization check with gentle source reduction.
package scheduler

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/subcon"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

// Failure taxonomy sentinels. Run returns ErrIterationBudgetExceeded
// wrapped with pkg/errors context; the other sentinels are declared here
// but not returned by this package.
var (
	ErrCatalogIncomplete     = errors.New("scheduler: catalog incomplete")
	ErrNotReachable          = errors.New("scheduler: pointing not reachable")
	ErrSnrInfeasible         = errors.New("scheduler: no feasible SNR duration")
	ErrNoCandidates          = errors.New("scheduler: no candidates")
	ErrHardEvent             = errors.New("scheduler: hard event fired")
	ErrIterationBudgetExceeded = errors.New("scheduler: iteration budget exceeded")
	ErrTooFewStations        = errors.New("scheduler: too few stations remain after source reduction")
)

// OptimizationConditions configures the post-schedule evaluation and
// gentle source-reduction restart.
type OptimizationConditions struct {
	MinNumScansPerSource        int
	MinNumObsPerSource          int
	RequireBoth                 bool // true = AND, false = OR
	MinNumberOfSourcesToReduce  int
	MaxNumberOfIterations       int
	NumberOfGentleSourceReductions int
}

// Options bundles the static configuration a Scheduler needs for one run.
type Options struct {
	SessionStart, SessionEnd time.Time
	SessionStartSec, SessionEndSec uint64
	Anchor            scan.AlignmentAnchor
	FillInEnabled     bool
	HighImpactTickSec uint64
	HighImpact        []HighImpactDescriptor
	Optimization      OptimizationConditions
	Subnetting        subcon.SubnettingOptions
	Log               *logrus.Entry
}

// Scheduler runs one independent schedule over a Network and source
// catalog. It owns the committed scan list and all event cursors for the
// duration of the run.
type Scheduler struct {
	Net     *network.Network
	Sources map[string]*source.Source
	Sess    *astro.Session
	Reg     *weight.Registry
	Opts    Options

	Scans []*scan.Scan

	// Iterations counts failed optimization checks: 0 means the first
	// pass already satisfied the check, with no source reduction needed.
	// Each failure within MaxNumberOfIterations triggers one restart; the
	// failure that exceeds it ends the run, leaving Iterations at
	// MaxNumberOfIterations+1.
	Iterations int

	calibratorState       *subcon.CalibratorState
	lastCalibratorScanIdx int
	lastCalibratorSec     uint64

	// sunExcluded holds sources too close to the Sun for the whole
	// session (the Sun position is a single mid-session value).
	sunExcluded map[string]bool

	// initialPointings restores each station's parked pointing when an
	// optimization restart rewinds the session to t=0.
	initialPointings map[string]geometry.Pointing

	log *logrus.Entry
}

// New builds a Scheduler over the given network, source catalog and astro
// session.
func New(net *network.Network, sources map[string]*source.Source, sess *astro.Session, reg *weight.Registry, opts Options) *Scheduler {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	initial := make(map[string]geometry.Pointing, len(net.Stations))
	for id, st := range net.Stations {
		initial[id] = st.Current
	}
	return &Scheduler{Net: net, Sources: sources, Sess: sess, Reg: reg, Opts: opts, initialPointings: initial, log: log}
}

func (s *Scheduler) gmstAt(sec uint64) float64 {
	g, err := s.Sess.GMSTAt(sec)
	if err != nil {
		return 0
	}
	return g
}

// Run executes the full outer loop, restarting from step 1
// after a gentle or full source reduction, until the schedule passes the
// optimization check or the iteration budget is exhausted.
func (s *Scheduler) Run() error {
	s.Iterations = 0
	for {
		s.resetForIteration()

		if err := s.preFixHighImpact(); err != nil {
			return err
		}
		s.resetEventCursors()

		if err := s.runScanSelection(s.Opts.SessionStartSec, s.Opts.SessionEndSec, scan.TypeStandard, nil, nil, 0); err != nil {
			return err
		}
		s.applyTagalongPass()

		if s.Opts.FillInEnabled {
			s.fillInAPosteriori()
		}
		if s.Opts.Anchor == scan.AnchorStart {
			s.extendIdleToObserving()
		}

		stats := s.replayAndCollectStatistics()
		failing := s.optimizationFailingSources(stats)

		if len(failing) < s.Opts.Optimization.MinNumberOfSourcesToReduce || len(failing) == 0 {
			return nil
		}
		s.Iterations++
		if s.Iterations > s.Opts.Optimization.MaxNumberOfIterations {
			return errors.Wrap(ErrIterationBudgetExceeded, "optimization")
		}

		gentle := s.Iterations <= s.Opts.Optimization.NumberOfGentleSourceReductions
		s.reduceFailingSources(failing, gentle)
		s.Scans = nil
	}
}

// resetForIteration rewinds everything a discarded schedule touched:
// event cursors, station pointings, committed statistics, sky coverage
// and the calibrator block state.
func (s *Scheduler) resetForIteration() {
	s.resetEventCursors()
	s.Net.ResetBookkeeping()
	for _, st := range s.Net.Stations {
		st.ResetFirstScanUsed()
	}
	for _, src := range s.Sources {
		src.Stats = source.Stats{}
	}
	s.calibratorState = nil
	s.lastCalibratorScanIdx = 0
	s.lastCalibratorSec = s.Opts.SessionStartSec
	s.sunExcluded = s.sourcesTooCloseToSun()
}

// resetEventCursors is step 2 of the outer loop: every event cursor and
// station pointing rewinds to session start, leaving committed bookkeeping
// (the pre-fixed high-impact scans) in place.
func (s *Scheduler) resetEventCursors() {
	for id, st := range s.Net.Stations {
		st.ResetEvents()
		if pv, ok := s.initialPointings[id]; ok {
			st.Current = pv
		}
	}
	for _, src := range s.Sources {
		src.ResetEvents()
	}
	for _, bl := range s.Net.Baselines {
		bl.ResetEvents()
	}
}

// sourcesTooCloseToSun flags every source whose angular distance to the
// Sun's mid-session position is below its MinSunDistance policy.
func (s *Scheduler) sourcesTooCloseToSun() map[string]bool {
	sunRA, sunDec := s.Sess.SunRaDec()
	var excluded map[string]bool
	for id, src := range s.Sources {
		minDist := src.Params().MinSunDistanceRad
		if minDist <= 0 {
			continue
		}
		if geometry.AngularDistance(src.RaRad, src.DecRad, sunRA, sunDec) < minDist {
			if excluded == nil {
				excluded = make(map[string]bool)
			}
			excluded[id] = true
			s.log.WithField("source", id).Info("excluded: too close to the sun")
		}
	}
	return excluded
}
