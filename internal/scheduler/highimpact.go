package scheduler

import (
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/scan"
)

// HighImpactDescriptor names one (az, el, margin, station subset) target
// the pre-fix pass scores candidates against.
type HighImpactDescriptor struct {
	AzRad, ElRad float64
	MarginRad    float64
	StationIDs   []string
}

// impactScore is (margin - angular distance) / margin, clamped to [0,1].
func impactScore(pv geometry.Pointing, d HighImpactDescriptor) float64 {
	dist := geometry.AngularDistance(d.AzRad, d.ElRad, pv.Az, pv.El)
	if d.MarginRad <= 0 {
		return 0
	}
	v := (d.MarginRad - dist) / d.MarginRad
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// preFixHighImpact evaluates every candidate source against every
// high-impact descriptor at each tick, greedily committing non-conflicting
// scans. Descriptors come from Scheduler.Opts.
func (s *Scheduler) preFixHighImpact() error {
	descriptors := s.Opts.HighImpact
	if len(descriptors) == 0 || s.Opts.HighImpactTickSec == 0 {
		return nil
	}

	var lastCommitEnd uint64
	for t := s.Opts.SessionStartSec; t < s.Opts.SessionEndSec; t += s.Opts.HighImpactTickSec {
		gmst := s.gmstAt(t)

		bestScore := -1.0
		var bestScan *scan.Scan
		for srcID, src := range s.Sources {
			score, included := s.aggregateImpact(srcID, t, gmst, descriptors)
			if len(included) == 0 {
				continue
			}
			candidate := scan.VisibleScan(t, scan.TypeHighImpact, gmst, s.Net, src, nil)
			if len(candidate.Stations) < 2 {
				continue
			}
			candidate.CalcStartTimes(s.Net)
			if !candidate.CalcAllScanDurations(s.Net, src, s.Opts.Anchor, gmst) {
				continue
			}
			if score > bestScore {
				bestScore, bestScan = score, candidate
			}
		}

		if bestScan == nil {
			continue
		}
		start := scanObservingStart(bestScan)
		if start < lastCommitEnd {
			continue // would overlap or violate min-time-between
		}
		if !s.isCorrectHighImpactScan(bestScan) {
			continue
		}
		s.commit(bestScan, scan.TypeHighImpact)
		lastCommitEnd = scanObservingEnd(bestScan)
	}
	return nil
}

func (s *Scheduler) aggregateImpact(srcID string, sec uint64, gmst float64, descriptors []HighImpactDescriptor) (float64, []string) {
	src := s.Sources[srcID]
	var total float64
	var included []string
	for _, d := range descriptors {
		for _, stID := range d.StationIDs {
			st, ok := s.Net.Stations[stID]
			if !ok {
				continue
			}
			pv := st.CalcAzElSimple(src.RaRad, src.DecRad, gmst, sec)
			if !st.IsVisible(pv, src.Params().MinElevationRad) {
				continue
			}
			total += impactScore(pv, d)
			included = append(included, stID)
		}
	}
	return total, included
}

// isCorrectHighImpactScan is the sanity gate before committing a pre-fixed
// scan: it must still meet the source's minimum station count. The
// stations' slews are not re-checked here.
func (s *Scheduler) isCorrectHighImpactScan(sc *scan.Scan) bool {
	src, ok := s.Sources[sc.SourceID]
	if !ok {
		return false
	}
	return len(sc.Stations) >= src.Params().MinNumberOfStations
}
