package scheduler

import (
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/subcon"
)

const noCandidateAdvanceSec = 60

// runScanSelection is the scan-selection recursion. With fill-in enabled,
// every selected scan first triggers a fill-in call at depth+1 over the
// gap up to that scan's end, and selections inside a fill-in call recurse
// the same way, each over a narrower window.
func (s *Scheduler) runScanSelection(currentSec, endSec uint64, typ scan.Type, endposition map[string]geometry.Pointing, carry *subcon.Subcon, depth int) error {
	if endposition != nil {
		s.markUnreachableEndpositionStations(endposition)
	}

	var restrictNext map[string]bool
	t := currentSec
	for t < endSec {
		if triggered, desc := s.calibratorDue(t); depth == 0 && triggered {
			done, err := s.runCalibratorBlock(t, desc)
			if err != nil {
				return err
			}
			t = done
			continue
		}

		sc := carry
		if sc == nil {
			gmst := s.gmstAt(t)
			exclude := s.excludeForSequenceRestriction(restrictNext)
			sc = subcon.Build(s.Net, s.Sources, t, gmst, s.Opts.Anchor, s.Reg, exclude, s.Opts.Subnetting)
		}
		carry = nil
		restrictNext = nil

		if sc.Empty() {
			if depth == 0 {
				s.log.WithField("t", t).Debug("no candidates, advancing clock")
				t += noCandidateAdvanceSec
				continue
			}
			return nil
		}

		best := subcon.SelectBest(sc, s.Net, s.Sources, s.Sess, s.Opts.Anchor, s.gmstAt)
		if best == nil {
			if depth == 0 {
				t += noCandidateAdvanceSec
				continue
			}
			return nil
		}

		if endposition != nil {
			deadline := make(map[string]uint64, len(endposition))
			for id := range endposition {
				deadline[id] = endSec
			}
			best.Scan.CheckIfEnoughTimeToReachEndposition(s.Net, endposition, deadline)
		}

		maxEnd := scanObservingEnd(best.Scan)
		if best.Partner != nil {
			if e := scanObservingEnd(best.Partner); e > maxEnd {
				maxEnd = e
			}
		}

		if hard := s.checkForNewEvents(maxEnd); hard {
			continue
		}

		if s.Opts.FillInEnabled && len(s.Scans) > 0 {
			fillEndposition := collectStartPointings(best.Scan)
			if best.Partner != nil {
				for k, v := range collectStartPointings(best.Partner) {
					fillEndposition[k] = v
				}
			}
			_ = s.runScanSelection(t, maxEnd, scan.TypeFillIn, fillEndposition, nil, depth+1)
		}

		s.commit(best.Scan, typ)
		if best.Partner != nil {
			s.commit(best.Partner, scan.TypeSubnetting)
		}

		if s.Reg.Sequence != nil {
			restrictNext = s.Reg.Sequence.Tick()
		}

		t = maxEnd
	}
	return nil
}

// excludeForSequenceRestriction inverts the scan-sequence rule's allowed
// set into the excludeSourceIDs subcon.Build expects (every source not in
// allowed is excluded from this selection step), then merges the sources
// excluded for the whole session by the sun-distance check.
func (s *Scheduler) excludeForSequenceRestriction(allowed map[string]bool) map[string]bool {
	var exclude map[string]bool
	if allowed != nil {
		exclude = make(map[string]bool, len(s.Sources))
		for id := range s.Sources {
			if !allowed[id] {
				exclude[id] = true
			}
		}
	}
	if len(s.sunExcluded) > 0 {
		if exclude == nil {
			exclude = make(map[string]bool, len(s.sunExcluded))
		}
		for id := range s.sunExcluded {
			exclude[id] = true
		}
	}
	return exclude
}

func scanObservingEnd(s *scan.Scan) uint64 {
	var max uint64
	for _, id := range s.Stations {
		if t := s.Times[id]; t.EndOfObserving > max {
			max = t.EndOfObserving
		}
	}
	return max
}

func collectStartPointings(s *scan.Scan) map[string]geometry.Pointing {
	out := make(map[string]geometry.Pointing, len(s.Stations))
	for _, id := range s.Stations {
		out[id] = s.StartPointing[id]
	}
	return out
}

// markUnreachableEndpositionStations is a best-effort pre-check: stations
// whose current pointing cannot slew to their required endposition are
// excluded from candidate generation for this recursion by dropping them
// from the network's active set is not attempted here (catalogs/stations
// are shared); instead unreachable stations are pruned from each built
// scan via CheckIfEnoughTimeToReachEndposition once candidates exist.
func (s *Scheduler) markUnreachableEndpositionStations(endposition map[string]geometry.Pointing) {
	for id, target := range endposition {
		st, ok := s.Net.Stations[id]
		if !ok {
			continue
		}
		if _, err := st.SlewTime(target); err != nil {
			s.log.WithField("station", id).WithError(err).Debug("endposition unreachable")
		}
	}
}

func (s *Scheduler) checkForNewEvents(maxEnd uint64) bool {
	hardAny := false
	for _, st := range s.Net.Stations {
		if _, hard := st.CheckForNewEvent(maxEnd); hard {
			hardAny = true
		}
	}
	for _, src := range s.Sources {
		if _, hard := src.CheckForNewEvent(maxEnd); hard {
			hardAny = true
		}
	}
	for _, bl := range s.Net.Baselines {
		if _, hard := bl.CheckForNewEvent(maxEnd); hard {
			hardAny = true
		}
	}
	return hardAny
}

func (s *Scheduler) commit(sc *scan.Scan, typ scan.Type) {
	sc.Type = typ
	pointings := collectStartPointings(sc)
	endSec := scanObservingEnd(sc)

	var maxDur float64
	for _, obs := range sc.Observations {
		if obs.DurationSec > maxDur {
			maxDur = obs.DurationSec
		}
	}

	s.Net.CommitScan(pointings, endSec, maxDur)

	if src, ok := s.Sources[sc.SourceID]; ok {
		src.Stats.TotalScans++
		src.Stats.TotalObservations += len(sc.Observations)
		src.Stats.LastObservationSec = endSec
	}

	s.Scans = append(s.Scans, sc)
}
