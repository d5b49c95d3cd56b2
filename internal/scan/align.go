package scan

import (
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/source"
)

// CalcAllScanDurations aggregates per-station durations as the max over
// that station's surviving baselines, sets each station's observing
// duration, aligns the scan per anchor, and reports whether enough
// stations remain to satisfy the source's minNumberOfStations.
func (s *Scan) CalcAllScanDurations(net *network.Network, src *source.Source, anchor AlignmentAnchor, gmstRad float64) bool {
	var durations map[string]float64
	if fixed := src.Params().FixedScanDurationSec; fixed > 0 {
		// the source pins its scan length; every surviving pair gets it
		durations = make(map[string]float64)
		for _, key := range s.ConstructAllBaselines(net, src) {
			durations[key] = fixed
		}
	} else {
		durations = s.CalcAllBaselineDurations(net, src, gmstRad)
	}

	perStation := make(map[string]float64)
	for key, d := range durations {
		sta1, sta2 := splitBaselineKey(key)
		if d > perStation[sta1] {
			perStation[sta1] = d
		}
		if d > perStation[sta2] {
			perStation[sta2] = d
		}
	}

	remaining := s.Stations[:0]
	for _, id := range s.Stations {
		d, ok := perStation[id]
		if !ok {
			s.drop(id, ErrSnrInfeasible)
			continue
		}
		t := s.Times[id]
		t.EndOfObserving = t.EndOfPreob + uint64(d)
		remaining = append(remaining, id)
	}
	s.Stations = remaining

	if len(s.Stations) < src.Params().MinNumberOfStations {
		return false
	}

	s.alignStartTimes(anchor)
	s.pruneOverlongWaits(net, anchor)
	s.recomputeObservations(durations)
	return len(s.Stations) >= src.Params().MinNumberOfStations
}

// pruneOverlongWaits drops stations whose aligned idle wait exceeds their
// max wait policy, realigning after each removal.
func (s *Scan) pruneOverlongWaits(net *network.Network, anchor AlignmentAnchor) {
	for {
		dropped := false
		for _, id := range s.Stations {
			st, ok := net.Stations[id]
			if !ok {
				continue
			}
			maxWait := st.Params().MaxWaitSec
			if maxWait > 0 && s.Times[id].IdleSec() > maxWait {
				s.drop(id, ErrWaitTooLong)
				s.alignStartTimes(anchor)
				dropped = true
				break
			}
		}
		if !dropped {
			return
		}
	}
}

func splitBaselineKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '-' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// alignStartTimes adjusts the idle/preob/observing anchors so the scan is
// consistent with the global alignment anchor.
func (s *Scan) alignStartTimes(anchor AlignmentAnchor) {
	if len(s.Stations) == 0 {
		return
	}
	switch anchor {
	case AnchorStart:
		var maxPreob uint64
		for _, id := range s.Stations {
			if t := s.Times[id]; t.EndOfPreob > maxPreob {
				maxPreob = t.EndOfPreob
			}
		}
		for _, id := range s.Stations {
			t := s.Times[id]
			obsDur := t.EndOfObserving - t.EndOfPreob
			preobDur := t.EndOfPreob - t.EndOfIdle
			t.EndOfIdle = maxPreob - preobDur
			t.EndOfPreob = maxPreob
			t.EndOfObserving = maxPreob + obsDur
		}
	case AnchorEnd:
		var maxEnd uint64
		for _, id := range s.Stations {
			if t := s.Times[id]; t.EndOfObserving > maxEnd {
				maxEnd = t.EndOfObserving
			}
		}
		for _, id := range s.Stations {
			t := s.Times[id]
			obsDur := t.EndOfObserving - t.EndOfPreob
			t.EndOfObserving = maxEnd
			if maxEnd > obsDur {
				t.EndOfPreob = maxEnd - obsDur
			} else {
				t.EndOfPreob = 0
			}
		}
	case AnchorIndividual:
		var maxEnd uint64
		for _, id := range s.Stations {
			if t := s.Times[id]; t.EndOfObserving > maxEnd {
				maxEnd = t.EndOfObserving
			}
		}
		ordered := make([]string, len(s.Stations))
		copy(ordered, s.Stations)
		sortByEndOfSlew(ordered, s.Times)
		for _, id := range ordered {
			t := s.Times[id]
			obsDur := t.EndOfObserving - t.EndOfPreob
			latestStart := maxEnd - obsDur
			if latestStart >= t.EndOfSlew {
				t.EndOfPreob = latestStart
				t.EndOfObserving = maxEnd
			} else if t.EndOfSlew+obsDur <= maxEnd {
				t.EndOfPreob = t.EndOfSlew
				t.EndOfObserving = t.EndOfSlew + obsDur
			}
			// else: "maybe this is never true"; left as originally timed.
		}
	}
}

func sortByEndOfSlew(ids []string, times map[string]*StationTimes) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && times[ids[j-1]].EndOfSlew > times[ids[j]].EndOfSlew; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func (s *Scan) recomputeObservations(durations map[string]float64) {
	s.Observations = s.Observations[:0]
	for key, d := range durations {
		sta1, sta2 := splitBaselineKey(key)
		present1, present2 := false, false
		for _, id := range s.Stations {
			if id == sta1 {
				present1 = true
			}
			if id == sta2 {
				present2 = true
			}
		}
		if !present1 || !present2 {
			continue
		}
		start := s.Times[sta1].EndOfPreob
		if other := s.Times[sta2].EndOfPreob; other > start {
			start = other
		}
		s.Observations = append(s.Observations, Observation{Station1: sta1, Station2: sta2, StartSec: start, DurationSec: d})
	}
}

// CheckIfEnoughTimeToReachEndposition verifies each station can observe
// this scan and then slew to the required next pointing before its
// deadline, dropping stations that cannot.
func (s *Scan) CheckIfEnoughTimeToReachEndposition(net *network.Network, endposition map[string]geometry.Pointing, deadlineSec map[string]uint64) {
	if endposition == nil {
		return
	}
	remaining := s.Stations[:0]
	for _, id := range s.Stations {
		target, ok := endposition[id]
		if !ok {
			remaining = append(remaining, id)
			continue
		}
		st := net.Stations[id]
		t := s.Times[id]
		pv := s.EndPointing[id]
		pv.Az, pv.El = target.Az, target.El

		slew, err := st.SlewTime(pv)
		if err != nil {
			s.drop(id, err)
			continue
		}
		deadline, hasDeadline := deadlineSec[id]
		if hasDeadline && t.EndOfObserving+uint64(slew) > deadline {
			s.drop(id, ErrSnrInfeasible)
			continue
		}
		remaining = append(remaining, id)
	}
	s.Stations = remaining
}

// RemoveUnnecessaryObservingTime trims each station to the minimum
// consistent with its baselines, used by the idle-to-observing pass.
func (s *Scan) RemoveUnnecessaryObservingTime(durations map[string]float64) {
	perStation := make(map[string]float64)
	for key, d := range durations {
		sta1, sta2 := splitBaselineKey(key)
		if d > perStation[sta1] {
			perStation[sta1] = d
		}
		if d > perStation[sta2] {
			perStation[sta2] = d
		}
	}
	for _, id := range s.Stations {
		if d, ok := perStation[id]; ok {
			t := s.Times[id]
			t.EndOfObserving = t.EndOfPreob + uint64(d)
		}
	}
	s.recomputeObservations(durations)
}

// UpdateSlewtime rewrites endSlew for station id and propagates idle/preob/
// observing forward by the same delta.
func (s *Scan) UpdateSlewtime(id string, newEndSlewSec uint64) {
	t, ok := s.Times[id]
	if !ok {
		return
	}
	delta := int64(newEndSlewSec) - int64(t.EndOfSlew)
	t.EndOfSlew = newEndSlewSec
	t.EndOfIdle = addDelta(t.EndOfIdle, delta)
	t.EndOfPreob = addDelta(t.EndOfPreob, delta)
	t.EndOfObserving = addDelta(t.EndOfObserving, delta)
}

func addDelta(v uint64, delta int64) uint64 {
	if delta >= 0 {
		return v + uint64(delta)
	}
	d := uint64(-delta)
	if d > v {
		return 0
	}
	return v - d
}

// RemoveElement removes a station from the scan then realigns.
func (s *Scan) RemoveElement(id string, anchor AlignmentAnchor) {
	s.drop(id, nil)
	s.alignStartTimes(anchor)
}

// SubtractPreobTimeFromStartTime validates that idle >= slew for every
// station after shifting preob earlier by preobSec, reporting whether the
// shift is consistent.
func (s *Scan) SubtractPreobTimeFromStartTime(preobSec uint64) bool {
	ok := true
	for _, id := range s.Stations {
		t := s.Times[id]
		if t.EndOfPreob < preobSec {
			ok = false
			continue
		}
		t.EndOfPreob -= preobSec
		if t.EndOfIdle < t.EndOfSlew {
			ok = false
		}
	}
	return ok
}
