package scheduler

import "sort"

// extendIdleToObserving extends each committed scan's per-station
// observing end up to the start of the station's next field-system phase
// (or session end). Visibility and cable-wrap limits are checked at the
// scan's start pointing only; the slew to the next scan is not recomputed
// for the later end, so an extension is never rejected for its slew.
func (s *Scheduler) extendIdleToObserving() {
	perStation := make(map[string][]int) // station -> indices into s.Scans, in time order
	for i, sc := range s.Scans {
		for _, id := range sc.Stations {
			perStation[id] = append(perStation[id], i)
		}
	}
	for _, idxs := range perStation {
		sort.Slice(idxs, func(a, b int) bool {
			return scanObservingEnd(s.Scans[idxs[a]]) < scanObservingEnd(s.Scans[idxs[b]])
		})
	}

	touched := make(map[int]bool)
	for id, idxs := range perStation {
		for k, idx := range idxs {
			sc := s.Scans[idx]
			t := sc.Times[id]
			if t == nil {
				continue
			}
			var nextCommitmentSec uint64
			if k+1 < len(idxs) {
				next := s.Scans[idxs[k+1]]
				nextCommitmentSec = next.Times[id].EndOfFieldSystem
			} else {
				nextCommitmentSec = s.Opts.SessionEndSec
			}
			if nextCommitmentSec <= t.EndOfObserving {
				continue
			}
			st, ok := s.Net.Stations[id]
			if !ok {
				continue
			}
			src, ok := s.Sources[sc.SourceID]
			if !ok {
				continue
			}
			extended := nextCommitmentSec
			pv := sc.StartPointing[id]
			if !st.IsVisible(pv, src.Params().MinElevationRad) {
				continue
			}
			if !st.CableWrap.AnglesInside(pv.Az, pv.El) {
				continue
			}
			t.EndOfObserving = extended
			touched[idx] = true
		}
	}

	// the extended windows change what each pair actually records: an
	// observation now spans the overlap of its two stations' windows
	for idx := range touched {
		sc := s.Scans[idx]
		for i := range sc.Observations {
			o := &sc.Observations[i]
			t1, t2 := sc.Times[o.Station1], sc.Times[o.Station2]
			if t1 == nil || t2 == nil {
				continue
			}
			end := t1.EndOfObserving
			if t2.EndOfObserving < end {
				end = t2.EndOfObserving
			}
			if end > o.StartSec {
				o.DurationSec = float64(end - o.StartSec)
			}
		}
	}
}
