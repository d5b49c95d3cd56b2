package scheduler

import (
	"sort"

	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/scan"
)

// applyTagalongPass runs after scan selection: every station whose event
// timeline transitions it into tagalong mode gets inserted into the scans
// committed after its transition time.
func (s *Scheduler) applyTagalongPass() {
	for id, st := range s.Net.Stations {
		if fromSec, ok := st.TagalongTransitionTime(); ok {
			s.applyTagalongInsertions(id, fromSec)
		}
	}
}

// applyTagalongInsertions walks every committed scan starting at or after
// fromSec in start order, attempting to add the station without altering
// scan anchor times. Only fill-in scans are skipped; calibrator scans
// remain eligible.
func (s *Scheduler) applyTagalongInsertions(stationID string, fromSec uint64) {
	st, ok := s.Net.Stations[stationID]
	if !ok {
		return
	}

	ordered := make([]*scan.Scan, len(s.Scans))
	copy(ordered, s.Scans)
	sort.Slice(ordered, func(i, j int) bool { return scanObservingStart(ordered[i]) < scanObservingStart(ordered[j]) })

	for _, sc := range ordered {
		if sc.Type == scan.TypeFillIn {
			continue
		}
		start := scanObservingStart(sc)
		if start < fromSec {
			continue
		}
		already := false
		for _, id := range sc.Stations {
			if id == stationID {
				already = true
				break
			}
		}
		if already {
			continue
		}
		src, ok := s.Sources[sc.SourceID]
		if !ok {
			continue
		}
		gmst := s.gmstAt(start)
		if !sc.AddTagalongStation(s.Net, src, stationID, gmst) {
			s.log.WithFields(map[string]interface{}{"station": stationID, "scan": sc.ID}).Debug("tagalong: station not insertable")
			continue
		}
		pv := sc.StartPointing[stationID]
		end := scanObservingEnd(sc)
		st.Current = geometry.Pointing{StationID: stationID, TimeSec: end, Az: pv.Az, El: pv.El, HourAngle: pv.HourAngle, Declination: pv.Declination}
	}
}

func scanObservingStart(sc *scan.Scan) uint64 {
	var min uint64
	first := true
	for _, id := range sc.Stations {
		t := sc.Times[id]
		if first || t.EndOfPreob < min {
			min = t.EndOfPreob
			first = false
		}
	}
	return min
}
