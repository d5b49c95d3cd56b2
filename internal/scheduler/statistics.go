package scheduler

import (
	"sort"

	"github.com/busoc-assist/vlbisched/internal/scan"
)

// SourceStats is the per-source rollup produced by the check-and-
// statistics replay.
type SourceStats struct {
	Scans        int
	Observations int
}

// replayAndCollectStatistics replays the schedule per station in
// station-local observing order, logging a warning for overlapping
// commitments, and collects per-station time totals and the per-source
// totals used by the optimization check.
func (s *Scheduler) replayAndCollectStatistics() map[string]SourceStats {
	perStation := make(map[string][]*scanRef)
	for _, sc := range s.Scans {
		for _, id := range sc.Stations {
			perStation[id] = append(perStation[id], &scanRef{scan: sc, stationID: id})
		}
	}
	for id, refs := range perStation {
		sort.Slice(refs, func(a, b int) bool {
			return refs[a].scan.Times[id].EndOfPreob < refs[b].scan.Times[id].EndOfPreob
		})
		s.verifyNoOverlap(id, refs)

		if st, ok := s.Net.Stations[id]; ok {
			st.Stats.TotalFieldSysSec = 0
			st.Stats.TotalPreobSec = 0
			st.Stats.TotalSlewSec = 0
			st.Stats.TotalIdleSec = 0
			for _, ref := range refs {
				t := ref.scan.Times[id]
				st.Stats.TotalFieldSysSec += t.FieldSystemSec()
				st.Stats.TotalPreobSec += t.PreobSec()
				st.Stats.TotalSlewSec += t.SlewSec()
				st.Stats.TotalIdleSec += t.IdleSec()
			}
		}
	}

	stats := make(map[string]SourceStats)
	for _, sc := range s.Scans {
		st := stats[sc.SourceID]
		st.Scans++
		st.Observations += len(sc.Observations)
		stats[sc.SourceID] = st
	}
	return stats
}

type scanRef struct {
	scan      *scan.Scan
	stationID string
}

func (s *Scheduler) verifyNoOverlap(stationID string, refs []*scanRef) {
	for i := 1; i < len(refs); i++ {
		prevEnd := refs[i-1].scan.Times[stationID].EndOfObserving
		nextStart := refs[i].scan.Times[stationID].EndOfPreob
		if nextStart < prevEnd {
			s.log.WithField("station", stationID).Warn("overlapping commitments detected during replay")
		}
	}
}
