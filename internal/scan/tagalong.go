package scan

import (
	"math"

	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/source"
)

// AddTagalongStation appends station id to an already-committed scan
// without altering its anchor times: the source must be visible from the
// station at the scan's start, the slew (plus field-system and preob) must
// fit in the gap before scan start, and its baseline durations must be
// satisfiable within the existing on-source window.
func (s *Scan) AddTagalongStation(net *network.Network, src *source.Source, id string, gmstRad float64) bool {
	st, ok := net.Stations[id]
	if !ok || len(s.Stations) == 0 {
		return false
	}
	anchorStart := s.earliestObservingStart()

	pv := st.CalcAzElSimple(src.RaRad, src.DecRad, gmstRad, anchorStart)
	if !st.IsVisible(pv, src.Params().MinElevationRad) {
		return false
	}

	slewSec, err := st.SlewTime(pv)
	if err != nil {
		return false
	}
	prev := st.Current.TimeSec
	fs := prev + uint64(math.Ceil(st.Wait.FieldSystemSec))
	slewEnd := fs + uint64(math.Ceil(slewSec))
	preobEnd := slewEnd + uint64(math.Ceil(st.Wait.PreobSec))
	if preobEnd > anchorStart {
		return false
	}

	s.Stations = append(s.Stations, id)
	s.Times[id] = &StationTimes{
		EndOfPreviousScan: prev,
		EndOfFieldSystem:  fs,
		EndOfSlew:         slewEnd,
		EndOfIdle:         slewEnd,
		EndOfPreob:        anchorStart,
		EndOfObserving:    s.latestObservingEnd(),
	}
	s.StartPointing[id] = pv

	durations := s.CalcAllBaselineDurations(net, src, gmstRad)
	window := float64(s.Times[id].EndOfObserving - anchorStart)
	joined := false
	for key, d := range durations {
		sta1, sta2 := splitBaselineKey(key)
		if sta1 != id && sta2 != id {
			continue
		}
		if d > window {
			delete(durations, key)
			continue
		}
		joined = true
	}
	if !joined {
		s.drop(id, ErrSnrInfeasible)
		return false
	}
	s.recomputeObservations(durations)
	return true
}

func (s *Scan) earliestObservingStart() uint64 {
	var min uint64
	first := true
	for _, id := range s.Stations {
		t := s.Times[id]
		if first || t.EndOfPreob < min {
			min = t.EndOfPreob
			first = false
		}
	}
	return min
}

func (s *Scan) latestObservingEnd() uint64 {
	var max uint64
	for _, id := range s.Stations {
		if t := s.Times[id]; t.EndOfObserving > max {
			max = t.EndOfObserving
		}
	}
	return max
}
