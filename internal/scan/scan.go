package scan

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/source"
)

// Type tags the construction kind a Scan was built for.
type Type int

const (
	TypeStandard Type = iota
	TypeSubnetting
	TypeFillIn
	TypeCalibrator
	TypeHighImpact
)

// Observation is one per-pair, per-scan on-source record.
type Observation struct {
	Station1, Station2 string
	StartSec           uint64
	DurationSec        float64
}

// Scan is a provisional or committed observation of one source by a set of
// participating stations.
type Scan struct {
	ID       string
	SourceID string
	Stations []string

	Times         map[string]*StationTimes
	StartPointing map[string]geometry.Pointing
	EndPointing   map[string]geometry.Pointing

	Observations []Observation
	Type         Type

	// Dropped holds the reason each excluded station/baseline was removed,
	// keyed by station ID or "sta1-sta2" baseline key.
	Dropped map[string]error
}

func newScan(sourceID string, typ Type) *Scan {
	return &Scan{
		ID:            uuid.NewString(),
		SourceID:      sourceID,
		Type:          typ,
		Times:         make(map[string]*StationTimes),
		StartPointing: make(map[string]geometry.Pointing),
		EndPointing:   make(map[string]geometry.Pointing),
		Dropped:       make(map[string]error),
	}
}

// VisibleScan builds a provisional scan with every station for which src is
// up at currentSec and not excluded, dropping stations whose parameter
// block forbids participation.
func VisibleScan(currentSec uint64, typ Type, gmstRad float64, net *network.Network, src *source.Source, excludeSourceIDs map[string]bool) *Scan {
	s := newScan(src.ID, typ)

	if excludeSourceIDs[src.ID] {
		return s
	}
	srcParams := src.Params()
	if !srcParams.Available {
		return s
	}

	ids := make([]string, 0, len(net.Stations))
	for id := range net.Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := net.Stations[id]
		stParams := st.Params()
		if !stParams.Available {
			continue
		}
		if stParams.IgnoredSourceIDs[src.ID] {
			continue
		}
		if srcParams.IgnoredStationIDs[id] {
			continue
		}
		pv := st.CalcAzElSimple(src.RaRad, src.DecRad, gmstRad, currentSec)
		minEl := srcParams.MinElevationRad
		if !st.IsVisible(pv, minEl) {
			continue
		}
		s.Stations = append(s.Stations, id)
		s.StartPointing[id] = pv
		s.Times[id] = &StationTimes{}
	}
	return s
}

// CalcStartTimes computes field-system, slew and preob durations for each
// participating station and records its earliest feasible start
// (endOfPreob). Stations whose target is unreachable are dropped.
func (s *Scan) CalcStartTimes(net *network.Network) {
	remaining := s.Stations[:0]
	for _, id := range s.Stations {
		st := net.Stations[id]
		pv := s.StartPointing[id]
		prev := st.Current.TimeSec
		p := st.Params()

		if p.FirstScan {
			// the station starts the session already on source: no field
			// system, slew or preob before its first scan
			t := &StationTimes{
				EndOfPreviousScan: prev,
				EndOfFieldSystem:  prev,
				EndOfSlew:         prev,
				EndOfIdle:         prev,
				EndOfPreob:        prev,
				EndOfObserving:    prev,
			}
			s.Times[id] = t
			remaining = append(remaining, id)
			continue
		}

		slewSec, err := st.SlewTime(pv)
		if err != nil {
			s.drop(id, err)
			continue
		}
		dist := geometry.AngularDistance(st.Current.Az, st.Current.El, pv.Az, pv.El)
		if p.MaxSlewTimeSec > 0 && slewSec > p.MaxSlewTimeSec {
			s.drop(id, ErrSlewPolicy)
			continue
		}
		if p.MaxSlewDistRad > 0 && dist > p.MaxSlewDistRad {
			s.drop(id, ErrSlewPolicy)
			continue
		}
		if p.MinSlewDistRad > 0 && dist < p.MinSlewDistRad {
			s.drop(id, ErrSlewPolicy)
			continue
		}

		t := &StationTimes{EndOfPreviousScan: prev}
		t.EndOfFieldSystem = prev + uint64(math.Ceil(st.Wait.FieldSystemSec))
		t.EndOfSlew = t.EndOfFieldSystem + uint64(math.Ceil(slewSec))
		t.EndOfIdle = t.EndOfSlew
		t.EndOfPreob = t.EndOfIdle + uint64(math.Ceil(st.Wait.PreobSec))
		t.EndOfObserving = t.EndOfPreob

		s.Times[id] = t
		remaining = append(remaining, id)
	}
	s.Stations = remaining
}

func (s *Scan) drop(id string, err error) {
	s.Dropped[id] = err
	delete(s.Times, id)
	delete(s.StartPointing, id)
	out := s.Stations[:0]
	for _, sid := range s.Stations {
		if sid != id {
			out = append(out, sid)
		}
	}
	s.Stations = out
}

// UpdateAzEl fills each station's start pointing at its currently aligned
// observing start.
func (s *Scan) UpdateAzEl(net *network.Network, src *source.Source, sess *astro.Session) {
	for _, id := range s.Stations {
		st := net.Stations[id]
		t := s.Times[id]
		pv := st.CalcAzElRigorous(sess, src.RaRad, src.DecRad, t.EndOfPreob)
		s.StartPointing[id] = pv
	}
}

// ConstructAllBaselines enumerates station pairs, dropping ignored
// baselines and pairs the source's policy disallows.
func (s *Scan) ConstructAllBaselines(net *network.Network, src *source.Source) []string {
	srcParams := src.Params()
	var pairs []string
	for i := 0; i < len(s.Stations); i++ {
		for j := i + 1; j < len(s.Stations); j++ {
			sta1, sta2 := s.Stations[i], s.Stations[j]
			key := network.BaselineKey(sta1, sta2)
			if srcParams.IgnoredBaselineIDs[key] {
				continue
			}
			bl, ok := net.Baselines[key]
			if ok && bl.Params().Ignore {
				continue
			}
			pairs = append(pairs, key)
		}
	}
	return pairs
}

// AngularSeparation is a convenience wrapper used by high-impact scoring
// and subnetting checks.
func AngularSeparation(a, b geometry.Pointing) float64 {
	return geometry.AngularDistance(a.Az, a.El, b.Az, b.El)
}
