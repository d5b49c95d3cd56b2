// Package subcon implements candidate scan generation, scoring,
// subnetting and selection. A Subcon is built fresh for
// every scan-selection step and discarded once the scheduler commits.
package subcon

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

// Candidate is one scored scan proposal; it may wrap two component scans
// when it represents a subnetting pair.
type Candidate struct {
	Scan    *scan.Scan
	Partner *scan.Scan // non-nil for subnetting candidates
	Score   float64

	rawDuration float64
	rawNObs     float64
}

// Subcon is the set of all candidates built for one selection step.
type Subcon struct {
	Candidates []*Candidate
}

// Empty reports whether no candidate survived construction.
func (s *Subcon) Empty() bool { return len(s.Candidates) == 0 }

// Build enumerates every visible single-source scan at currentSec, scores
// them, and adds subnetting candidates when enabled.
func Build(net *network.Network, sources map[string]*source.Source, currentSec uint64, gmstRad float64, anchor scan.AlignmentAnchor, reg *weight.Registry, excludeSourceIDs map[string]bool, subnet SubnettingOptions) *Subcon {
	sc := &Subcon{}

	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		src := sources[id]
		if !src.CanObserveMoreScans() {
			continue
		}
		p := src.Params()
		if !p.Available {
			continue
		}
		if p.MinRepeatSec > 0 && src.Stats.TotalScans > 0 &&
			float64(currentSec) < float64(src.Stats.LastObservationSec)+p.MinRepeatSec {
			continue
		}
		s := scan.VisibleScan(currentSec, scan.TypeStandard, gmstRad, net, src, excludeSourceIDs)
		if len(s.Stations) < p.MinNumberOfStations {
			continue
		}
		if src.GetMaximumFlux(firstBand(net)) < p.MinFluxJy {
			continue
		}
		s.CalcStartTimes(net)
		if len(s.Stations) < p.MinNumberOfStations {
			continue
		}
		if !s.CalcAllScanDurations(net, src, anchor, gmstRad) {
			continue
		}
		if !requiredStationsPresent(s, p.RequiredStationIDs) {
			continue
		}
		cand := &Candidate{Scan: s}
		fillRawMetrics(cand, net, src, reg)
		sc.Candidates = append(sc.Candidates, cand)
	}

	normalizeAndScore(sc, net, sources, reg)

	if subnet.Enabled {
		sc.Candidates = append(sc.Candidates, buildSubnettingCandidates(sc.Candidates, sources, subnet)...)
	}

	sort.Slice(sc.Candidates, func(i, j int) bool { return sc.Candidates[i].Score > sc.Candidates[j].Score })
	return sc
}

// requiredStationsPresent reports whether every station the source's
// policy requires survived scan construction.
func requiredStationsPresent(s *scan.Scan, required map[string]bool) bool {
	for id := range required {
		found := false
		for _, sid := range s.Stations {
			if sid == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func firstBand(net *network.Network) string {
	for _, st := range net.Stations {
		for band := range st.Equip.Bands {
			return band
		}
	}
	return ""
}

func fillRawMetrics(c *Candidate, net *network.Network, src *source.Source, reg *weight.Registry) {
	for _, obs := range c.Scan.Observations {
		c.rawDuration += obs.DurationSec
	}
	c.rawNObs = float64(len(c.Scan.Observations))
}

// normalizeAndScore normalizes duration/nObs across the subcon-wide
// maximum (via gonum/floats) and computes the final per-candidate score.
func normalizeAndScore(sc *Subcon, net *network.Network, sources map[string]*source.Source, reg *weight.Registry) {
	if len(sc.Candidates) == 0 {
		return
	}
	durations := make([]float64, len(sc.Candidates))
	nobs := make([]float64, len(sc.Candidates))
	for i, c := range sc.Candidates {
		durations[i] = c.rawDuration
		nobs[i] = c.rawNObs
	}
	maxDur := floats.Max(durations)
	maxNObs := floats.Max(nobs)

	for _, c := range sc.Candidates {
		src := sources[c.Scan.SourceID]
		durNorm := safeDiv(c.rawDuration, maxDur)
		nObsNorm := safeDiv(c.rawNObs, maxNObs)

		var skySum, lowElSum float64
		for id, pv := range c.Scan.StartPointing {
			skySum += net.CoverageGain(id, pv)
			lowElSum += reg.Factors.LowElevationRamp(pv.El)
		}
		n := float64(len(c.Scan.StartPointing))
		skyGain := safeDiv(skySum, n)
		lowElRamp := safeDiv(lowElSum, n)

		srcBalance := 1 / (1 + float64(src.Stats.TotalObservations))
		staBalance := averageStationBalance(net, c.Scan)
		blBalance := averageBaselineBalance(net, c.Scan)
		idleGain := averageIdleGain(c.Scan)
		decRamp := reg.Factors.DeclinationRamp(src.DecRad)

		f := reg.Factors
		score := f.Duration*durNorm +
			f.NumberOfObservations*nObsNorm +
			f.SkyCoverage*skyGain +
			f.AverageSources*srcBalance +
			f.AverageStations*staBalance +
			f.AverageBaselines*blBalance +
			f.Idle*idleGain +
			f.DeclinationWeight*decRamp +
			f.LowElevationWeight*lowElRamp

		score *= src.Params().Weight * stationWeightsProduct(net, c.Scan)
		c.Score = score
	}
}

func safeDiv(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}

func averageStationBalance(net *network.Network, s *scan.Scan) float64 {
	if len(s.Stations) == 0 {
		return 0
	}
	var sum float64
	for _, id := range s.Stations {
		st := net.Stations[id]
		sum += 1 / (1 + float64(len(st.Stats.ScanStartTimesSec)))
	}
	return sum / float64(len(s.Stations))
}

func averageBaselineBalance(net *network.Network, s *scan.Scan) float64 {
	if len(s.Observations) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range s.Observations {
		key := network.BaselineKey(obs.Station1, obs.Station2)
		if bl, ok := net.Baselines[key]; ok {
			sum += 1 / (1 + float64(bl.TotalObservations))
		} else {
			sum += 1
		}
	}
	return sum / float64(len(s.Observations))
}

func averageIdleGain(s *scan.Scan) float64 {
	if len(s.Stations) == 0 {
		return 0
	}
	var sum float64
	for _, id := range s.Stations {
		t := s.Times[id]
		sum += 1 / (1 + t.IdleSec())
	}
	return sum / float64(len(s.Stations))
}

func stationWeightsProduct(net *network.Network, s *scan.Scan) float64 {
	product := 1.0
	for _, id := range s.Stations {
		w := net.Stations[id].Params().Weight
		if w <= 0 {
			w = 1
		}
		product *= w
	}
	return product
}

// SelectBest returns the highest-scoring candidate after a rigorous
// re-check (visibility and SNR recomputed with final start times and
// pointings), or nil if none survive.
func SelectBest(sc *Subcon, net *network.Network, sources map[string]*source.Source, sess *astro.Session, anchor scan.AlignmentAnchor, gmstAt func(uint64) float64) *Candidate {
	for _, c := range sc.Candidates {
		if rigorousRecheck(c, net, sources, sess, anchor, gmstAt) {
			return c
		}
	}
	return nil
}

func rigorousRecheck(c *Candidate, net *network.Network, sources map[string]*source.Source, sess *astro.Session, anchor scan.AlignmentAnchor, gmstAt func(uint64) float64) bool {
	src, ok := sources[c.Scan.SourceID]
	if !ok {
		return false
	}
	stations := make([]string, len(c.Scan.Stations))
	copy(stations, c.Scan.Stations)
	if len(stations) == 0 {
		return false
	}
	for _, id := range stations {
		st, ok := net.Stations[id]
		if !ok {
			continue
		}
		t := c.Scan.Times[id]
		pv := st.CalcAzElRigorous(sess, src.RaRad, src.DecRad, t.EndOfPreob)
		if !st.IsVisible(pv, src.Params().MinElevationRad) {
			c.Scan.StartPointing[id] = pv
			removeStation(c.Scan, id)
			continue
		}
		c.Scan.StartPointing[id] = pv
	}
	gmst := gmstAt(c.Scan.Times[stations[0]].EndOfPreob)
	return c.Scan.CalcAllScanDurations(net, src, anchor, gmst) && len(c.Scan.Stations) >= src.Params().MinNumberOfStations
}

func removeStation(s *scan.Scan, id string) {
	out := s.Stations[:0]
	for _, sid := range s.Stations {
		if sid != id {
			out = append(out, sid)
		}
	}
	s.Stations = out
}
