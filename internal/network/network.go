// Package network implements the per-worker collection of stations,
// baselines and sky-coverage grids that a single schedule run owns and
// mutates as scans are committed.
package network

import (
	"math"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/station"
)

// InfluenceKind selects one of the three influence shapes the sky-coverage
// grid uses to penalize redundant pointings.
type InfluenceKind int

const (
	InfluenceConstant InfluenceKind = iota
	InfluenceLinear
	InfluenceCosine
)

// Influence holds the shared sky-coverage parameters: the maximum distance
// and time over which a prior pointing still influences a candidate, and
// the interpolation kind for each axis.
type Influence struct {
	MaxDistRad  float64
	MaxTimeSec  float64
	DistKind    InfluenceKind
	TimeKind    InfluenceKind
}

func fDist(deltaRad, maxRad float64, kind InfluenceKind) float64 {
	if maxRad <= 0 || deltaRad >= maxRad {
		return 0
	}
	if deltaRad < 0 {
		deltaRad = 0
	}
	frac := deltaRad / maxRad
	switch kind {
	case InfluenceConstant:
		return 1
	case InfluenceCosine:
		return 0.5 * (1 + math.Cos(math.Pi*frac))
	default: // InfluenceLinear
		return 1 - frac
	}
}

func fTime(deltaSec, maxSec float64, kind InfluenceKind) float64 {
	return fDist(deltaSec, maxSec, kind)
}

// coveragePoint is one recorded pointing in a sky-coverage grid entry.
type coveragePoint struct {
	Az, El  float64
	TimeSec uint64
}

// SkyCoverage is the rolling set of recently observed pointings for one
// station or twin group.
type SkyCoverage struct {
	points []coveragePoint
}

// Record appends a new observed pointing.
func (g *SkyCoverage) Record(az, el float64, sec uint64) {
	g.points = append(g.points, coveragePoint{Az: az, El: el, TimeSec: sec})
}

// Gain returns 1 minus the influence of a proposed pointing at (az, el, sec)
// against this grid's recorded history: the maximum of f_dist(Δθ)·f_time(Δt)
// over points within the influence window.
func (g *SkyCoverage) Gain(az, el float64, sec uint64, inf Influence) float64 {
	var maxInfluence float64
	for _, p := range g.points {
		if sec < p.TimeSec {
			continue
		}
		dt := float64(sec - p.TimeSec)
		if dt > inf.MaxTimeSec {
			continue
		}
		dtheta := geometry.AngularDistance(p.Az, p.El, az, el)
		if dtheta > inf.MaxDistRad {
			continue
		}
		v := fDist(dtheta, inf.MaxDistRad, inf.DistKind) * fTime(dt, inf.MaxTimeSec, inf.TimeKind)
		if v > maxInfluence {
			maxInfluence = v
		}
	}
	return 1 - maxInfluence
}

// ObservationMode is the shared, mode-derived recording configuration that
// feeds the SNR-duration formula: sample rate and bit depth are fixed for
// the whole session, channel count varies per band. It lives here rather
// than on per-station equipment since equip.cat carries only each
// station's per-band SEFD.
type ObservationMode struct {
	SampleRateHz float64
	Bits         int
	NChannels    map[string]int
}

// Network is the per-worker collection of stations, baselines and
// sky-coverage grids; it exclusively owns this state for one schedule run.
type Network struct {
	Stations  map[string]*station.Station
	Baselines map[string]*baseline.Baseline
	Influence Influence
	Mode      ObservationMode

	coverage map[string]*SkyCoverage // keyed by station ID or twin group
}

// New builds an empty Network over the given stations and baselines.
func New(stations map[string]*station.Station, baselines map[string]*baseline.Baseline, inf Influence, mode ObservationMode) *Network {
	return &Network{
		Stations:  stations,
		Baselines: baselines,
		Influence: inf,
		Mode:      mode,
		coverage:  make(map[string]*SkyCoverage),
	}
}

// coverageKey returns the station's twin-group ID if it has one, otherwise
// its own station ID, per §3's "per station (or twin group)" grid key.
func (n *Network) coverageKey(st *station.Station) string {
	if st.TwinGroup != "" {
		return st.TwinGroup
	}
	return st.ID
}

// CoverageGain reports the sky-coverage gain (1 - influence) of pointing
// pv at station stationID, creating an empty grid on first use.
func (n *Network) CoverageGain(stationID string, pv geometry.Pointing) float64 {
	st, ok := n.Stations[stationID]
	if !ok {
		return 1
	}
	key := n.coverageKey(st)
	grid, ok := n.coverage[key]
	if !ok {
		return 1
	}
	return grid.Gain(pv.Az, pv.El, pv.TimeSec, n.Influence)
}

// BaselineKey returns the canonical key for the baseline between two
// stations, matching baseline.Key's ordering.
func BaselineKey(sta1, sta2 string) string { return baseline.Key(sta1, sta2) }

// CommitScan records a committed scan's per-station pointings into the
// sky-coverage grid and advances each participating station's current
// pointing and statistics. pointings is keyed by station ID.
func (n *Network) CommitScan(pointings map[string]geometry.Pointing, endSec uint64, durationSec float64) {
	for id, pv := range pointings {
		st, ok := n.Stations[id]
		if !ok {
			continue
		}
		key := n.coverageKey(st)
		grid, ok := n.coverage[key]
		if !ok {
			grid = &SkyCoverage{}
			n.coverage[key] = grid
		}
		grid.Record(pv.Az, pv.El, pv.TimeSec)

		st.Stats.ScanStartTimesSec = append(st.Stats.ScanStartTimesSec, pv.TimeSec)
		st.Stats.TotalObservingSec += durationSec
		st.Current = geometry.Pointing{StationID: id, TimeSec: endSec, Az: pv.Az, El: pv.El, HourAngle: pv.HourAngle, Declination: pv.Declination}
		st.MarkFirstScanUsed()
	}

	ids := pointingKeys(pointings)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			key := BaselineKey(ids[i], ids[j])
			if bl, ok := n.Baselines[key]; ok {
				bl.TotalObservations++
				bl.TotalObservingSec += durationSec
			}
		}
	}
}

// ResetBookkeeping clears the sky-coverage grids and the per-station and
// per-baseline statistics accumulated by committed scans, used when an
// optimization restart discards the schedule.
func (n *Network) ResetBookkeeping() {
	n.coverage = make(map[string]*SkyCoverage)
	for _, st := range n.Stations {
		st.Stats = station.Stats{}
	}
	for _, bl := range n.Baselines {
		bl.TotalObservations = 0
		bl.TotalObservingSec = 0
	}
}

func pointingKeys(m map[string]geometry.Pointing) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
