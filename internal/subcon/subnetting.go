package subcon

import (
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
)

// SubnettingOptions configures whether and how pairs of single-scan
// candidates are combined into subnetting candidates.
type SubnettingOptions struct {
	Enabled       bool
	MinAngleRad   float64
	MinNStations  int
}

// buildSubnettingCandidates emits a subnetting candidate for every pair of
// candidates A, B with disjoint station sets whose sources are separated
// by at least MinAngleRad and whose combined station count is at least
// MinNStations. Its score is the sum of the parts.
func buildSubnettingCandidates(candidates []*Candidate, sources map[string]*source.Source, opts SubnettingOptions) []*Candidate {
	var out []*Candidate
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if a.Partner != nil || b.Partner != nil {
				continue
			}
			if !disjointStations(a.Scan, b.Scan) {
				continue
			}
			combined := len(a.Scan.Stations) + len(b.Scan.Stations)
			if combined < opts.MinNStations {
				continue
			}
			if !sourcesSeparated(sources[a.Scan.SourceID], sources[b.Scan.SourceID], opts.MinAngleRad) {
				continue
			}
			out = append(out, &Candidate{Scan: a.Scan, Partner: b.Scan, Score: a.Score + b.Score})
		}
	}
	return out
}

func disjointStations(a, b *scan.Scan) bool {
	seen := make(map[string]bool, len(a.Stations))
	for _, id := range a.Stations {
		seen[id] = true
	}
	for _, id := range b.Stations {
		if seen[id] {
			return false
		}
	}
	return true
}

// sourcesSeparated measures the great-circle separation of the two source
// positions themselves; the RA/Dec pair feeds the same spherical formula
// as an az/el pair.
func sourcesSeparated(a, b *source.Source, minAngleRad float64) bool {
	if a == nil || b == nil {
		return false
	}
	return geometry.AngularDistance(a.RaRad, a.DecRad, b.RaRad, b.DecRad) >= minAngleRad
}
