package subcon

import (
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

// CalibratorState tracks the two per-station score vectors a calibrator
// block drives toward 1.
type CalibratorState struct {
	PrevLowElevationScore  map[string]float64
	PrevHighElevationScore map[string]float64
	ScansTaken             int
}

// NewCalibratorState initializes both vectors at zero for the given
// stations.
func NewCalibratorState(stationIDs []string) *CalibratorState {
	s := &CalibratorState{
		PrevLowElevationScore:  make(map[string]float64),
		PrevHighElevationScore: make(map[string]float64),
	}
	for _, id := range stationIDs {
		s.PrevLowElevationScore[id] = 0
		s.PrevHighElevationScore[id] = 0
	}
	return s
}

// Done reports whether the block should terminate: both vectors at or
// above 0.5 for every station, or the configured scan cap reached.
func (cs *CalibratorState) Done(desc *weight.CalibratorDescriptor) bool {
	if desc.MaxScans > 0 && cs.ScansTaken >= desc.MaxScans {
		return true
	}
	for id := range cs.PrevLowElevationScore {
		if cs.PrevLowElevationScore[id] < 0.5 || cs.PrevHighElevationScore[id] < 0.5 {
			return false
		}
	}
	return len(cs.PrevLowElevationScore) > 0
}

// ScoreCalibrator replaces the normal scoring for a calibrator block: the
// candidate that pushes both vectors furthest toward 1 wins.
func ScoreCalibrator(candidates []*Candidate, cs *CalibratorState, desc *weight.CalibratorDescriptor, reg *weight.Registry) *Candidate {
	var best *Candidate
	var bestGain float64
	for _, c := range candidates {
		if desc.AllowedSourceIDs != nil && !desc.AllowedSourceIDs[c.Scan.SourceID] {
			continue
		}
		gain := calibratorGain(c.Scan, cs, desc, reg)
		if best == nil || gain > bestGain {
			best, bestGain = c, gain
		}
	}
	return best
}

func calibratorGain(s *scan.Scan, cs *CalibratorState, desc *weight.CalibratorDescriptor, reg *weight.Registry) float64 {
	var gain float64
	for id, pv := range s.StartPointing {
		lowRamp := reg.Factors.LowElevationRamp(pv.El)
		highRamp := 1 - lowRamp
		gain += (lowRamp - cs.PrevLowElevationScore[id]) + (highRamp - cs.PrevHighElevationScore[id])
	}
	return gain
}

// CommitCalibratorScan updates the score vectors after a calibrator scan
// is committed.
func (cs *CalibratorState) CommitCalibratorScan(s *scan.Scan, reg *weight.Registry, net *network.Network) {
	for id, pv := range s.StartPointing {
		lowRamp := reg.Factors.LowElevationRamp(pv.El)
		if lowRamp > cs.PrevLowElevationScore[id] {
			cs.PrevLowElevationScore[id] = lowRamp
		}
		highRamp := 1 - lowRamp
		if highRamp > cs.PrevHighElevationScore[id] {
			cs.PrevHighElevationScore[id] = highRamp
		}
	}
	cs.ScansTaken++
}
