package scheduler

import (
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/subcon"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

// calibratorDue reports whether the calibrator block rule fires at t:
// either the scan count or the elapsed time since the last block reached
// the configured cadence.
func (s *Scheduler) calibratorDue(t uint64) (bool, *weight.CalibratorDescriptor) {
	desc := s.Reg.Calibrator
	if desc == nil {
		return false, nil
	}
	scansSince := len(s.Scans) - s.lastCalibratorScanIdx
	if desc.CadenceScans > 0 && scansSince >= desc.CadenceScans {
		return true, desc
	}
	if desc.CadenceSec > 0 && float64(t-s.lastCalibratorSec) >= desc.CadenceSec {
		return true, desc
	}
	return false, nil
}

// runCalibratorBlock runs a dedicated selection loop scored by
// subcon.ScoreCalibrator instead of the normal weight scoring, committing
// scans until the block's termination condition (subcon.CalibratorState.Done)
// is reached or no candidate survives.
func (s *Scheduler) runCalibratorBlock(t uint64, desc *weight.CalibratorDescriptor) (uint64, error) {
	if s.calibratorState == nil {
		ids := make([]string, 0, len(s.Net.Stations))
		for id := range s.Net.Stations {
			ids = append(ids, id)
		}
		s.calibratorState = subcon.NewCalibratorState(ids)
	}
	cs := s.calibratorState

	for !cs.Done(desc) {
		gmst := s.gmstAt(t)
		exclude := s.excludeForSequenceRestriction(desc.AllowedSourceIDs)
		sc := subcon.Build(s.Net, s.Sources, t, gmst, s.Opts.Anchor, s.Reg, exclude, s.Opts.Subnetting)
		if sc.Empty() {
			break
		}

		best := subcon.ScoreCalibrator(sc.Candidates, cs, desc, s.Reg)
		if best == nil {
			break
		}

		maxEnd := scanObservingEnd(best.Scan)
		if best.Partner != nil {
			if e := scanObservingEnd(best.Partner); e > maxEnd {
				maxEnd = e
			}
		}
		if hard := s.checkForNewEvents(maxEnd); hard {
			break
		}

		s.commit(best.Scan, scan.TypeCalibrator)
		if best.Partner != nil {
			s.commit(best.Partner, scan.TypeSubnetting)
		}
		cs.CommitCalibratorScan(best.Scan, s.Reg, s.Net)
		t = maxEnd
	}

	s.lastCalibratorScanIdx = len(s.Scans)
	s.lastCalibratorSec = t
	return t, nil
}
