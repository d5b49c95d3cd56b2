package scheduler

import (
	"sort"

	"github.com/busoc-assist/vlbisched/internal/scan"
)

// fillInAPosteriori iterates between already-committed scans, using their
// boundaries as endpositions, and selects fill-in scans in each gap.
func (s *Scheduler) fillInAPosteriori() {
	if len(s.Scans) < 2 {
		return
	}
	ordered := make([]*scan.Scan, len(s.Scans))
	copy(ordered, s.Scans)
	sort.Slice(ordered, func(i, j int) bool { return scanObservingStart(ordered[i]) < scanObservingStart(ordered[j]) })

	for i := 0; i < len(ordered)-1; i++ {
		gapStart := scanObservingEnd(ordered[i])
		gapEnd := scanObservingStart(ordered[i+1])
		if gapEnd <= gapStart {
			continue
		}
		endposition := collectStartPointings(ordered[i+1])
		_ = s.runScanSelection(gapStart, gapEnd, scan.TypeFillIn, endposition, nil, 1)
	}
}
