// Package scan implements the Scan and ScanTimes model: the per-station
// time-alignment state machine, baseline/observation construction and the
// SNR-based duration derivation.
package scan

import "github.com/pkg/errors"

// ErrSnrInfeasible is returned when no per-band duration fits within a
// baseline's [minScan, maxScan] window; the baseline is dropped, not the
// whole scan.
var ErrSnrInfeasible = errors.New("scan: no feasible SNR duration")

// ErrSlewPolicy is recorded when a station's slew to the scan target
// violates its max slew time or min/max slew distance policy.
var ErrSlewPolicy = errors.New("scan: slew violates station slew policy")

// ErrWaitTooLong is recorded when alignment leaves a station idling longer
// than its max wait policy allows.
var ErrWaitTooLong = errors.New("scan: idle wait exceeds station max wait")

// AlignmentAnchor selects how per-station observing windows are aligned
// within a scan.
type AlignmentAnchor int

const (
	AnchorStart AlignmentAnchor = iota
	AnchorEnd
	AnchorIndividual
)

// StationTimes is the six-timestamp tuple maintained per participating
// station: end of the previous scan, end of field-system reconfiguration,
// end of slew, end of idle wait, end of preob, end of observing. All six
// are nondecreasing for a given station.
type StationTimes struct {
	EndOfPreviousScan uint64
	EndOfFieldSystem  uint64
	EndOfSlew         uint64
	EndOfIdle         uint64
	EndOfPreob        uint64
	EndOfObserving    uint64
}

func (t StationTimes) FieldSystemSec() float64 {
	return float64(t.EndOfFieldSystem) - float64(t.EndOfPreviousScan)
}

func (t StationTimes) SlewSec() float64 {
	return float64(t.EndOfSlew) - float64(t.EndOfFieldSystem)
}

func (t StationTimes) IdleSec() float64 {
	return float64(t.EndOfIdle) - float64(t.EndOfSlew)
}

func (t StationTimes) PreobSec() float64 {
	return float64(t.EndOfPreob) - float64(t.EndOfIdle)
}

func (t StationTimes) ObservingSec() float64 {
	return float64(t.EndOfObserving) - float64(t.EndOfPreob)
}
