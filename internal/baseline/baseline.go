// Package baseline implements the per-station-pair policy model:
// per-band minimum SNR, weight and event timeline.
package baseline

import "github.com/busoc-assist/vlbisched/internal/policy"

// Params is the per-baseline policy block in effect at a point in time.
type Params struct {
	MinSNR map[string]float64
	Ignore bool
	Weight float64

	MinScanSec float64
	MaxScanSec float64
}

// Overlay merges next's non-zero/non-nil fields onto base; the Ignore
// flag is always taken from next.
func (base Params) Overlay(next Params) Params {
	out := base
	if next.MinSNR != nil {
		out.MinSNR = next.MinSNR
	}
	out.Ignore = next.Ignore
	if next.Weight != 0 {
		out.Weight = next.Weight
	}
	if next.MinScanSec != 0 {
		out.MinScanSec = next.MinScanSec
	}
	if next.MaxScanSec != 0 {
		out.MaxScanSec = next.MaxScanSec
	}
	return out
}

// Baseline is one ordered station pair's policy and statistics.
type Baseline struct {
	ID       string
	Station1 string
	Station2 string

	timeline *policy.Timeline[Params]

	TotalObservations int
	TotalObservingSec float64
}

// New builds a Baseline with the given station pair and event timeline.
func New(id, sta1, sta2 string, events []policy.Event[Params]) *Baseline {
	return &Baseline{ID: id, Station1: sta1, Station2: sta2, timeline: policy.NewTimeline(events)}
}

// Params returns the parameter block currently in effect.
func (b *Baseline) Params() Params { return b.timeline.Current() }

// CheckForNewEvent advances the baseline's event cursor.
func (b *Baseline) CheckForNewEvent(sec uint64) (changed, hard bool) {
	return b.timeline.CheckForNewEvent(sec)
}

// ResetEvents rewinds the baseline's event cursor to session start.
func (b *Baseline) ResetEvents() { b.timeline.Reset() }

// ApplyOverlay rewrites every event in the baseline's timeline through
// fn, used by internal/config to merge a configuration overlay onto the
// catalog-derived defaults.
func (b *Baseline) ApplyOverlay(fn func(Params) Params) {
	b.timeline.ApplyOverlay(fn)
}

// Key returns the canonical "id1-id2" key used to index baselines in a
// Network, with station IDs ordered by ID string so lookups are
// direction-independent.
func Key(sta1, sta2 string) string {
	if sta1 <= sta2 {
		return sta1 + "-" + sta2
	}
	return sta2 + "-" + sta1
}
