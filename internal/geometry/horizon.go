package geometry

import (
	"math"
	"sort"
)

// MaskKind selects the horizon mask representation for a station.
type MaskKind int

const (
	MaskNone MaskKind = iota
	MaskStep
	MaskLine
)

// MaskSector is one (azimuth, minimum elevation) knot of a horizon mask.
type MaskSector struct {
	AzRad float64
	ElRad float64
}

// HorizonMask gives the minimum observable elevation as a function of
// azimuth: none (always visible), a piecewise-constant step function per
// azimuth sector, or a piecewise-linear interpolation between knots.
type HorizonMask struct {
	Kind    MaskKind
	Sectors []MaskSector // sorted ascending by AzRad
}

// sectorsSorted returns a copy of the mask's knots sorted by azimuth.
func (m HorizonMask) sectorsSorted() []MaskSector {
	ss := append([]MaskSector(nil), m.Sectors...)
	sort.Slice(ss, func(i, j int) bool { return ss[i].AzRad < ss[j].AzRad })
	return ss
}

// MinElevation returns the mask's minimum elevation at the given azimuth
// (radians, any range; normalized internally to the mask's knot domain).
func (m HorizonMask) MinElevation(az float64) float64 {
	if m.Kind == MaskNone || len(m.Sectors) == 0 {
		return -math.Pi / 2
	}
	ss := m.sectorsSorted()
	az = wrapToTwoPi(az)

	switch m.Kind {
	case MaskStep:
		el := ss[len(ss)-1].ElRad
		for _, s := range ss {
			if az >= s.AzRad {
				el = s.ElRad
			} else {
				break
			}
		}
		return el
	case MaskLine:
		if az <= ss[0].AzRad {
			return ss[0].ElRad
		}
		if az >= ss[len(ss)-1].AzRad {
			return ss[len(ss)-1].ElRad
		}
		for i := 1; i < len(ss); i++ {
			if az <= ss[i].AzRad {
				a0, a1 := ss[i-1].AzRad, ss[i].AzRad
				e0, e1 := ss[i-1].ElRad, ss[i].ElRad
				if a1 == a0 {
					return e0
				}
				f := (az - a0) / (a1 - a0)
				return e0 + f*(e1-e0)
			}
		}
		return ss[len(ss)-1].ElRad
	default:
		return -math.Pi / 2
	}
}

// Visible reports whether el is admitted by the mask at azimuth az.
func (m HorizonMask) Visible(az, el float64) bool {
	return el >= m.MinElevation(az)
}

func wrapToTwoPi(az float64) float64 {
	for az < 0 {
		az += twoPi
	}
	for az >= twoPi {
		az -= twoPi
	}
	return az
}
