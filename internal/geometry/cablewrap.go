package geometry

import "math"

// WrapFlag denotes which cable-wrap turn a pointing's azimuth falls into.
type WrapFlag int

const (
	WrapNeutral WrapFlag = iota
	WrapClockwise
	WrapCounterClockwise
)

func (f WrapFlag) String() string {
	switch f {
	case WrapClockwise:
		return "C"
	case WrapCounterClockwise:
		return "W"
	default:
		return "N"
	}
}

// CableWrap models the three-region (neutral/clockwise/counter-clockwise)
// azimuth axis geometry. The six edge angles are precomputed once at
// construction; cableWrapFlag then becomes a constant-time range check.
type CableWrap struct {
	axis1Low, axis1Up float64 // raw limits, radians, kept for diagnostics
	axis2Low, axis2Up float64

	axis1LowOffset, axis1UpOffset float64 // safety margins
	axis2LowOffset, axis2UpOffset float64

	nLow, nUp float64
	cLow, cUp float64
	wLow, wUp float64
}

// NewCableWrap builds a CableWrap from the axis1 (azimuth) limits in
// radians. Axis2 (elevation) limits are also stored for AnglesInside.
func NewCableWrap(axis1Low, axis1Up, axis2Low, axis2Up float64) *CableWrap {
	c := &CableWrap{axis1Low: axis1Low, axis1Up: axis1Up, axis2Low: axis2Low, axis2Up: axis2Up}
	c.deriveSections()
	return c
}

// SetMinimumOffsets sets the safety margins applied on top of the raw axis
// limits and recomputes the derived N/C/W ranges.
func (c *CableWrap) SetMinimumOffsets(a1Low, a1Up, a2Low, a2Up float64) {
	c.axis1LowOffset, c.axis1UpOffset = a1Low, a1Up
	c.axis2LowOffset, c.axis2UpOffset = a2Low, a2Up
	c.deriveSections()
}

// two π, local for clarity at call sites below.
const twoPi = 2 * math.Pi

// deriveSections splits the raw axis range into the three wrap sections.
// Azimuth is periodic by 2pi; the primary, unextended turn [0, 2pi) is the
// neutral (N) range common to both possible windings, the portion of the
// axis travel above it is the clockwise (C) extension, and the portion
// below it is the counter-clockwise (W) extension.
func (c *CableWrap) deriveSections() {
	low := c.axis1Low + c.axis1LowOffset
	up := c.axis1Up - c.axis1UpOffset

	c.nLow = math.Max(low, 0)
	c.nUp = math.Min(up, twoPi)
	if c.nUp < c.nLow {
		c.nUp = c.nLow
	}
	c.cLow = c.nUp
	c.cUp = up
	c.wLow = low
	c.wUp = c.nLow
}

// Sections returns the six precomputed edge angles (nLow, nUp, cLow, cUp,
// wLow, wUp), radians, for diagnostics.
func (c *CableWrap) Sections() (nLow, nUp, cLow, cUp, wLow, wUp float64) {
	return c.nLow, c.nUp, c.cLow, c.cUp, c.wLow, c.wUp
}

// CableWrapFlag classifies an (unwrapped) azimuth into N/C/W by containment.
func (c *CableWrap) CableWrapFlag(az float64) WrapFlag {
	switch {
	case az >= c.nLow && az <= c.nUp:
		return WrapNeutral
	case az >= c.cLow && az <= c.cUp:
		return WrapClockwise
	default:
		return WrapCounterClockwise
	}
}

// UnwrapAzNearAz adds a multiple of 2pi to az so that the result lies
// within the axis limits (including safety margins) and is the closest
// such value to azPrev. It returns (unwrapped azimuth, ok); ok is false if
// no multiple of 2pi brings az inside the limits.
func (c *CableWrap) UnwrapAzNearAz(az, azPrev float64) (float64, bool) {
	low := c.axis1Low + c.axis1LowOffset
	up := c.axis1Up - c.axis1UpOffset

	// Normalize az into (-pi, pi], then walk enough wraps in both
	// directions to cover the full axis span.
	base := normalizeToPi(az)
	kMin := int(math.Floor((low-base)/twoPi)) - 1
	kMax := int(math.Ceil((up-base)/twoPi)) + 1

	best := 0.0
	bestDist := math.Inf(1)
	found := false
	for k := kMin; k <= kMax; k++ {
		cand := base + float64(k)*twoPi
		if cand < low || cand > up {
			continue
		}
		d := math.Abs(cand - azPrev)
		if d < bestDist {
			bestDist = d
			best = cand
			found = true
		}
	}
	return best, found
}

func normalizeToPi(az float64) float64 {
	for az > math.Pi {
		az -= twoPi
	}
	for az <= -math.Pi {
		az += twoPi
	}
	return az
}

// AnglesInside reports whether the given azimuth/elevation pair lies
// within both axis limits, including safety margins.
func (c *CableWrap) AnglesInside(az, el float64) bool {
	low1, up1 := c.axis1Low+c.axis1LowOffset, c.axis1Up-c.axis1UpOffset
	low2, up2 := c.axis2Low+c.axis2LowOffset, c.axis2Up-c.axis2UpOffset
	return az >= low1 && az <= up1 && el >= low2 && el <= up2
}
