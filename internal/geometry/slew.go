// Package geometry implements the antenna kinematic and pointing primitives:
// per-axis slew time, cable-wrap unwrap, horizon masks and angular distance.
package geometry

import "math"

// AxisKind identifies which physical mount an antenna uses; it determines
// which angular pair (az/el, ha/dc, x/y) is fed to the per-axis slew model.
type AxisKind int

const (
	AxisAzEl AxisKind = iota
	AxisHaDc
	AxisXYEW
)

// Axis carries the kinematic parameters of one antenna axis: slew rate,
// acceleration and a constant per-slew overhead.
//
// SlewTimePerAxis uses Rate in place of Accel; see the note there.
type Axis struct {
	RateRadPerSec  float64
	AccelRadPerSec float64
	OverheadSec    float64
}

// SlewTimePerAxis returns the time, in seconds, to slew one axis by the
// absolute angular distance delta (radians) using a trapezoidal velocity
// profile: an acceleration phase, optionally a constant-rate cruise phase,
// then deceleration, plus a fixed per-slew overhead.
//
// acc = rate is a preserved contract: the axis never reaches a cruising
// speed distinct from the rate parameter used for acceleration. Whether
// that is intentional upstream is unresolved; callers rely on the
// behavior as is, so it stays.
func SlewTimePerAxis(delta float64, ax Axis) float64 {
	delta = math.Abs(delta)
	rate, acc := ax.RateRadPerSec, ax.RateRadPerSec
	if rate <= 0 {
		return math.Ceil(0) + ax.OverheadSec
	}

	tAcc := rate / acc
	sAcc := acc * tAcc * tAcc

	var t float64
	if delta < sAcc {
		t = 2 * math.Sqrt(delta/acc)
	} else {
		t = 2*tAcc + (delta-sAcc)/rate
	}
	return math.Ceil(t) + ax.OverheadSec
}

// Antenna is the tagged-variant kinematic model for one station: an axis
// kind plus the two physical axes feeding the trapezoidal slew model, a
// dish diameter and the offset of the axis intersection.
type Antenna struct {
	Kind       AxisKind
	Axis1      Axis
	Axis2      Axis
	OffsetM    float64
	DiameterM  float64
}

// SlewTime returns the full antenna slew time between two pointings: the
// maximum of the two per-axis slew times, following the axis kind to pick
// the angular pair that is actually driven by the mount.
func (a Antenna) SlewTime(from, to Pointing) float64 {
	d1, d2 := axisDeltas(a.Kind, from, to)
	t1 := SlewTimePerAxis(d1, a.Axis1)
	t2 := SlewTimePerAxis(d2, a.Axis2)
	if t1 > t2 {
		return t1
	}
	return t2
}

func axisDeltas(kind AxisKind, from, to Pointing) (float64, float64) {
	switch kind {
	case AxisHaDc:
		return angularDelta(from.HourAngle, to.HourAngle), angularDelta(from.Declination, to.Declination)
	case AxisXYEW:
		x1 := math.Atan2(math.Cos(from.El)*math.Cos(from.Az), math.Sin(from.El))
		y1 := math.Asin(math.Cos(from.El) * math.Sin(from.Az))
		x2 := math.Atan2(math.Cos(to.El)*math.Cos(to.Az), math.Sin(to.El))
		y2 := math.Asin(math.Cos(to.El) * math.Sin(to.Az))
		return angularDelta(x1, x2), angularDelta(y1, y2)
	default:
		return angularDelta(from.Az, to.Az), angularDelta(from.El, to.El)
	}
}

func angularDelta(a, b float64) float64 {
	return math.Abs(b - a)
}

// AngularDistance returns the great-circle separation between two (az, el)
// directions: acos(sin*sin + cos*cos*cos(Δaz)).
func AngularDistance(az1, el1, az2, el2 float64) float64 {
	cosD := math.Sin(el1)*math.Sin(el2) + math.Cos(el1)*math.Cos(el2)*math.Cos(az2-az1)
	if cosD > 1 {
		cosD = 1
	}
	if cosD < -1 {
		cosD = -1
	}
	return math.Acos(cosD)
}
