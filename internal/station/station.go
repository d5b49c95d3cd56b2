// Package station implements the per-station kinematic, equipment and
// visibility model.
package station

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/policy"
)

// ErrNotReachable is returned by SlewTime when a pointing cannot be
// reached: the unwrap lands outside the cable-wrap limits, or it would
// require a turn of more than pi/2 from the current committed pointing.
var ErrNotReachable = errors.New("station: pointing not reachable")

// WaitTimes are the fixed per-station procedural durations: field-system,
// preob, midob, postob, source, setup, tape and calibration waits, all
// seconds.
type WaitTimes struct {
	FieldSystemSec float64
	PreobSec       float64
	MidobSec       float64
	PostobSec      float64
	SourceSec      float64
	SetupSec       float64
	TapeSec        float64
	CalibrationSec float64
}

// BandSEFD is one band's system-equivalent flux density, optionally
// elevation-dependent via the documented external formula
// SEFD(el) = y/sin(el) + c0 + c1*el. Sample
// rate, bit depth and channel count are not here: they are mode-derived,
// process-wide values carried on network.ObservationMode, not per-station
// equipment.
type BandSEFD struct {
	Constant     float64
	ElevationDep bool
	Y, C0, C1    float64
}

// SEFD returns the system-equivalent flux density for this band at the
// given elevation (radians).
func (b BandSEFD) SEFD(elRad float64) float64 {
	if !b.ElevationDep {
		return b.Constant
	}
	s := math.Sin(elRad)
	if s <= 0 {
		s = 1e-6
	}
	return b.Y/s + b.C0 + b.C1*elRad
}

// Equipment is the per-station, per-band SEFD table.
type Equipment struct {
	Bands map[string]BandSEFD
}

// Position is a station's geocentric position with derived local frame.
type Position struct {
	X, Y, Z float64 // meters

	LatRad, LonRad float64
}

// Stats is the rolling per-station statistics record.
type Stats struct {
	ScanStartTimesSec []uint64
	TotalObservingSec float64
	TotalFieldSysSec  float64
	TotalPreobSec     float64
	TotalSlewSec      float64
	TotalIdleSec      float64
}

// Station is one geodetic antenna.
type Station struct {
	ID, Name      string
	TwoLetterCode string
	OneLetterCode string

	Position Position
	Antenna  geometry.Antenna
	CableWrap *geometry.CableWrap
	Mask     geometry.HorizonMask
	Equip    Equipment
	Wait     WaitTimes

	TwinGroup string // shared sky-coverage group, empty if none

	Current geometry.Pointing // current pointing; time monotonically nondecreasing

	timeline *policy.Timeline[Params]

	Stats Stats

	firstScanUsed bool
}

// New builds a Station with the given static attributes and event
// timeline. events must be sorted ascending, with the first event
// anchored at t=0.
func New(id, name string, pos Position, ant geometry.Antenna, cw *geometry.CableWrap, mask geometry.HorizonMask, equip Equipment, wait WaitTimes, events []policy.Event[Params]) *Station {
	return &Station{
		ID:        id,
		Name:      name,
		Position:  pos,
		Antenna:   ant,
		CableWrap: cw,
		Mask:      mask,
		Equip:     equip,
		Wait:      wait,
		timeline:  policy.NewTimeline(events),
	}
}

// Params returns the parameter block currently in effect. The FirstScan
// flag only holds until the station's first scan is committed.
func (s *Station) Params() Params {
	p := s.timeline.Current()
	if s.firstScanUsed {
		p.FirstScan = false
	}
	return p
}

// MarkFirstScanUsed consumes the FirstScan flag once the station's first
// scan is committed.
func (s *Station) MarkFirstScanUsed() {
	s.firstScanUsed = true
}

// ResetFirstScanUsed re-arms the FirstScan flag, used when an optimization
// restart discards the schedule.
func (s *Station) ResetFirstScanUsed() {
	s.firstScanUsed = false
}

// CheckForNewEvent advances the station's event cursor to the latest
// event whose time is <= sec, reporting whether anything changed and
// whether a hard transition occurred.
func (s *Station) CheckForNewEvent(sec uint64) (changed, hard bool) {
	return s.timeline.CheckForNewEvent(sec)
}

// ResetEvents rewinds the station's event cursor to session start.
func (s *Station) ResetEvents() {
	s.timeline.Reset()
}

// ApplyOverlay rewrites every event in the station's timeline through fn,
// used by internal/config to merge a configuration overlay onto the
// catalog-derived defaults.
func (s *Station) ApplyOverlay(fn func(Params) Params) {
	s.timeline.ApplyOverlay(fn)
}

// CheckForTagalongMode reports whether, at internal time sec, the station
// has just entered an interval with Tagalong=true while it was previously
// unavailable, the trigger for tag-along insertion.
func (s *Station) CheckForTagalongMode(sec uint64) bool {
	events := s.timeline.Events()
	var prevAvailable, sawTagalongNow bool
	for i, e := range events {
		if e.TimeSec > sec {
			break
		}
		if i > 0 {
			prevAvailable = events[i-1].Params.Available
		}
		sawTagalongNow = e.Params.Tagalong
	}
	return sawTagalongNow && !prevAvailable
}

// TagalongTransitionTime returns the time of the first event that flips
// the station into tagalong mode from a previously-unavailable interval,
// if any.
func (s *Station) TagalongTransitionTime() (uint64, bool) {
	events := s.timeline.Events()
	for i := 1; i < len(events); i++ {
		if events[i].Params.Tagalong && !events[i-1].Params.Available {
			return events[i].TimeSec, true
		}
	}
	return 0, false
}

// CalcAzElSimple fills az/el/ha/dc into a pointing vector using a local
// topocentric approximation (no nutation/polar-motion/aberration).
func (s *Station) CalcAzElSimple(raRad, decRad float64, gmstRad float64, sec uint64) geometry.Pointing {
	ha := gmstRad + s.Position.LonRad - raRad
	sinEl := math.Sin(s.Position.LatRad)*math.Sin(decRad) + math.Cos(s.Position.LatRad)*math.Cos(decRad)*math.Cos(ha)
	el := math.Asin(clamp(sinEl, -1, 1))

	cosAz := (math.Sin(decRad) - math.Sin(el)*math.Sin(s.Position.LatRad)) / (math.Cos(el) * math.Cos(s.Position.LatRad))
	az := math.Acos(clamp(cosAz, -1, 1))
	if math.Sin(ha) > 0 {
		az = twoPi() - az
	}
	return geometry.Pointing{StationID: s.ID, TimeSec: sec, Az: az, El: el, HourAngle: ha, Declination: decRad}
}

// CalcAzElRigorous fills az/el/ha/dc applying the session's interpolated
// nutation correction on top of the simple topocentric model. The
// correction is the standard nutation matrix N = R1(-eps-deps) R3(-dpsi)
// R1(eps), composed with gonum/mat rather than the linearized scalar
// approximation. It never fails; on any astro lookup error it falls back
// to the simple model, so a pointing is always produced.
func (s *Station) CalcAzElRigorous(sess *astro.Session, raRad, decRad float64, sec uint64) geometry.Pointing {
	gmst, err := sess.GMSTAt(sec)
	if err != nil {
		gmst = 0
	}
	dpsi, deps, err := sess.NutationAt(sec)
	if err != nil {
		dpsi, deps = 0, 0
	}
	correctedRA, correctedDec := applyNutationMatrix(raRad, decRad, dpsi, deps)
	return s.CalcAzElSimple(correctedRA, correctedDec, gmst, sec)
}

const meanObliquityRad = 23.439291 * math.Pi / 180

// applyNutationMatrix rotates the equatorial unit vector at (raRad, decRad)
// by the nutation matrix N = R1(-eps-deps) R3(-dpsi) R1(eps) and returns
// the corrected (ra, dec).
func applyNutationMatrix(raRad, decRad, dpsi, deps float64) (float64, float64) {
	v := mat.NewVecDense(3, []float64{
		math.Cos(decRad) * math.Cos(raRad),
		math.Cos(decRad) * math.Sin(raRad),
		math.Sin(decRad),
	})

	n := mat.NewDense(3, 3, nil)
	n.Mul(rotX(-(meanObliquityRad + deps)), rotZ(-dpsi))
	n.Mul(n, rotX(meanObliquityRad))

	var out mat.VecDense
	out.MulVec(n, v)

	x, y, z := out.AtVec(0), out.AtVec(1), out.AtVec(2)
	ra := math.Atan2(y, x)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec := math.Asin(clamp(z, -1, 1))
	return ra, dec
}

func rotX(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}

func rotZ(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

// IsVisible reports whether pv is above both the effective minimum
// elevation (max of station and source policy) and the horizon mask, and
// whether its azimuth is inside the cable-wrap limits with safety margins.
func (s *Station) IsVisible(pv geometry.Pointing, sourceMinElRad float64) bool {
	minEl := s.Params().MinElevationRad
	if sourceMinElRad > minEl {
		minEl = sourceMinElRad
	}
	if pv.El < minEl {
		return false
	}
	if !s.Mask.Visible(pv.Az, pv.El) {
		return false
	}
	return s.CableWrap.AnglesInside(pv.Az, pv.El)
}

// SlewTime unwraps pvTo's azimuth near the current pointing's unwrapped
// azimuth, then returns the antenna slew time between the current
// pointing and the unwrapped target. It returns ErrNotReachable if the
// unwrap lands outside cable-wrap limits, or if reaching pvTo requires a
// turn of more than pi/2 from the committed pointing.
func (s *Station) SlewTime(pvTo geometry.Pointing) (float64, error) {
	unwrapped, ok := s.CableWrap.UnwrapAzNearAz(pvTo.Az, s.Current.Az)
	if !ok {
		return 0, ErrNotReachable
	}
	if math.Abs(unwrapped-s.Current.Az) > pi()/2 {
		return 0, ErrNotReachable
	}
	pvTo.Az = unwrapped
	return s.Antenna.SlewTime(s.Current, pvTo), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pi() float64    { return math.Pi }
func twoPi() float64 { return 2 * math.Pi }
