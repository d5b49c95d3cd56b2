// Package astro implements the session time base and the astronomical
// quantities the scheduling core needs: MJD conversion, interpolated
// nutation/GMST samples, Earth barycentric velocity
// and the Sun's position at mid-session.
package astro

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jankampherbeek/segoport"
)

// ErrInvalidTime is returned by any query outside the session's
// precomputed [start, end+1h] range.
var ErrInvalidTime = errors.New("astro: time outside precomputed range")

// Sample is one hourly nutation/GMST sample.
type Sample struct {
	TimeSec     uint64
	DPsi, DEps  float64 // nutation in longitude/obliquity, radians
	GMSTRad     float64
}

// Session holds the precomputed, per-worker astronomical tables for one
// scheduling session. It is built once per worker so concurrent schedule
// variants never share mutable state.
type Session struct {
	Start, End time.Time
	MJDStart   float64

	samples []Sample // hourly, covering [Start, End+1h]

	earthVelocity [3]float64 // single vector at session mid-time
	sunRA, sunDec float64    // single position at session mid-time
}

const hour = 3600

// NewSession precomputes the hourly nutation/GMST table and the
// single-valued Earth-velocity/Sun-position quantities for the session
// spanning [start, end].
func NewSession(start, end time.Time) (*Session, error) {
	if !end.After(start) {
		return nil, errors.New("astro: session end must be after start")
	}
	s := &Session{Start: start, End: end}

	port := segoport.Port{}
	y, m, d := start.Date()
	hourFrac := float64(start.Hour()) + float64(start.Minute())/60 + float64(start.Second())/3600
	s.MJDStart = port.SweJulDay(y, int(m), d, hourFrac, 1) - 2400000.5

	total := end.Sub(start)
	nHours := int(total/time.Hour) + 2 // cover end+1h inclusive
	s.samples = make([]Sample, 0, nHours)
	for i := 0; i <= nHours; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		dpsi, deps := nutationSeries(s.mjdAtTime(t))
		gmst := gmstRadians(s.mjdAtTime(t))
		s.samples = append(s.samples, Sample{
			TimeSec: uint64(t.Sub(start) / time.Second),
			DPsi:    dpsi,
			DEps:    deps,
			GMSTRad: gmst,
		})
	}

	mid := start.Add(total / 2)
	s.earthVelocity = earthBarycentricVelocity(s.mjdAtTime(mid))
	s.sunRA, s.sunDec = sunRaDec(s.mjdAtTime(mid))

	return s, nil
}

func (s *Session) mjdAtTime(t time.Time) float64 {
	return s.MJDStart + t.Sub(s.Start).Seconds()/86400
}

// PosixToInternal converts a UTC wall-clock time into internal seconds
// since session start.
func (s *Session) PosixToInternal(t time.Time) uint64 {
	d := t.Sub(s.Start)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Second)
}

// InternalToPosix converts internal seconds-since-start back to a UTC
// wall-clock time.
func (s *Session) InternalToPosix(sec uint64) time.Time {
	return s.Start.Add(time.Duration(sec) * time.Second)
}

// MJDAt returns the Modified Julian Date at internal time sec.
func (s *Session) MJDAt(sec uint64) float64 {
	return s.MJDStart + float64(sec)/86400
}

func (s *Session) boundsCheck(sec uint64) error {
	limit := uint64(s.End.Sub(s.Start)/time.Second) + hour
	if sec > limit {
		return ErrInvalidTime
	}
	return nil
}

// GMSTAt returns the Greenwich Mean Sidereal Time (radians) at internal
// time sec, linearly interpolated between the precomputed hourly samples.
func (s *Session) GMSTAt(sec uint64) (float64, error) {
	if err := s.boundsCheck(sec); err != nil {
		return 0, err
	}
	i, f := s.interpIndex(sec)
	a, b := s.samples[i].GMSTRad, s.samples[i+1].GMSTRad
	// GMST wraps every ~2pi in ~24h; unwrap b near a before interpolating.
	for b-a > pi {
		b -= twoPi
	}
	for b-a < -pi {
		b += twoPi
	}
	v := a + f*(b-a)
	return wrap2pi(v), nil
}

// NutationAt returns the interpolated (dPsi, dEps) nutation components
// (radians) at internal time sec.
func (s *Session) NutationAt(sec uint64) (dpsi, deps float64, err error) {
	if err = s.boundsCheck(sec); err != nil {
		return 0, 0, err
	}
	i, f := s.interpIndex(sec)
	a0, a1 := s.samples[i].DPsi, s.samples[i+1].DPsi
	b0, b1 := s.samples[i].DEps, s.samples[i+1].DEps
	return a0 + f*(a1-a0), b0 + f*(b1-b0), nil
}

func (s *Session) interpIndex(sec uint64) (int, float64) {
	for i := 0; i < len(s.samples)-1; i++ {
		if sec >= s.samples[i].TimeSec && sec <= s.samples[i+1].TimeSec {
			span := float64(s.samples[i+1].TimeSec - s.samples[i].TimeSec)
			if span == 0 {
				return i, 0
			}
			return i, float64(sec-s.samples[i].TimeSec) / span
		}
	}
	return len(s.samples) - 2, 1
}

// EarthVelocity returns the Earth's barycentric velocity vector (AU/day),
// a single value computed once at session mid-time.
func (s *Session) EarthVelocity() [3]float64 { return s.earthVelocity }

// SunRaDec returns the Sun's (RA, Dec) in radians, a single value computed
// once at session mid-time.
func (s *Session) SunRaDec() (ra, dec float64) { return s.sunRA, s.sunDec }
