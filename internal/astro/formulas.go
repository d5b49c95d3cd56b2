package astro

import "math"

const (
	pi    = math.Pi
	twoPi = 2 * math.Pi
)

func wrap2pi(v float64) float64 {
	for v < 0 {
		v += twoPi
	}
	for v >= twoPi {
		v -= twoPi
	}
	return v
}

// nutationSeries returns a low-order approximation of the nutation in
// longitude and obliquity (radians) at the given Modified Julian Date:
// the main terms of the IAU series, sufficient to drive the
// hourly-sampled interpolation the scheduling core consumes.
func nutationSeries(mjd float64) (dpsi, deps float64) {
	t := (mjd - 51544.5) / 36525.0 // Julian centuries since J2000.0
	omega := (125.04452 - 1934.136261*t) * pi / 180
	l := (280.4665 + 36000.7698*t) * pi / 180
	lp := (218.3165 + 481267.8813*t) * pi / 180

	dpsi = (-17.20*math.Sin(omega) - 1.32*math.Sin(2*l) - 0.23*math.Sin(2*lp) + 0.21*math.Sin(2*omega)) / 3600 * pi / 180
	deps = (9.20*math.Cos(omega) + 0.57*math.Cos(2*l) + 0.10*math.Cos(2*lp) - 0.09*math.Cos(2*omega)) / 3600 * pi / 180
	return dpsi, deps
}

// gmstRadians returns Greenwich Mean Sidereal Time (radians) at the given
// Modified Julian Date using the IAU 1982 polynomial.
func gmstRadians(mjd float64) float64 {
	jd := mjd + 2400000.5
	t := (jd - 2451545.0) / 36525.0
	secs := 67310.54841 +
		(876600.0*3600+8640184.812866)*t +
		0.093104*t*t -
		6.2e-6*t*t*t
	// seconds of sidereal time in a sidereal day of 86400 seconds
	secs = math.Mod(secs, 86400)
	if secs < 0 {
		secs += 86400
	}
	return secs / 86400 * twoPi
}

// earthBarycentricVelocity is a low-order approximation of the Earth's
// barycentric velocity (AU/day) from its mean orbital elements, evaluated
// once per session at mid-time.
func earthBarycentricVelocity(mjd float64) [3]float64 {
	t := (mjd - 51544.5) / 36525.0
	meanLongitude := (280.46646 + 36000.76983*t) * pi / 180
	meanAnomaly := (357.52911 + 35999.05029*t) * pi / 180
	ecc := 0.016708634 - 0.000042037*t

	// mean motion, radians/day
	n := twoPi / 365.25636

	vx := -n * math.Sin(meanLongitude) * (1 + ecc*math.Cos(meanAnomaly))
	vy := n * math.Cos(meanLongitude) * (1 + ecc*math.Cos(meanAnomaly))
	vz := 0.0
	return [3]float64{vx, vy, vz}
}

// sunRaDec is a low-order approximation of the Sun's geocentric apparent
// right ascension and declination (radians) at the given Modified Julian
// Date, evaluated once per session at mid-time.
func sunRaDec(mjd float64) (ra, dec float64) {
	t := (mjd - 51544.5) / 36525.0
	l0 := (280.46646 + 36000.76983*t) * pi / 180
	m := (357.52911 + 35999.05029*t) * pi / 180

	c := (1.914602-0.004817*t)*math.Sin(m) + (0.019993-0.000101*t)*math.Sin(2*m) + 0.000289*math.Sin(3*m)
	trueLong := l0 + c*pi/180
	obliquity := (23.439291 - 0.0130042*t) * pi / 180

	ra = math.Atan2(math.Cos(obliquity)*math.Sin(trueLong), math.Cos(trueLong))
	dec = math.Asin(math.Sin(obliquity) * math.Sin(trueLong))
	return wrap2pi(ra), dec
}
