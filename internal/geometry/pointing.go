package geometry

// Pointing is a (station, source, time, az, el, ha, dc) pointing vector.
// Az may lie outside [0, 2pi) to encode a cable-wrap unwrap.
type Pointing struct {
	StationID    string
	SourceID     string
	TimeSec      uint64
	Az           float64
	El           float64
	HourAngle    float64
	Declination  float64
}
