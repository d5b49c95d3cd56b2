package catalog

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/policy"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
)

var errDuplicateTwoLetterCode = errors.New("catalog: duplicate two-letter station code")

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// Files bundles the per-catalog readers a Load call consumes. Any reader
// may be nil; the corresponding entities are simply absent. Bands names
// the observing mode's bands: each loaded source gets its flat flux
// value registered on every one of them.
type Files struct {
	Antenna  io.Reader // id twoLetter oneLetter axis1RateDegPerMin axis2RateDegPerMin offsetM diameterM
	Position io.Reader // id x y z
	Source   io.Reader // id ra(deg) dec(deg) fluxJy [minFluxJy]
	Equip    io.Reader // id band sefdConstant

	Bands []string
}

// LoadError records one skipped catalog entry and why: malformed input
// skips the offending entity and is reported, never failing the load.
type LoadError struct {
	File string
	Line []string
	Err  error
}

// Load parses every supplied catalog file into a Catalog, skipping (and
// reporting) malformed entries rather than failing the whole load.
func Load(files Files) (*Catalog, []LoadError) {
	c := newCatalog()
	var errs []LoadError

	positions := make(map[string][3]float64)
	if files.Position != nil {
		for _, f := range lines(files.Position) {
			if len(f) < 4 {
				errs = append(errs, LoadError{File: "position.cat", Line: f})
				continue
			}
			positions[f[0]] = [3]float64{parseFloat(f[1]), parseFloat(f[2]), parseFloat(f[3])}
		}
	}

	equip := make(map[string]station.Equipment)
	if files.Equip != nil {
		for _, f := range lines(files.Equip) {
			if len(f) < 3 {
				errs = append(errs, LoadError{File: "equip.cat", Line: f})
				continue
			}
			eq := equip[f[0]]
			if eq.Bands == nil {
				eq.Bands = make(map[string]station.BandSEFD)
			}
			eq.Bands[f[1]] = station.BandSEFD{Constant: parseFloat(f[2])}
			equip[f[0]] = eq
		}
	}

	usedTwoLetter := make(map[string]bool)
	if files.Antenna != nil {
		for _, f := range lines(files.Antenna) {
			if len(f) < 7 {
				errs = append(errs, LoadError{File: "antenna.cat", Line: f})
				continue
			}
			id, twoLetter := f[0], f[1]
			if usedTwoLetter[twoLetter] {
				errs = append(errs, LoadError{File: "antenna.cat", Line: f, Err: errDuplicateTwoLetterCode})
				continue
			}
			usedTwoLetter[twoLetter] = true
			oneLetter := c.nextFreeOneLetterCode(f[2])

			rate1 := parseFloat(f[3]) * degPerMinToRadPerSec
			rate2 := parseFloat(f[4]) * degPerMinToRadPerSec
			ant := geometry.Antenna{
				Kind:    geometry.AxisAzEl,
				Axis1:   geometry.Axis{RateRadPerSec: rate1, OverheadSec: 6},
				Axis2:   geometry.Axis{RateRadPerSec: rate2, OverheadSec: 2},
				OffsetM: parseFloat(f[5]),
				DiameterM: parseFloat(f[6]),
			}
			pos := positions[id]
			eq := equip[id]

			events := []policy.Event[station.Params]{
				{TimeSec: 0, Params: station.Params{Available: true, MinElevationRad: degToRad(5), MinScanSec: 30, MaxScanSec: 600}},
			}
			cw := geometry.NewCableWrap(degToRad(-90), degToRad(450), degToRad(0), degToRad(90))
			lat, lon := geocentricLatLon(pos[0], pos[1], pos[2])
			st := station.New(id, id, station.Position{X: pos[0], Y: pos[1], Z: pos[2], LatRad: lat, LonRad: lon}, ant, cw, geometry.HorizonMask{Kind: geometry.MaskNone}, eq, station.WaitTimes{FieldSystemSec: 5, PreobSec: 5}, events)
			st.TwoLetterCode = twoLetter
			st.OneLetterCode = oneLetter
			c.stations[id] = st
		}
	}

	if files.Source != nil {
		for _, f := range lines(files.Source) {
			if len(f) < 4 {
				errs = append(errs, LoadError{File: "source.cat", Line: f})
				continue
			}
			ra := degToRad(parseFloat(f[1]))
			dec := degToRad(parseFloat(f[2]))
			flux := parseFloat(f[3])
			var minFlux float64
			if len(f) > 4 {
				minFlux = parseFloat(f[4])
			}
			bands := make(map[string]source.BandFlux, len(files.Bands))
			for _, band := range files.Bands {
				bands[band] = source.BandFlux{
					Kind:  source.FluxTypeB,
					TypeB: source.FluxKnotsB{KnotsM: []float64{0}, ValuesJy: []float64{flux}},
				}
			}
			events := []policy.Event[source.Params]{
				{TimeSec: 0, Params: source.Params{Available: true, MinNumberOfStations: 2, MinScanSec: 30, MaxScanSec: 600, MinFluxJy: minFlux}},
			}
			c.sources[f[0]] = source.New(f[0], f[0], ra, dec, bands, events)
		}
	}

	return c, errs
}

// geocentricLatLon derives the geocentric latitude and longitude of a
// station from its ECEF position.
func geocentricLatLon(x, y, z float64) (lat, lon float64) {
	lon = math.Atan2(y, x)
	lat = math.Atan2(z, math.Hypot(x, y))
	return lat, lon
}

const degPerMinToRadPerSec = 0.017453292519943295 / 60.0
