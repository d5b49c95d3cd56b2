package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/busoc-assist/vlbisched/internal/policy"
)

func newTestSource(bands map[string]BandFlux) *Source {
	events := []policy.Event[Params]{
		{TimeSec: 0, Params: Params{Available: true, MinElevationRad: 0}},
	}
	return New("S1", "Source One", 1.0, 0.5, bands, events)
}

func TestFluxKnotsBInterpolatesAndClamps(t *testing.T) {
	f := FluxKnotsB{KnotsM: []float64{0, 1000, 2000}, ValuesJy: []float64{2.0, 1.0, 0.2}}

	assert.InDelta(t, 2.0, f.at(-100), 1e-9)
	assert.InDelta(t, 0.2, f.at(5000), 1e-9)
	assert.InDelta(t, 1.5, f.at(500), 1e-9)
	assert.InDelta(t, 2.0, f.maximum(), 1e-9)
}

func TestFluxComponentsMResponseDecaysWithBaseline(t *testing.T) {
	m := FluxComponentsM{
		FluxJy:           []float64{1.0},
		MajorAxisRad:     []float64{1e-8},
		AxialRatio:       []float64{1.0},
		PositionAngleRad: []float64{0},
	}
	assert.InDelta(t, 1.0, m.response(0, 0), 1e-9)
	assert.Less(t, m.response(1e6, 0), 1.0)
	assert.InDelta(t, 1.0, m.maximum(), 1e-9)
}

func TestGetMaximumFluxDispatchesByKind(t *testing.T) {
	s := newTestSource(map[string]BandFlux{
		"X": {Kind: FluxTypeB, TypeB: FluxKnotsB{KnotsM: []float64{0}, ValuesJy: []float64{3.5}}},
		"S": {Kind: FluxTypeM, TypeM: FluxComponentsM{FluxJy: []float64{1.2, 0.8}}},
	})
	assert.InDelta(t, 3.5, s.GetMaximumFlux("X"), 1e-9)
	assert.InDelta(t, 2.0, s.GetMaximumFlux("S"), 1e-9)
	assert.Equal(t, 0.0, s.GetMaximumFlux("missing"))
}

func TestObservedFluxZeroBaselineTypeB(t *testing.T) {
	s := newTestSource(map[string]BandFlux{
		"X": {Kind: FluxTypeB, WavelengthM: 0.1, TypeB: FluxKnotsB{KnotsM: []float64{0, 1000}, ValuesJy: []float64{4.0, 1.0}}},
	})
	flux := s.ObservedFlux("X", 0, 0, 0, 0)
	assert.InDelta(t, 4.0, flux, 1e-9)
}

func TestProjectedBaselineLength(t *testing.T) {
	// a y baseline is perpendicular to a source at ha 0, dec 0
	_, _, length := ProjectedBaseline(0, 1000, 0, 0, 0, 0)
	assert.Greater(t, length, 0.0)
}

func TestCanObserveMoreScansRespectsLimit(t *testing.T) {
	events := []policy.Event[Params]{
		{TimeSec: 0, Params: Params{Available: true, MaxNumberOfScans: 2}},
	}
	s := New("S2", "Source Two", 0, 0, nil, events)
	s.Stats.TotalScans = 1
	assert.True(t, s.CanObserveMoreScans())
	s.Stats.TotalScans = 2
	assert.False(t, s.CanObserveMoreScans())
}

func TestCanObserveMoreScansUnlimitedWhenZero(t *testing.T) {
	events := []policy.Event[Params]{{TimeSec: 0, Params: Params{Available: true}}}
	s := New("S3", "Source Three", 0, 0, nil, events)
	s.Stats.TotalScans = 1000
	assert.True(t, s.CanObserveMoreScans())
}

func TestResponsePeaksAtZeroSpacing(t *testing.T) {
	m := FluxComponentsM{
		FluxJy:           []float64{2.0},
		MajorAxisRad:     []float64{1e-7},
		AxialRatio:       []float64{0.5},
		PositionAngleRad: []float64{math.Pi / 4},
	}
	peak := m.response(0, 0)
	off := m.response(1e5, 1e5)
	assert.InDelta(t, 2.0, peak, 1e-9)
	assert.Less(t, off, peak)
}
