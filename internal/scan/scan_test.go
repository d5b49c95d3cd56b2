package scan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/policy"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
)

func deg(d float64) float64 { return d * math.Pi / 180 }

func newTestNetworkTwoStations() *network.Network {
	cw := geometry.NewCableWrap(deg(-90), deg(450), deg(5), deg(90))
	mask := geometry.HorizonMask{Kind: geometry.MaskNone}
	ant := geometry.Antenna{
		Kind:  geometry.AxisAzEl,
		Axis1: geometry.Axis{RateRadPerSec: deg(2), OverheadSec: 6},
		Axis2: geometry.Axis{RateRadPerSec: deg(1), OverheadSec: 2},
	}
	equip := station.Equipment{Bands: map[string]station.BandSEFD{
		"X": {Constant: 500},
	}}
	wait := station.WaitTimes{FieldSystemSec: 5, PreobSec: 5}

	sevents := []policy.Event[station.Params]{
		{TimeSec: 0, Params: station.Params{Available: true, MinElevationRad: deg(5), MinScanSec: 30, MaxScanSec: 300, MinSNR: map[string]float64{"X": 15}}},
	}
	s1 := station.New("A", "Station A", station.Position{LatRad: deg(40), LonRad: deg(10)}, ant, cw, mask, equip, wait, sevents)
	s1.Current = geometry.Pointing{Az: deg(100), El: deg(30), TimeSec: 0}
	s2 := station.New("B", "Station B", station.Position{LatRad: deg(41), LonRad: deg(11)}, ant, cw, mask, equip, wait, sevents)
	s2.Current = geometry.Pointing{Az: deg(100), El: deg(30), TimeSec: 0}

	bevents := []policy.Event[baseline.Params]{{TimeSec: 0, Params: baseline.Params{Weight: 1, MinSNR: map[string]float64{"X": 10}}}}
	bl := baseline.New(baseline.Key("A", "B"), "A", "B", bevents)

	inf := network.Influence{MaxDistRad: deg(20), MaxTimeSec: 3600, DistKind: network.InfluenceLinear, TimeKind: network.InfluenceLinear}
	mode := network.ObservationMode{SampleRateHz: 32e6, Bits: 2, NChannels: map[string]int{"X": 8}}
	return network.New(map[string]*station.Station{"A": s1, "B": s2}, map[string]*baseline.Baseline{bl.ID: bl}, inf, mode)
}

func newTestSourceOverhead() *source.Source {
	events := []policy.Event[source.Params]{
		{TimeSec: 0, Params: source.Params{Available: true, MinNumberOfStations: 2, MinScanSec: 30, MaxScanSec: 300}},
	}
	bands := map[string]source.BandFlux{
		"X": {Kind: source.FluxTypeB, WavelengthM: 0.1, TypeB: source.FluxKnotsB{KnotsM: []float64{0, 1e7}, ValuesJy: []float64{2.0, 2.0}}},
	}
	return source.New("SRC1", "Source One", deg(15), deg(41), bands, events)
}

func TestVisibleScanIncludesAvailableStations(t *testing.T) {
	net := newTestNetworkTwoStations()
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	assert.Len(t, s.Stations, 2)
}

func TestVisibleScanExcludesIgnoredSource(t *testing.T) {
	net := newTestNetworkTwoStations()
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, map[string]bool{"SRC1": true})
	assert.Empty(t, s.Stations)
}

func TestCalcStartTimesFillsMonotonicTimes(t *testing.T) {
	net := newTestNetworkTwoStations()
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	s.CalcStartTimes(net)

	for _, id := range s.Stations {
		tt := s.Times[id]
		assert.LessOrEqual(t, tt.EndOfPreviousScan, tt.EndOfFieldSystem)
		assert.LessOrEqual(t, tt.EndOfFieldSystem, tt.EndOfSlew)
		assert.LessOrEqual(t, tt.EndOfSlew, tt.EndOfIdle)
		assert.LessOrEqual(t, tt.EndOfIdle, tt.EndOfPreob)
	}
}

func TestCalcAllScanDurationsAlignsStart(t *testing.T) {
	net := newTestNetworkTwoStations()
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	s.CalcStartTimes(net)
	require.Len(t, s.Stations, 2)

	ok := s.CalcAllScanDurations(net, src, AnchorStart, 0)
	require.True(t, ok)

	var commonPreob uint64
	for i, id := range s.Stations {
		tt := s.Times[id]
		if i == 0 {
			commonPreob = tt.EndOfPreob
		}
		assert.Equal(t, commonPreob, tt.EndOfPreob)
		assert.Greater(t, tt.EndOfObserving, tt.EndOfPreob)
	}
	assert.NotEmpty(t, s.Observations)
}

func TestRequiredDurationScalesWithSnrSquared(t *testing.T) {
	// a weak source keeps both durations well above the 1 s rounding step
	tau1, ok1 := requiredDurationSec(10, 0.1, 500, 500, 32e6, 8, 2)
	tau2, ok2 := requiredDurationSec(20, 0.1, 500, 500, 32e6, 8, 2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.InDelta(t, 4*(tau1-midobMarginSec), tau2-midobMarginSec, 1.0)
}

func TestSplitBaselineKey(t *testing.T) {
	a, b := splitBaselineKey("A-B")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestUpdateSlewtimePropagatesDelta(t *testing.T) {
	s := newScan("SRC1", TypeStandard)
	s.Stations = []string{"A"}
	s.Times["A"] = &StationTimes{EndOfFieldSystem: 10, EndOfSlew: 20, EndOfIdle: 20, EndOfPreob: 25, EndOfObserving: 85}

	s.UpdateSlewtime("A", 30)
	tt := s.Times["A"]
	assert.Equal(t, uint64(30), tt.EndOfSlew)
	assert.Equal(t, uint64(30), tt.EndOfIdle)
	assert.Equal(t, uint64(35), tt.EndOfPreob)
	assert.Equal(t, uint64(95), tt.EndOfObserving)
}

func TestCalcStartTimesDropsStationOverSlewPolicy(t *testing.T) {
	net := newTestNetworkTwoStations()
	net.Stations["A"].ApplyOverlay(func(p station.Params) station.Params {
		p.MaxSlewTimeSec = 1
		return p
	})
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	require.Len(t, s.Stations, 2)

	s.CalcStartTimes(net)
	assert.NotContains(t, s.Stations, "A")
	assert.ErrorIs(t, s.Dropped["A"], ErrSlewPolicy)
	assert.Contains(t, s.Stations, "B")
}

func TestCalcStartTimesFirstScanSkipsOverheads(t *testing.T) {
	net := newTestNetworkTwoStations()
	net.Stations["A"].ApplyOverlay(func(p station.Params) station.Params {
		p.FirstScan = true
		return p
	})
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	s.CalcStartTimes(net)

	require.Contains(t, s.Stations, "A")
	tt := s.Times["A"]
	assert.Equal(t, uint64(0), tt.EndOfSlew)
	assert.Equal(t, uint64(0), tt.EndOfPreob)
}

func TestFixedScanDurationOverridesDerivedDuration(t *testing.T) {
	net := newTestNetworkTwoStations()
	events := []policy.Event[source.Params]{
		{TimeSec: 0, Params: source.Params{Available: true, MinNumberOfStations: 2, FixedScanDurationSec: 120}},
	}
	bands := map[string]source.BandFlux{
		"X": {Kind: source.FluxTypeB, WavelengthM: 0.1, TypeB: source.FluxKnotsB{KnotsM: []float64{0, 1e7}, ValuesJy: []float64{2.0, 2.0}}},
	}
	src := source.New("SRC2", "Source Two", deg(15), deg(41), bands, events)

	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	s.CalcStartTimes(net)
	require.True(t, s.CalcAllScanDurations(net, src, AnchorStart, 0))

	require.NotEmpty(t, s.Observations)
	for _, obs := range s.Observations {
		assert.InDelta(t, 120.0, obs.DurationSec, 1e-9)
	}
	for _, id := range s.Stations {
		assert.InDelta(t, 120.0, s.Times[id].ObservingSec(), 1e-9)
	}
}

func TestPruneOverlongWaitsDropsIdleStation(t *testing.T) {
	net := newTestNetworkTwoStations()
	net.Stations["A"].ApplyOverlay(func(p station.Params) station.Params {
		p.MaxWaitSec = 10
		return p
	})
	// B starts far from the source, so A would idle past its max wait
	// while B is still slewing
	net.Stations["B"].Current = geometry.Pointing{Az: deg(100), El: deg(5)}
	src := newTestSourceOverhead()
	s := VisibleScan(0, TypeStandard, 0, net, src, nil)
	s.CalcStartTimes(net)
	require.Len(t, s.Stations, 2)

	ok := s.CalcAllScanDurations(net, src, AnchorStart, 0)
	assert.False(t, ok) // dropping A leaves fewer than the required two stations
	assert.ErrorIs(t, s.Dropped["A"], ErrWaitTooLong)
}

func TestSubtractPreobTimeFromStartTimeDetectsInconsistency(t *testing.T) {
	s := newScan("SRC1", TypeStandard)
	s.Stations = []string{"A"}
	s.Times["A"] = &StationTimes{EndOfSlew: 20, EndOfIdle: 20, EndOfPreob: 25}

	assert.True(t, s.SubtractPreobTimeFromStartTime(3))
	assert.False(t, s.SubtractPreobTimeFromStartTime(100))
}
