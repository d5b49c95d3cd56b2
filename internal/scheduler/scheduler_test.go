package scheduler

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busoc-assist/vlbisched/internal/astro"
	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/policy"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
	"github.com/busoc-assist/vlbisched/internal/subcon"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

func deg(d float64) float64 { return d * math.Pi / 180 }

func testAntenna() geometry.Antenna {
	return geometry.Antenna{
		Kind:  geometry.AxisAzEl,
		Axis1: geometry.Axis{RateRadPerSec: deg(4), OverheadSec: 2},
		Axis2: geometry.Axis{RateRadPerSec: deg(2), OverheadSec: 1},
	}
}

func testStation(id string, lat, lon float64) *station.Station {
	cw := geometry.NewCableWrap(deg(-90), deg(450), deg(5), deg(90))
	equip := station.Equipment{Bands: map[string]station.BandSEFD{
		"X": {Constant: 400},
	}}
	wait := station.WaitTimes{FieldSystemSec: 3, PreobSec: 3}
	events := []policy.Event[station.Params]{
		{TimeSec: 0, Params: station.Params{Available: true, MinElevationRad: deg(5), MinScanSec: 30, MaxScanSec: 300, Weight: 1, MinSNR: map[string]float64{"X": 15}}},
	}
	s := station.New(id, id, station.Position{LatRad: lat, LonRad: lon}, testAntenna(), cw, geometry.HorizonMask{Kind: geometry.MaskNone}, equip, wait, events)
	s.Current = geometry.Pointing{Az: deg(0), El: deg(45)}
	return s
}

// trackableRA returns a right ascension that culminates over the test
// stations (longitude ~10 degrees east) at session start, so the source
// stays high and reachable for the whole hour.
func trackableRA(t *testing.T, sess *astro.Session) float64 {
	t.Helper()
	g0, err := sess.GMSTAt(0)
	require.NoError(t, err)
	return g0 + deg(10)
}

func testNetwork() *network.Network {
	s1 := testStation("A", deg(40), deg(10))
	s2 := testStation("B", deg(41), deg(11))
	bevents := []policy.Event[baseline.Params]{{TimeSec: 0, Params: baseline.Params{Weight: 1, MinSNR: map[string]float64{"X": 10}}}}
	bl := baseline.New(baseline.Key("A", "B"), "A", "B", bevents)
	inf := network.Influence{MaxDistRad: deg(20), MaxTimeSec: 3600, DistKind: network.InfluenceLinear, TimeKind: network.InfluenceLinear}
	mode := network.ObservationMode{SampleRateHz: 32e6, Bits: 2, NChannels: map[string]int{"X": 8}}
	return network.New(map[string]*station.Station{"A": s1, "B": s2}, map[string]*baseline.Baseline{bl.ID: bl}, inf, mode)
}

func testSource(id string, ra, dec float64) *source.Source {
	events := []policy.Event[source.Params]{
		{TimeSec: 0, Params: source.Params{Available: true, MinNumberOfStations: 2, MinScanSec: 30, MaxScanSec: 300, Weight: 1}},
	}
	bands := map[string]source.BandFlux{
		"X": {Kind: source.FluxTypeB, WavelengthM: 0.1, TypeB: source.FluxKnotsB{KnotsM: []float64{0, 1e7}, ValuesJy: []float64{3.0, 3.0}}},
	}
	return source.New(id, id, ra, dec, bands, events)
}

func testRegistry() *weight.Registry {
	return weight.New(weight.Factors{
		Duration: 1, NumberOfObservations: 1, SkyCoverage: 1,
		AverageSources: 1, AverageStations: 1, AverageBaselines: 1, Idle: 1,
		LowElevationStartRad: deg(5), LowElevationFullRad: deg(30), LowElevationWeight: 1,
		DeclinationStartRad: -math.Pi / 2, DeclinationFullRad: math.Pi / 2, DeclinationWeight: 1,
	})
}

func TestRunProducesCommittedScansForOverheadSource(t *testing.T) {
	net := testNetwork()
	reg := testRegistry()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	sess, err := astro.NewSession(start, end)
	require.NoError(t, err)
	sources := map[string]*source.Source{"S1": testSource("S1", trackableRA(t, sess), deg(60))}

	opts := Options{
		SessionStartSec: 0,
		SessionEndSec:   3600,
		Anchor:          scan.AnchorStart,
		FillInEnabled:   false,
		Subnetting:      subcon.SubnettingOptions{},
		Optimization:    OptimizationConditions{MaxNumberOfIterations: 0},
	}
	sched := New(net, sources, sess, reg, opts)
	err = sched.Run()
	require.NoError(t, err)

	assert.NotEmpty(t, sched.Scans)
	for _, sc := range sched.Scans {
		assert.GreaterOrEqual(t, len(sc.Stations), 2)
		assert.NotEmpty(t, sc.Observations)
	}
}

func TestImpactScoreClampedToUnitInterval(t *testing.T) {
	d := HighImpactDescriptor{AzRad: 0, ElRad: deg(45), MarginRad: deg(10)}
	pv := geometry.Pointing{Az: 0, El: deg(45)}
	assert.InDelta(t, 1.0, impactScore(pv, d), 1e-6)

	far := geometry.Pointing{Az: deg(90), El: deg(45)}
	assert.Equal(t, 0.0, impactScore(far, d))
}

func TestOptimizationRestartPrunesFailingSourceAndIncrementsIterations(t *testing.T) {
	net := testNetwork()
	reg := testRegistry()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	sess, err := astro.NewSession(start, end)
	require.NoError(t, err)
	sources := map[string]*source.Source{
		"S1": testSource("S1", trackableRA(t, sess), deg(60)),
		"S2": testSource("S2", deg(15), deg(-89)), // never rises above the horizon at these latitudes
	}

	opts := Options{
		SessionStartSec: 0,
		SessionEndSec:   3600,
		Anchor:          scan.AnchorStart,
		Subnetting:      subcon.SubnettingOptions{},
		Optimization: OptimizationConditions{
			MinNumScansPerSource:       1,
			RequireBoth:                false,
			MinNumberOfSourcesToReduce: 1,
			MaxNumberOfIterations:      3,
		},
	}
	sched := New(net, sources, sess, reg, opts)
	require.NoError(t, sched.Run())

	assert.Equal(t, 1, sched.Iterations)
	assert.True(t, sources["S2"].IsForcedUnavailable())
	assert.False(t, sources["S1"].IsForcedUnavailable())
	require.NotEmpty(t, sched.Scans)
	for _, sc := range sched.Scans {
		assert.Equal(t, "S1", sc.SourceID)
	}
}

func TestOptimizationZeroMaxIterationsStopsBeforeAnyRestart(t *testing.T) {
	net := testNetwork()
	reg := testRegistry()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	sess, err := astro.NewSession(start, end)
	require.NoError(t, err)
	sources := map[string]*source.Source{
		"S1": testSource("S1", trackableRA(t, sess), deg(60)),
		"S2": testSource("S2", deg(15), deg(-89)),
	}

	opts := Options{
		SessionStartSec: 0,
		SessionEndSec:   3600,
		Anchor:          scan.AnchorStart,
		Optimization: OptimizationConditions{
			MinNumScansPerSource:       1,
			MinNumberOfSourcesToReduce: 1,
			MaxNumberOfIterations:      0,
		},
	}
	sched := New(net, sources, sess, reg, opts)
	err = sched.Run()
	require.ErrorIs(t, err, ErrIterationBudgetExceeded)
	assert.False(t, sources["S2"].IsForcedUnavailable())
}

func TestTagalongStationJoinsScansAfterTransition(t *testing.T) {
	net := testNetwork()
	reg := testRegistry()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	sess, err := astro.NewSession(start, end)
	require.NoError(t, err)

	cw := geometry.NewCableWrap(deg(-90), deg(450), deg(5), deg(90))
	equip := station.Equipment{Bands: map[string]station.BandSEFD{"X": {Constant: 400}}}
	wait := station.WaitTimes{FieldSystemSec: 3, PreobSec: 3}
	base := station.Params{Available: false, MinElevationRad: deg(5), MinScanSec: 30, MaxScanSec: 300, Weight: 1, MinSNR: map[string]float64{"X": 15}}
	tag := base
	tag.Tagalong = true
	events := []policy.Event[station.Params]{
		{TimeSec: 0, Params: base},
		{TimeSec: 1800, Params: tag},
	}
	c := station.New("C", "C", station.Position{LatRad: deg(40.5), LonRad: deg(10.5)}, testAntenna(), cw, geometry.HorizonMask{Kind: geometry.MaskNone}, equip, wait, events)
	c.Current = geometry.Pointing{Az: deg(0), El: deg(45)}
	net.Stations["C"] = c

	sources := map[string]*source.Source{"S1": testSource("S1", trackableRA(t, sess), deg(60))}
	opts := Options{
		SessionStartSec: 0,
		SessionEndSec:   3600,
		Anchor:          scan.AnchorStart,
		Optimization:    OptimizationConditions{MaxNumberOfIterations: 0},
	}
	sched := New(net, sources, sess, reg, opts)
	require.NoError(t, sched.Run())
	require.NotEmpty(t, sched.Scans)

	joined := false
	for _, sc := range sched.Scans {
		hasC := false
		for _, id := range sc.Stations {
			if id == "C" {
				hasC = true
			}
		}
		if hasC {
			joined = true
			assert.GreaterOrEqual(t, sc.Times["C"].EndOfPreob, uint64(1800))
		}
	}
	assert.True(t, joined)
}

func TestOptimizationFailingSourcesCombination(t *testing.T) {
	sched := &Scheduler{
		Sources: map[string]*source.Source{"S1": testSource("S1", 0, 0)},
		Opts:    Options{Optimization: OptimizationConditions{MinNumScansPerSource: 2, MinNumObsPerSource: 2, RequireBoth: false}},
	}
	stats := map[string]SourceStats{"S1": {Scans: 1, Observations: 5}}
	failing := sched.optimizationFailingSources(stats)
	assert.Contains(t, failing, "S1") // OR: scans fail even though obs ok

	sched.Opts.Optimization.RequireBoth = true
	failing = sched.optimizationFailingSources(stats)
	assert.Empty(t, failing) // AND: obs ok so combined passes
}
