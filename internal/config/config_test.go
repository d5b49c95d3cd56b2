package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/catalog"
	"github.com/busoc-assist/vlbisched/internal/geometry"
	"github.com/busoc-assist/vlbisched/internal/policy"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDecodesDocument(t *testing.T) {
	path := writeTemp(t, "session.toml", `
[general]
start = 2026-01-01T00:00:00Z
end = 2026-01-01T06:00:00Z
anchor = "start"
fill-in = true
workers = 4
seed = 7

[skycoverage]
max-dist = 20
max-time = 3600
dist-kind = "linear"
time-kind = "cosine"

[stations.NY]
weight = 2.0
min-elevation = 8
`)
	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.General.Workers)
	assert.True(t, doc.General.FillIn)
	assert.InDelta(t, 20.0, doc.SkyCoverage.MaxDistDeg, 1e-9)
	require.Contains(t, doc.Stations, "NY")
	require.NotNil(t, doc.Stations["NY"].Weight)
	assert.InDelta(t, 2.0, *doc.Stations["NY"].Weight, 1e-9)
}

func TestBuildOverlaysStationParams(t *testing.T) {
	w := 3.5
	minEl := 12.0
	p := Params{Weight: &w, MinElevationDeg: &minEl}

	events := []policy.Event[station.Params]{{TimeSec: 0, Params: station.Params{Available: true, Weight: 1}}}
	ant := geometry.Antenna{Kind: geometry.AxisAzEl}
	st := station.New("NY", "NY", station.Position{}, ant, nil, geometry.HorizonMask{Kind: geometry.MaskNone}, station.Equipment{}, station.WaitTimes{}, events)

	st.ApplyOverlay(func(base station.Params) station.Params {
		return overlayStationParams(base, p)
	})

	got := st.Params()
	assert.InDelta(t, 3.5, got.Weight, 1e-9)
	assert.InDelta(t, degToRad(minEl), got.MinElevationRad, 1e-9)
}

func TestOverlaySourceParamsAppliesMinFlux(t *testing.T) {
	minFlux := 1.5
	p := overlaySourceParams(source.Params{MinFluxJy: 5}, Params{MinFluxJy: &minFlux})
	assert.InDelta(t, 1.5, p.MinFluxJy, 1e-9)
}

func TestOverlayBaselineParamsAppliesIgnore(t *testing.T) {
	ignore := true
	p := overlayBaselineParams(baseline.Params{Ignore: false}, Params{Ignore: &ignore})
	assert.True(t, p.Ignore)
}

func TestBuildPopulatesHighImpactSequenceCalibratorAndMode(t *testing.T) {
	path := writeTemp(t, "session.toml", `
[general]
start = 2026-01-01T00:00:00Z
end = 2026-01-01T06:00:00Z
max-combinations = 10

[mode]
sample-rate = 32000000
bits = 2
[mode.channels]
X = 8

[[highimpact]]
az = 90
el = 45
margin = 10
stations = ["NY"]

[sequence]
modulus = 5

[[sequence.block]]
residue = 0
source-ids = ["CAL1"]

[calibrator]
cadence-scans = 3
cadence-sec = 1800
source-ids = ["CAL1", "CAL2"]
max-scans = 6
low-elevation-start = 10
low-elevation-full = 30
high-elevation-start = 60
high-elevation-full = 80
`)
	doc, err := Load(path)
	require.NoError(t, err)

	cat, _ := catalog.Load(catalog.Files{})
	net, _, reg, opts, buildErr := doc.Build(cat)
	require.NoError(t, buildErr)

	require.NotNil(t, net)
	assert.InDelta(t, 32e6, net.Mode.SampleRateHz, 1e-9)
	assert.Equal(t, 2, net.Mode.Bits)
	assert.Equal(t, 8, net.Mode.NChannels["X"])

	require.Len(t, opts.HighImpact, 1)
	assert.InDelta(t, degToRad(90), opts.HighImpact[0].AzRad, 1e-9)
	assert.Equal(t, []string{"NY"}, opts.HighImpact[0].StationIDs)

	require.NotNil(t, reg.Sequence)
	assert.Equal(t, 5, reg.Sequence.Modulus)
	assert.True(t, reg.Sequence.Restrict[0]["CAL1"])

	require.NotNil(t, reg.Calibrator)
	assert.Equal(t, 3, reg.Calibrator.CadenceScans)
	assert.InDelta(t, 1800, reg.Calibrator.CadenceSec, 1e-9)
	assert.True(t, reg.Calibrator.AllowedSourceIDs["CAL2"])
	assert.Equal(t, 6, reg.Calibrator.MaxScans)
}

func TestAnchorKindMapsNames(t *testing.T) {
	assert.Equal(t, scan.AnchorStart, anchorKind(""))
	assert.Equal(t, scan.AnchorEnd, anchorKind("end"))
	assert.Equal(t, scan.AnchorIndividual, anchorKind("individual"))
}
