// Package config decodes the TOML session document and assembles the
// scheduler-core types (network, sources, weight registry, scheduler
// options) from it: a root struct of toml-tagged fields, decoded with
// github.com/midbel/toml, then translated into the domain types.
package config

import (
	"os"
	"time"

	"github.com/midbel/toml"
	"github.com/pkg/errors"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/catalog"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/scheduler"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
	"github.com/busoc-assist/vlbisched/internal/subcon"
	"github.com/busoc-assist/vlbisched/internal/weight"
)

// Params is a pointer-field overlay block: an absent TOML key decodes to
// a nil pointer, so merging onto a catalog-derived default is a plain
// "non-nil wins" record-over-record overlay.
type Params struct {
	Weight              *float64           `toml:"weight"`
	MinScanSec          *float64           `toml:"min-scan"`
	MaxScanSec          *float64           `toml:"max-scan"`
	MinElevationDeg     *float64           `toml:"min-elevation"`
	MinSNR              map[string]float64 `toml:"min-snr"`
	Available           *bool              `toml:"available"`
	Ignore              *bool              `toml:"ignore"`
	Tagalong            *bool              `toml:"tagalong"`
	FirstScan           *bool              `toml:"first-scan"`
	MinNumberOfStations *int               `toml:"min-stations"`
	MaxNumberOfScans    *int               `toml:"max-scans"`
	MinFluxJy           *float64           `toml:"min-flux"`

	MaxSlewTimeSec *float64 `toml:"max-slew-time"`
	MaxSlewDistDeg *float64 `toml:"max-slew-distance"`
	MinSlewDistDeg *float64 `toml:"min-slew-distance"`
	MaxWaitSec     *float64 `toml:"max-wait"`

	MinRepeatSec         *float64 `toml:"min-repeat"`
	MinSunDistanceDeg    *float64 `toml:"min-sun-distance"`
	FixedScanDurationSec *float64 `toml:"fixed-scan-duration"`
	RequiredStations     []string `toml:"required-stations"`
	IgnoredStations      []string `toml:"ignored-stations"`
	IgnoredSources       []string `toml:"ignored-sources"`
}

// Catalogs names the catalog files to ingest.
type Catalogs struct {
	Antenna  string `toml:"antenna"`
	Position string `toml:"position"`
	Source   string `toml:"source"`
	Equip    string `toml:"equip"`
}

// General holds the session window and top-level run controls.
type General struct {
	Start           time.Time `toml:"start"`
	End             time.Time `toml:"end"`
	Anchor          string    `toml:"anchor"` // "start", "end", "individual"
	FillIn          bool      `toml:"fill-in"`
	HighImpactSec   uint64    `toml:"high-impact-tick"`
	Workers         int       `toml:"workers"`
	Seed            int64     `toml:"seed"`
	MaxCombinations int       `toml:"max-combinations"`
}

// Mode mirrors network.ObservationMode: sample rate and bit depth are
// process-wide, channel count is per band.
type Mode struct {
	SampleRateHz float64        `toml:"sample-rate"`
	Bits         int            `toml:"bits"`
	NChannels    map[string]int `toml:"channels"`
}

// HighImpact mirrors scheduler.HighImpactDescriptor: one (az, el, margin,
// station subset) pre-fix target.
type HighImpact struct {
	AzDeg     float64  `toml:"az"`
	ElDeg     float64  `toml:"el"`
	MarginDeg float64  `toml:"margin"`
	Stations  []string `toml:"stations"`
}

// Sequence mirrors weight.ScanSequence: the scan-sequence rule's modulus
// and a map from counter residue to preferred source set.
type Sequence struct {
	Modulus int             `toml:"modulus"`
	Blocks  []SequenceBlock `toml:"block"`
}

// SequenceBlock restricts one residue of the sequence counter to a set of
// preferred sources.
type SequenceBlock struct {
	Residue   int      `toml:"residue"`
	SourceIDs []string `toml:"source-ids"`
}

// Calibrator mirrors weight.CalibratorDescriptor.
type Calibrator struct {
	CadenceScans          int      `toml:"cadence-scans"`
	CadenceSec            float64  `toml:"cadence-sec"`
	SourceIDs             []string `toml:"source-ids"`
	MaxScans              int      `toml:"max-scans"`
	LowElevationStartDeg  float64  `toml:"low-elevation-start"`
	LowElevationFullDeg   float64  `toml:"low-elevation-full"`
	HighElevationStartDeg float64  `toml:"high-elevation-start"`
	HighElevationFullDeg  float64  `toml:"high-elevation-full"`
}

// SkyCoverage configures the network-wide sky-coverage influence model.
type SkyCoverage struct {
	MaxDistDeg float64 `toml:"max-dist"`
	MaxTimeSec float64 `toml:"max-time"`
	DistKind   string  `toml:"dist-kind"`
	TimeKind   string  `toml:"time-kind"`
}

// Weights mirrors weight.Factors in TOML form.
type Weights struct {
	SkyCoverage          float64 `toml:"sky-coverage"`
	NumberOfObservations float64 `toml:"number-of-observations"`
	Duration             float64 `toml:"duration"`
	AverageSources       float64 `toml:"average-sources"`
	AverageStations      float64 `toml:"average-stations"`
	AverageBaselines     float64 `toml:"average-baselines"`
	Idle                 float64 `toml:"idle"`

	DeclinationStartDeg float64 `toml:"declination-start"`
	DeclinationFullDeg  float64 `toml:"declination-full"`
	DeclinationWeight   float64 `toml:"declination-weight"`

	LowElevationStartDeg float64 `toml:"low-elevation-start"`
	LowElevationFullDeg  float64 `toml:"low-elevation-full"`
	LowElevationWeight   float64 `toml:"low-elevation-weight"`
}

// Subnetting mirrors subcon.SubnettingOptions.
type Subnetting struct {
	Enabled      bool    `toml:"enabled"`
	MinAngleDeg  float64 `toml:"min-angle"`
	MinNStations int     `toml:"min-stations"`
}

// Optimization mirrors scheduler.OptimizationConditions.
type Optimization struct {
	MinNumScansPerSource           int  `toml:"min-scans-per-source"`
	MinNumObsPerSource             int  `toml:"min-obs-per-source"`
	RequireBoth                    bool `toml:"require-both"`
	MinNumberOfSourcesToReduce     int  `toml:"min-sources-to-reduce"`
	MaxNumberOfIterations          int  `toml:"max-iterations"`
	NumberOfGentleSourceReductions int  `toml:"gentle-reductions"`
}

// Sweep mirrors multisched.ParameterSweep.
type Sweep struct {
	Name      string    `toml:"name"`
	Values    []float64 `toml:"values"`
	MemberIDs []string  `toml:"members"`
}

// Document is the root TOML configuration: everything `cmd/vlbisched`
// needs to run one session (or a multi-schedule sweep over it).
type Document struct {
	General      General           `toml:"general"`
	Catalogs     Catalogs          `toml:"catalogs"`
	SkyCoverage  SkyCoverage       `toml:"skycoverage"`
	Weights      Weights           `toml:"weights"`
	Subnetting   Subnetting        `toml:"subnetting"`
	Optimization Optimization      `toml:"optimization"`
	Sweeps       []Sweep           `toml:"multisched"`
	Stations     map[string]Params `toml:"stations"`
	Sources      map[string]Params `toml:"sources"`
	Baselines    map[string]Params `toml:"baselines"`
	Mode         Mode              `toml:"mode"`
	HighImpact   []HighImpact      `toml:"highimpact"`
	Sequence     *Sequence         `toml:"sequence"`
	Calibrator   *Calibrator       `toml:"calibrator"`
}

// Load decodes the TOML document at path.
func Load(path string) (*Document, error) {
	var doc Document
	if err := toml.DecodeFile(path, &doc); err != nil {
		return nil, errors.Wrap(err, "config: invalid configuration file")
	}
	return &doc, nil
}

func degToRad(d float64) float64 { return d * 3.141592653589793 / 180 }

func influenceKind(s string) network.InfluenceKind {
	switch s {
	case "cosine":
		return network.InfluenceCosine
	case "constant":
		return network.InfluenceConstant
	default:
		return network.InfluenceLinear
	}
}

func anchorKind(s string) scan.AlignmentAnchor {
	switch s {
	case "end":
		return scan.AnchorEnd
	case "individual":
		return scan.AnchorIndividual
	default:
		return scan.AnchorStart
	}
}

// overlayStationParams applies a config overlay block onto a station's
// base event (the event it loaded from the catalog, at t=0).
func overlayStationParams(base station.Params, p Params) station.Params {
	if p.Weight != nil {
		base.Weight = *p.Weight
	}
	if p.MinScanSec != nil {
		base.MinScanSec = *p.MinScanSec
	}
	if p.MaxScanSec != nil {
		base.MaxScanSec = *p.MaxScanSec
	}
	if p.MinElevationDeg != nil {
		base.MinElevationRad = degToRad(*p.MinElevationDeg)
	}
	if p.MinSNR != nil {
		base.MinSNR = p.MinSNR
	}
	if p.Available != nil {
		base.Available = *p.Available
	}
	if p.Tagalong != nil {
		base.Tagalong = *p.Tagalong
	}
	if p.FirstScan != nil {
		base.FirstScan = *p.FirstScan
	}
	if p.MaxSlewTimeSec != nil {
		base.MaxSlewTimeSec = *p.MaxSlewTimeSec
	}
	if p.MaxSlewDistDeg != nil {
		base.MaxSlewDistRad = degToRad(*p.MaxSlewDistDeg)
	}
	if p.MinSlewDistDeg != nil {
		base.MinSlewDistRad = degToRad(*p.MinSlewDistDeg)
	}
	if p.MaxWaitSec != nil {
		base.MaxWaitSec = *p.MaxWaitSec
	}
	if p.IgnoredSources != nil {
		base.IgnoredSourceIDs = toSet(p.IgnoredSources)
	}
	return base
}

func overlaySourceParams(base source.Params, p Params) source.Params {
	if p.Weight != nil {
		base.Weight = *p.Weight
	}
	if p.MinScanSec != nil {
		base.MinScanSec = *p.MinScanSec
	}
	if p.MaxScanSec != nil {
		base.MaxScanSec = *p.MaxScanSec
	}
	if p.MinElevationDeg != nil {
		base.MinElevationRad = degToRad(*p.MinElevationDeg)
	}
	if p.MinSNR != nil {
		base.MinSNR = p.MinSNR
	}
	if p.Available != nil {
		base.Available = *p.Available
	}
	if p.MinNumberOfStations != nil {
		base.MinNumberOfStations = *p.MinNumberOfStations
	}
	if p.MaxNumberOfScans != nil {
		base.MaxNumberOfScans = *p.MaxNumberOfScans
	}
	if p.MinFluxJy != nil {
		base.MinFluxJy = *p.MinFluxJy
	}
	if p.MinRepeatSec != nil {
		base.MinRepeatSec = *p.MinRepeatSec
	}
	if p.MinSunDistanceDeg != nil {
		base.MinSunDistanceRad = degToRad(*p.MinSunDistanceDeg)
	}
	if p.FixedScanDurationSec != nil {
		base.FixedScanDurationSec = *p.FixedScanDurationSec
	}
	if p.RequiredStations != nil {
		base.RequiredStationIDs = toSet(p.RequiredStations)
	}
	if p.IgnoredStations != nil {
		base.IgnoredStationIDs = toSet(p.IgnoredStations)
	}
	return base
}

func overlayBaselineParams(base baseline.Params, p Params) baseline.Params {
	if p.Weight != nil {
		base.Weight = *p.Weight
	}
	if p.MinScanSec != nil {
		base.MinScanSec = *p.MinScanSec
	}
	if p.MaxScanSec != nil {
		base.MaxScanSec = *p.MaxScanSec
	}
	if p.MinSNR != nil {
		base.MinSNR = p.MinSNR
	}
	if p.Ignore != nil {
		base.Ignore = *p.Ignore
	}
	return base
}

// Build assembles a Network, source catalog, weight Registry and
// scheduler Options from the decoded document and the ingested catalog.
func (d *Document) Build(cat *catalog.Catalog) (*network.Network, map[string]*source.Source, *weight.Registry, scheduler.Options, error) {
	stations := cat.Stations()
	for id, st := range stations {
		if p, ok := d.Stations[id]; ok {
			st.ApplyOverlay(func(base station.Params) station.Params {
				return overlayStationParams(base, p)
			})
		}
	}

	sources := cat.Sources()
	for id, src := range sources {
		if p, ok := d.Sources[id]; ok {
			src.ApplyOverlay(func(base source.Params) source.Params {
				return overlaySourceParams(base, p)
			})
		}
	}

	baselines := cat.Baselines()
	if baselines == nil {
		baselines = make(map[string]*baseline.Baseline)
	}
	for key, p := range d.Baselines {
		bl, ok := baselines[key]
		if !ok {
			continue
		}
		bl.ApplyOverlay(func(base baseline.Params) baseline.Params {
			return overlayBaselineParams(base, p)
		})
	}

	inf := network.Influence{
		MaxDistRad: degToRad(d.SkyCoverage.MaxDistDeg),
		MaxTimeSec: d.SkyCoverage.MaxTimeSec,
		DistKind:   influenceKind(d.SkyCoverage.DistKind),
		TimeKind:   influenceKind(d.SkyCoverage.TimeKind),
	}
	mode := network.ObservationMode{
		SampleRateHz: d.Mode.SampleRateHz,
		Bits:         d.Mode.Bits,
		NChannels:    d.Mode.NChannels,
	}
	net := network.New(stations, baselines, inf, mode)

	reg := weight.New(weight.Factors{
		SkyCoverage:          d.Weights.SkyCoverage,
		NumberOfObservations: d.Weights.NumberOfObservations,
		Duration:             d.Weights.Duration,
		AverageSources:       d.Weights.AverageSources,
		AverageStations:      d.Weights.AverageStations,
		AverageBaselines:     d.Weights.AverageBaselines,
		Idle:                 d.Weights.Idle,
		DeclinationStartRad:  degToRad(d.Weights.DeclinationStartDeg),
		DeclinationFullRad:   degToRad(d.Weights.DeclinationFullDeg),
		DeclinationWeight:    d.Weights.DeclinationWeight,
		LowElevationStartRad: degToRad(d.Weights.LowElevationStartDeg),
		LowElevationFullRad:  degToRad(d.Weights.LowElevationFullDeg),
		LowElevationWeight:   d.Weights.LowElevationWeight,
	})
	if d.Sequence != nil {
		restrict := make(map[int]map[string]bool, len(d.Sequence.Blocks))
		for _, b := range d.Sequence.Blocks {
			if set := toSet(b.SourceIDs); set != nil {
				restrict[b.Residue] = set
			}
		}
		reg.Sequence = &weight.ScanSequence{
			Modulus:  d.Sequence.Modulus,
			Restrict: restrict,
		}
	}
	if d.Calibrator != nil {
		reg.Calibrator = &weight.CalibratorDescriptor{
			CadenceScans:              d.Calibrator.CadenceScans,
			CadenceSec:                d.Calibrator.CadenceSec,
			AllowedSourceIDs:          toSet(d.Calibrator.SourceIDs),
			MaxScans:                  d.Calibrator.MaxScans,
			LowElevationRampStartRad:  degToRad(d.Calibrator.LowElevationStartDeg),
			LowElevationRampFullRad:   degToRad(d.Calibrator.LowElevationFullDeg),
			HighElevationRampStartRad: degToRad(d.Calibrator.HighElevationStartDeg),
			HighElevationRampFullRad:  degToRad(d.Calibrator.HighElevationFullDeg),
		}
	}

	opts := scheduler.Options{
		SessionStart:    d.General.Start,
		SessionEnd:      d.General.End,
		SessionStartSec: 0,
		SessionEndSec:   uint64(d.General.End.Sub(d.General.Start) / time.Second),
		Anchor:          anchorKind(d.General.Anchor),
		FillInEnabled:   d.General.FillIn,
		HighImpactTickSec: d.General.HighImpactSec,
		Optimization: scheduler.OptimizationConditions{
			MinNumScansPerSource:           d.Optimization.MinNumScansPerSource,
			MinNumObsPerSource:             d.Optimization.MinNumObsPerSource,
			RequireBoth:                    d.Optimization.RequireBoth,
			MinNumberOfSourcesToReduce:     d.Optimization.MinNumberOfSourcesToReduce,
			MaxNumberOfIterations:          d.Optimization.MaxNumberOfIterations,
			NumberOfGentleSourceReductions: d.Optimization.NumberOfGentleSourceReductions,
		},
		Subnetting: subcon.SubnettingOptions{
			Enabled:      d.Subnetting.Enabled,
			MinAngleRad:  degToRad(d.Subnetting.MinAngleDeg),
			MinNStations: d.Subnetting.MinNStations,
		},
	}
	for _, hi := range d.HighImpact {
		opts.HighImpact = append(opts.HighImpact, scheduler.HighImpactDescriptor{
			AzRad:      degToRad(hi.AzDeg),
			ElRad:      degToRad(hi.ElDeg),
			MarginRad:  degToRad(hi.MarginDeg),
			StationIDs: hi.Stations,
		})
	}

	return net, sources, reg, opts, nil
}

// toSet converts a TOML string list into the membership set the domain
// types use for source-ID restrictions; a nil/empty list means no set.
func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// LoadCatalogFiles opens the files named in d.Catalogs and runs
// catalog.Load over them, closing every file it opened.
func (d *Document) LoadCatalogFiles() (*catalog.Catalog, []catalog.LoadError, error) {
	var files catalog.Files
	var closers []*os.File

	for band := range d.Mode.NChannels {
		files.Bands = append(files.Bands, band)
	}

	open := func(path string) (*os.File, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: opening %s", path)
		}
		closers = append(closers, f)
		return f, nil
	}

	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()

	antenna, err := open(d.Catalogs.Antenna)
	if err != nil {
		return nil, nil, err
	}
	position, err := open(d.Catalogs.Position)
	if err != nil {
		return nil, nil, err
	}
	src, err := open(d.Catalogs.Source)
	if err != nil {
		return nil, nil, err
	}
	equip, err := open(d.Catalogs.Equip)
	if err != nil {
		return nil, nil, err
	}
	if antenna != nil {
		files.Antenna = antenna
	}
	if position != nil {
		files.Position = position
	}
	if src != nil {
		files.Source = src
	}
	if equip != nil {
		files.Equip = equip
	}

	cat, loadErrs := catalog.Load(files)
	return cat, loadErrs, nil
}
