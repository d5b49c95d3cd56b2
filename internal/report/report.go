// Package report produces the human-readable statistics summary the CLI
// prints after a run: per-station/per-source/per-baseline totals and an
// md5 content hash of the scan log. NGS/SKD/VEX/downstream formatters
// are out of scope; this is the core statistics surface only.
package report

import (
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/scan"
	"github.com/busoc-assist/vlbisched/internal/source"
)

const timeFormat = "2006-01-02T15:04:05"

// Summary is the aggregate statistics of one completed run.
type Summary struct {
	TotalScans        int
	TotalObservations  int
	TotalObservingSec float64

	PerStation  map[string]StationLine
	PerSource   map[string]SourceLine
	PerBaseline map[string]BaselineLine

	ScanLogDigest string // hex md5 of the rendered scan log
}

// StationLine is one station's row in the per-station summary.
type StationLine struct {
	Scans          int
	ObservingSec   float64
	FieldSysSec    float64
	SlewSec        float64
	IdleSec        float64
}

// SourceLine is one source's row in the per-source summary.
type SourceLine struct {
	Scans        int
	Observations int
}

// BaselineLine is one baseline's row in the per-baseline summary.
type BaselineLine struct {
	Observations  int
	ObservingSec  float64
}

// Build computes a Summary from a committed scan list and the network/
// source catalog the run scheduled against. sessionStart anchors the
// scan log rendered for the digest, matching the start times reported in
// WriteScanLog.
func Build(scans []*scan.Scan, net *network.Network, sources map[string]*source.Source, sessionStart time.Time) Summary {
	s := Summary{
		PerStation:  make(map[string]StationLine),
		PerSource:   make(map[string]SourceLine),
		PerBaseline: make(map[string]BaselineLine),
	}

	s.TotalScans = len(scans)
	for _, sc := range scans {
		s.TotalObservations += len(sc.Observations)
		for _, obs := range sc.Observations {
			s.TotalObservingSec += obs.DurationSec
		}
	}

	for id, st := range net.Stations {
		s.PerStation[id] = StationLine{
			ObservingSec: st.Stats.TotalObservingSec,
			FieldSysSec:  st.Stats.TotalFieldSysSec,
			SlewSec:      st.Stats.TotalSlewSec,
			IdleSec:      st.Stats.TotalIdleSec,
			Scans:        len(st.Stats.ScanStartTimesSec),
		}
	}

	for id, src := range sources {
		s.PerSource[id] = SourceLine{Scans: src.Stats.TotalScans, Observations: src.Stats.TotalObservations}
	}

	for id, bl := range net.Baselines {
		s.PerBaseline[id] = BaselineLine{Observations: bl.TotalObservations, ObservingSec: bl.TotalObservingSec}
	}

	digest := md5.New()
	WriteScanLog(digest, sessionStart, scans)
	s.ScanLogDigest = fmt.Sprintf("%x", digest.Sum(nil))

	return s
}

// WriteScanLog renders one line per committed scan: id, source, stations,
// and each baseline's start/duration.
func WriteScanLog(w io.Writer, start time.Time, scans []*scan.Scan) {
	for _, sc := range scans {
		fmt.Fprintf(w, "%s %s %v\n", sc.ID, sc.SourceID, sc.Stations)
		ids := make([]string, 0, len(sc.Observations))
		byKey := make(map[string]scan.Observation, len(sc.Observations))
		for _, obs := range sc.Observations {
			key := obs.Station1 + "-" + obs.Station2
			ids = append(ids, key)
			byKey[key] = obs
		}
		sort.Strings(ids)
		for _, key := range ids {
			obs := byKey[key]
			when := start.Add(time.Duration(obs.StartSec) * time.Second)
			fmt.Fprintf(w, "  %s %s %.1fs\n", key, when.Format(timeFormat), obs.DurationSec)
		}
	}
}

// WriteSummary writes the human-readable per-entity summary in a
// tabular layout.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "total scans: %d, total observations: %d, total observing time: %.1fs\n",
		s.TotalScans, s.TotalObservations, s.TotalObservingSec)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "stations:")
	for _, id := range sortedKeys(s.PerStation) {
		l := s.PerStation[id]
		fmt.Fprintf(w, "  %-8s | scans %4d | observing %8.1fs | field-sys %7.1fs | slew %7.1fs | idle %7.1fs\n",
			id, l.Scans, l.ObservingSec, l.FieldSysSec, l.SlewSec, l.IdleSec)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "sources:")
	for _, id := range sortedKeysSource(s.PerSource) {
		l := s.PerSource[id]
		fmt.Fprintf(w, "  %-8s | scans %4d | observations %4d\n", id, l.Scans, l.Observations)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "baselines:")
	for _, id := range sortedKeysBaseline(s.PerBaseline) {
		l := s.PerBaseline[id]
		fmt.Fprintf(w, "  %-12s | observations %4d | observing %8.1fs\n", id, l.Observations, l.ObservingSec)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "scan log md5: %s\n", s.ScanLogDigest)
}

func sortedKeys(m map[string]StationLine) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func sortedKeysSource(m map[string]SourceLine) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func sortedKeysBaseline(m map[string]BaselineLine) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
