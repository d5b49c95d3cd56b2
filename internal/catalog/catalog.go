// Package catalog is a thin adapter over line-oriented, whitespace-
// separated astronomy catalogs (antenna, position, source, equip). The
// scheduler core depends on it only through the narrow Source interface
// below, keeping catalog ingestion swappable for other readers.
package catalog

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
)

// Source is the narrow interface the scheduler core depends on.
type Source interface {
	Stations() map[string]*station.Station
	Sources() map[string]*source.Source
	Baselines() map[string]*baseline.Baseline
}

// Catalog is a concrete, in-memory implementation of Source built from
// parsed catalog files.
type Catalog struct {
	stations  map[string]*station.Station
	sources   map[string]*source.Source
	baselines map[string]*baseline.Baseline

	oneLetterCodes map[string]bool
}

func newCatalog() *Catalog {
	return &Catalog{
		stations:       make(map[string]*station.Station),
		sources:        make(map[string]*source.Source),
		baselines:      make(map[string]*baseline.Baseline),
		oneLetterCodes: make(map[string]bool),
	}
}

func (c *Catalog) Stations() map[string]*station.Station   { return c.stations }
func (c *Catalog) Sources() map[string]*source.Source       { return c.sources }
func (c *Catalog) Baselines() map[string]*baseline.Baseline { return c.baselines }

// lines yields non-empty, non-comment (`*`-prefixed) fields from r.
func lines(r io.Reader) [][]string {
	var out [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		out = append(out, strings.Fields(line))
	}
	return out
}

// nextFreeOneLetterCode returns preferred if it is still free, otherwise
// the next free uppercase letter A-Z.
func (c *Catalog) nextFreeOneLetterCode(preferred string) string {
	if preferred != "" && !c.oneLetterCodes[preferred] {
		c.oneLetterCodes[preferred] = true
		return preferred
	}
	for ch := 'A'; ch <= 'Z'; ch++ {
		code := string(ch)
		if !c.oneLetterCodes[code] {
			c.oneLetterCodes[code] = true
			return code
		}
	}
	return preferred
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
