package main

import (
	"fmt"
	"sort"

	"github.com/busoc-assist/vlbisched/internal/catalog"
)

// ListStations prints one row per loaded station in a tabular layout.
func ListStations(cat *catalog.Catalog) {
	stations := cat.Stations()
	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("%3s | %-8s | %-2s | %-1s | %-10s\n", "#", "ID", "2C", "1C", "TWIN GROUP")
	for i, id := range ids {
		st := stations[id]
		fmt.Printf("%3d | %-8s | %-2s | %-1s | %-10s\n", i+1, st.ID, st.TwoLetterCode, st.OneLetterCode, st.TwinGroup)
	}
}

// ListSources prints one row per loaded source in a tabular layout.
func ListSources(cat *catalog.Catalog) {
	sources := cat.Sources()
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("%3s | %-10s | %-12s | %-12s\n", "#", "ID", "RA (rad)", "DEC (rad)")
	for i, id := range ids {
		src := sources[id]
		fmt.Printf("%3d | %-10s | %12.6f | %12.6f\n", i+1, src.ID, src.RaRad, src.DecRad)
	}
}
