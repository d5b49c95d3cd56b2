package scheduler

// optimizationFailingSources evaluates each source against
// minNumScans/minNumObs, combined by AND/OR, returning the IDs of sources
// that fail.
func (s *Scheduler) optimizationFailingSources(stats map[string]SourceStats) []string {
	cond := s.Opts.Optimization
	var failing []string
	for id, src := range s.Sources {
		if src.IsForcedUnavailable() {
			continue
		}
		st := stats[id]
		scansFail := st.Scans < cond.MinNumScansPerSource
		obsFail := st.Observations < cond.MinNumObsPerSource

		var fails bool
		if cond.RequireBoth {
			fails = scansFail && obsFail
		} else {
			fails = scansFail || obsFail
		}
		if fails {
			failing = append(failing, id)
		}
	}
	return failing
}

// reduceFailingSources marks failing sources globally unavailable. The
// first NumberOfGentleSourceReductions iterations drop only every second
// failing source to converge gradually.
func (s *Scheduler) reduceFailingSources(failing []string, gentle bool) {
	for i, id := range failing {
		if gentle && i%2 == 1 {
			continue
		}
		src, ok := s.Sources[id]
		if !ok {
			continue
		}
		src.MarkGloballyUnavailable()
	}
}
