package main

const helpText = `vlbisched schedules a VLBI observing session from a TOML configuration
file and a set of antenna/position/source/equipment catalog files.

usage: vlbisched [options] <config.toml>

options:

  -workers int      multi-schedule worker pool size (0: take general.workers
                     from the configuration; a single schedule runs when
                     the size is at most 1 and there is no [[multisched]]
                     block, otherwise every variant runs through the pool)
  -seed int         RNG seed for sampling multi-schedule variants when the
                     sweep's Cartesian product exceeds general.max-combinations
  -dump-schedule     print the per-scan log in addition to the summary
  -list-stations     list the antennas loaded from the catalog and exit
  -list-sources      list the sources loaded from the catalog and exit
  -version           print version and exit

configuration file:

  [general]     session start/end, anchor mode, fill-in, worker count
  [catalogs]    antenna/position/source/equip file paths
  [skycoverage] network sky-coverage influence model
  [weights]     scoring weight factors
  [subnetting]  subnetting thresholds
  [optimization] post-schedule optimization conditions
  [mode]        process-wide sample rate/bit depth and per-band channel count
  [[highimpact]] pre-fix targets scored before scan selection begins
  [sequence]    scan-sequence rule restricting every Nth selection
  [calibrator]  calibrator block cadence and elevation ramps
  [[multisched]] parameter sweeps for multi-schedule runs
  [stations.X]  [sources.X]  [baselines.X-Y]
                per-entity overlays onto the catalog-derived defaults
`
