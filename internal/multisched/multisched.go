// Package multisched expands a multi-schedule sweep specification into a
// Cartesian product of concrete parameter sets (optionally sampled down to
// a configured cap with a seeded RNG) and runs one independent worker per
// set. Workers share no mutable state: each gets its own
// *weight.Registry.
package multisched

import (
	"context"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/busoc-assist/vlbisched/internal/weight"
)

// ParameterSweep is one parameter's enumerated values to sweep over,
// optionally scoped to a subset of named members.
type ParameterSweep struct {
	Name       string
	Values     []float64
	MemberIDs  []string // optional scope; empty means "applies globally"
}

// Variant is one concrete point in the Cartesian product, keyed by
// parameter name.
type Variant struct {
	Index  int
	Values map[string]float64
}

// Expand builds the Cartesian product of sweeps, then if it exceeds
// maxCombinations (0 = unbounded) draws a seeded random sample of that
// size instead of truncating in sweep order, matching the reference
// createMultiScheduleParameters(maxNr, seed) sampling behavior rather than
// always favoring the first sweep's early values.
func Expand(sweeps []ParameterSweep, maxCombinations int, seed int64) []Variant {
	var full []Variant
	if len(sweeps) == 0 {
		full = []Variant{{Index: 0, Values: map[string]float64{}}}
	} else {
		var rec func(i int, acc map[string]float64)
		rec = func(i int, acc map[string]float64) {
			if i == len(sweeps) {
				cp := make(map[string]float64, len(acc))
				for k, v := range acc {
					cp[k] = v
				}
				full = append(full, Variant{Index: len(full), Values: cp})
				return
			}
			for _, v := range sweeps[i].Values {
				acc[sweeps[i].Name] = v
				rec(i+1, acc)
			}
		}
		rec(0, make(map[string]float64))
	}

	if maxCombinations <= 0 || len(full) <= maxCombinations {
		return full
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(full), func(i, j int) { full[i], full[j] = full[j], full[i] })
	sampled := full[:maxCombinations]
	for i := range sampled {
		sampled[i].Index = i
	}
	return sampled
}

// PoolSize resolves the worker pool size from a config option: "auto" uses
// the number of variants (capped at max), "single" forces 1, anything else
// is parsed as a manual count.
func PoolSize(mode string, variantCount, max int) int {
	switch mode {
	case "single":
		return 1
	case "auto":
		if max > 0 && variantCount > max {
			return max
		}
		if variantCount < 1 {
			return 1
		}
		return variantCount
	default:
		n, err := strconv.Atoi(strings.TrimPrefix(mode, "manual:"))
		if err != nil || n < 1 {
			return variantCount
		}
		return n
	}
}

// Result is one worker's outcome.
type Result struct {
	Variant Variant
	Value   interface{}
	Err     error
}

// Run executes fn for every variant through a pool of at most poolSize
// concurrent workers, returning one Result per variant in variant order.
// Each worker receives its own empty *weight.Registry to populate, so no
// state is shared between workers.
func Run(ctx context.Context, variants []Variant, poolSize int, fn func(ctx context.Context, v Variant, reg *weight.Registry) (interface{}, error)) []Result {
	results := make([]Result, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	if poolSize < 1 {
		poolSize = 1
	}
	sem := make(chan struct{}, poolSize)

	for i, v := range variants {
		i, v := i, v
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			reg := weight.New(weight.Factors{})
			val, err := fn(gctx, v, reg)
			results[i] = Result{Variant: v, Value: val, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
