package scan

import (
	"math"

	"github.com/busoc-assist/vlbisched/internal/baseline"
	"github.com/busoc-assist/vlbisched/internal/network"
	"github.com/busoc-assist/vlbisched/internal/source"
	"github.com/busoc-assist/vlbisched/internal/station"
)

const midobMarginSec = 2.0

func maxSNR(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func clampf(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func intersectScanBounds(st1, st2 *station.Station, src source.Params, bl *baseline.Baseline) (minScan, maxScan float64) {
	min1, max1 := st1.Params().MinScanSec, st1.Params().MaxScanSec
	min2, max2 := st2.Params().MinScanSec, st2.Params().MaxScanSec
	minScan = math.Max(min1, min2)
	minScan = math.Max(minScan, src.MinScanSec)
	maxScan = minPositive(max1, max2, src.MaxScanSec)
	if bl != nil {
		bp := bl.Params()
		minScan = math.Max(minScan, bp.MinScanSec)
		maxScan = minPositive(maxScan, bp.MaxScanSec)
	}
	return minScan, maxScan
}

func minPositive(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v <= 0 {
			continue
		}
		if m == 0 || v < m {
			m = v
		}
	}
	return m
}

// requiredDurationSec derives the on-source time required to reach the
// given SNR on one band of a baseline, per the radiometer-style formula:
//
//	tau = ((1.75 * snrReq) / fluxJy)^2 * (sefd1*sefd2) / (sampleRate*nChannels*bits) + midobMargin
func requiredDurationSec(snrReq, fluxJy, sefd1, sefd2, sampleRateHz float64, nChannels, bits int) (float64, bool) {
	if fluxJy <= 0 || sampleRateHz <= 0 || nChannels <= 0 || bits <= 0 {
		return 0, false
	}
	ratio := (1.75 * snrReq) / fluxJy
	tau := ratio * ratio * (sefd1 * sefd2) / (sampleRateHz * float64(nChannels) * float64(bits))
	tau += midobMarginSec
	return math.Ceil(tau), true
}

func baselineVec(st1, st2 *station.Station) (dx, dy, dz float64) {
	return st1.Position.X - st2.Position.X, st1.Position.Y - st2.Position.Y, st1.Position.Z - st2.Position.Z
}

// CalcAllBaselineDurations computes, for every remaining pair and band, the
// required on-source duration, clamps it to [minScan, maxScan] intersected
// across baseline/station/source policy, and drops pairs that exceed
// maxScan. The surviving per-pair duration is the max across bands.
func (s *Scan) CalcAllBaselineDurations(net *network.Network, src *source.Source, gmstRad float64) map[string]float64 {
	srcParams := src.Params()
	durations := make(map[string]float64)

	for i := 0; i < len(s.Stations); i++ {
		for j := i + 1; j < len(s.Stations); j++ {
			sta1, sta2 := s.Stations[i], s.Stations[j]
			key := network.BaselineKey(sta1, sta2)
			bl := net.Baselines[key]
			if bl != nil && bl.Params().Ignore {
				continue
			}

			st1, st2 := net.Stations[sta1], net.Stations[sta2]
			minScan, maxScan := intersectScanBounds(st1, st2, srcParams, bl)
			dx, dy, dz := baselineVec(st1, st2)

			var best float64
			feasible := false
			for band, eq1 := range st1.Equip.Bands {
				eq2, ok := st2.Equip.Bands[band]
				if !ok {
					continue
				}
				var blSNR float64
				if bl != nil {
					blSNR = bl.Params().MinSNR[band]
				}
				snrReq := maxSNR(srcParams.MinSNR[band], st1.Params().MinSNR[band], st2.Params().MinSNR[band], blSNR)
				if snrReq == 0 {
					continue
				}
				flux := src.ObservedFlux(band, gmstRad, dx, dy, dz)
				tau, ok := requiredDurationSec(snrReq, flux, eq1.SEFD(s.elevationOf(sta1)), eq2.SEFD(s.elevationOf(sta2)), net.Mode.SampleRateHz, net.Mode.NChannels[band], net.Mode.Bits)
				if !ok {
					continue
				}
				if maxScan > 0 && tau > maxScan {
					continue
				}
				tau = clampf(tau, minScan, maxScan)
				if tau > best {
					best = tau
				}
				feasible = true
			}
			if feasible {
				durations[key] = best
			}
		}
	}
	return durations
}

func (s *Scan) elevationOf(stationID string) float64 {
	if pv, ok := s.StartPointing[stationID]; ok {
		return pv.El
	}
	return math.Pi / 4
}
