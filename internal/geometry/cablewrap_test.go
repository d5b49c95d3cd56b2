package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limits [-90, 450], az_prev=300, az_raw=-20 -> 340.
func TestUnwrapAzNearAzLiteralExample(t *testing.T) {
	cw := NewCableWrap(degToRad(-90), degToRad(450), degToRad(5), degToRad(90))
	got, ok := cw.UnwrapAzNearAz(degToRad(-20), degToRad(300))
	require.True(t, ok)
	assert.InDelta(t, degToRad(340), got, 1e-9)
}

func TestUnwrapAzNearAzMinimizesDistance(t *testing.T) {
	cw := NewCableWrap(degToRad(-90), degToRad(450), degToRad(5), degToRad(90))
	for _, prevDeg := range []float64{-80, 0, 45, 100, 200, 300, 440} {
		for _, rawDeg := range []float64{-179, -90, -1, 0, 1, 90, 179, 180} {
			got, ok := cw.UnwrapAzNearAz(degToRad(rawDeg), degToRad(prevDeg))
			require.True(t, ok)
			// got must be within limits
			assert.GreaterOrEqual(t, got, degToRad(-90)-1e-9)
			assert.LessOrEqual(t, got, degToRad(450)+1e-9)
			// and must be the closest candidate among {raw+2k*pi} inside limits
			bestDist := absF(got - degToRad(prevDeg))
			for k := -2; k <= 2; k++ {
				cand := degToRad(rawDeg) + float64(k)*twoPi
				if cand < degToRad(-90) || cand > degToRad(450) {
					continue
				}
				d := absF(cand - degToRad(prevDeg))
				assert.GreaterOrEqual(t, d, bestDist-1e-9)
			}
			_ = ok
		}
	}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestCableWrapFlag(t *testing.T) {
	cw := NewCableWrap(degToRad(-90), degToRad(450), degToRad(5), degToRad(90))
	assert.Equal(t, WrapNeutral, cw.CableWrapFlag(degToRad(180)))
	assert.Equal(t, WrapClockwise, cw.CableWrapFlag(degToRad(400)))
	assert.Equal(t, WrapCounterClockwise, cw.CableWrapFlag(degToRad(-45)))
}

func TestAnglesInside(t *testing.T) {
	cw := NewCableWrap(degToRad(-90), degToRad(450), degToRad(5), degToRad(90))
	assert.True(t, cw.AnglesInside(degToRad(100), degToRad(30)))
	assert.False(t, cw.AnglesInside(degToRad(100), degToRad(2)))
	assert.False(t, cw.AnglesInside(degToRad(460), degToRad(30)))
}
