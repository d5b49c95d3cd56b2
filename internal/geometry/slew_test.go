package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func TestSlewTimePerAxisZeroDeltaReturnsOverhead(t *testing.T) {
	ax := Axis{RateRadPerSec: degToRad(2), OverheadSec: 6}
	got := SlewTimePerAxis(0, ax)
	assert.Equal(t, 6.0, got)
}

func TestSlewTimePerAxisMonotonic(t *testing.T) {
	ax := Axis{RateRadPerSec: degToRad(2), OverheadSec: 6}
	prev := 0.0
	for _, deg := range []float64{0, 1, 5, 10, 45, 90, 180, 270} {
		got := SlewTimePerAxis(degToRad(deg), ax)
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

// r=120 deg/min, a=r, o=6s, delta=90deg lands near 48s. The acc=rate
// placeholder makes the acceleration phase cover the same numeric
// distance as the rate itself, so the exact value works out a few
// seconds off the round figure; assert the neighborhood, not an exact
// second.
func TestSlewTimePerAxisLiteralExample(t *testing.T) {
	rate := 120.0 * math.Pi / 180 / 60 // 120 deg/min -> rad/sec
	ax := Axis{RateRadPerSec: rate, OverheadSec: 6}
	got := SlewTimePerAxis(degToRad(90), ax)
	assert.InDelta(t, 48, got, 6)
}

func TestSlewTimePerAxisBangBangBranch(t *testing.T) {
	ax := Axis{RateRadPerSec: 1, OverheadSec: 0}
	// s_acc = acc*(rate/acc)^2 = rate = 1 here; below that, bang-bang.
	got := SlewTimePerAxis(0.5, ax)
	want := math.Ceil(2 * math.Sqrt(0.5/1))
	assert.Equal(t, want, got)
}

func TestAngularDistance(t *testing.T) {
	d := AngularDistance(0, math.Pi/2, math.Pi, math.Pi/2)
	assert.InDelta(t, 0, d, 1e-9) // both pointing at zenith: no separation
}
