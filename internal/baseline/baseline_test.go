package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/busoc-assist/vlbisched/internal/policy"
)

func TestKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, Key("A", "B"), Key("B", "A"))
	assert.Equal(t, "A-B", Key("A", "B"))
}

func TestParamsOverlay(t *testing.T) {
	base := Params{MinSNR: map[string]float64{"X": 15}, Weight: 1.0, MinScanSec: 30}
	next := Params{Ignore: true, Weight: 2.0}
	merged := base.Overlay(next)

	assert.True(t, merged.Ignore)
	assert.InDelta(t, 2.0, merged.Weight, 1e-9)
	assert.InDelta(t, 30, merged.MinScanSec, 1e-9)
	assert.Equal(t, base.MinSNR, merged.MinSNR)
}

func TestCheckForNewEventAdvances(t *testing.T) {
	events := []policy.Event[Params]{
		{TimeSec: 0, Params: Params{Weight: 1}},
		{TimeSec: 100, Hard: true, Params: Params{Ignore: true}},
	}
	b := New("A-B", "A", "B", events)

	changed, hard := b.CheckForNewEvent(50)
	assert.False(t, changed)
	assert.False(t, hard)

	changed, hard = b.CheckForNewEvent(150)
	assert.True(t, changed)
	assert.True(t, hard)
	assert.True(t, b.Params().Ignore)

	b.ResetEvents()
	assert.False(t, b.Params().Ignore)
}
