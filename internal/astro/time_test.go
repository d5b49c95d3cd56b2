package astro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionAndConversions(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	s, err := NewSession(start, end)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), s.PosixToInternal(start))
	assert.Equal(t, uint64(3600), s.PosixToInternal(start.Add(time.Hour)))
	assert.Equal(t, start.Add(90*time.Minute), s.InternalToPosix(90*60))
}

func TestGMSTAtInterpolatesAndBounds(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	s, err := NewSession(start, end)
	require.NoError(t, err)

	g, err := s.GMSTAt(1800)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, g, 0.0)
	assert.Less(t, g, twoPi)

	_, err = s.GMSTAt(uint64(10*time.Hour/time.Second))
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestNutationAtWithinBounds(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	s, err := NewSession(start, end)
	require.NoError(t, err)

	dpsi, deps, err := s.NutationAt(1800)
	require.NoError(t, err)
	assert.InDelta(t, 0, dpsi, 1e-3)
	assert.InDelta(t, 0, deps, 1e-3)
}

func TestEarthVelocityAndSunAreSingleValued(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	s, err := NewSession(start, end)
	require.NoError(t, err)

	v1 := s.EarthVelocity()
	v2 := s.EarthVelocity()
	assert.Equal(t, v1, v2)

	ra, dec := s.SunRaDec()
	assert.GreaterOrEqual(t, ra, 0.0)
	assert.Less(t, ra, twoPi)
	assert.InDelta(t, 0, dec, 0.41) // within obliquity bound
}
