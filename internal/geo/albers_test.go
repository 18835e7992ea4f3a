package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbersUSA_CenterMapsToCanvasCenter(t *testing.T) {
	p := NewAlbersUSA(800, 600, 1000)

	pt, ok := p.Project(-96.6, 38.7)
	require.True(t, ok)
	assert.InDelta(t, 400, pt.X, 1e-6)
	assert.InDelta(t, 300, pt.Y, 1e-6)
}

func TestAlbersUSA_EastIsRightNorthIsUp(t *testing.T) {
	p := NewAlbersUSA(800, 600, 1000)

	nyc, ok := p.Project(-74.0, 40.7)
	require.True(t, ok)
	assert.Greater(t, nyc.X, 400.0)
	assert.Less(t, nyc.Y, 300.0)

	miami, ok := p.Project(-80.2, 25.8)
	require.True(t, ok)
	assert.Greater(t, miami.Y, nyc.Y)
}

func TestAlbersUSA_Insets(t *testing.T) {
	p := NewAlbersUSA(800, 600, 1000)

	honolulu, ok := p.Project(-157.8, 21.3)
	require.True(t, ok)
	assert.Less(t, honolulu.X, 400.0)
	assert.Greater(t, honolulu.Y, 300.0)
}

func TestAlbersUSA_Rejects(t *testing.T) {
	p := NewAlbersUSA(800, 600, 1000)

	cases := []struct {
		name     string
		lon, lat float64
	}{
		{"null island", 0, 0},
		{"paris", 2.35, 48.85},
		{"nan", math.NaN(), 40},
		{"inf", -96, math.Inf(1)},
		{"out of range", -200, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := p.Project(tc.lon, tc.lat)
			assert.False(t, ok)
		})
	}
}
