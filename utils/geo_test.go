package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMiles(t *testing.T) {
	assert.InDelta(t, 0, HaversineMiles(34.0683, -118.4023, 34.0683, -118.4023), 1e-9)

	// One degree of latitude is roughly 69.1 miles.
	assert.InDelta(t, 69.09, HaversineMiles(34, -118, 35, -118), 0.05)

	// Symmetric.
	a := HaversineMiles(34.0683, -118.4023, 34.0736, -118.4004)
	b := HaversineMiles(34.0736, -118.4004, 34.0683, -118.4023)
	assert.InDelta(t, a, b, 1e-12)
}

func TestMetersToMiles(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToMiles(1609.344), 1e-12)
	assert.InDelta(t, 0.5, MetersToMiles(804.672), 1e-12)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{0.004, 0},
		{2, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}
