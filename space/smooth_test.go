package space_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
)

func TestSmoothConvergesGeometrically(t *testing.T) {
	s := space.MustSettings(1000)
	target := space.SpacePosition{Cell: space.Cell(1_000_000, -42, 7), Offset: mgl32.Vec3{12.5, -250, 100}}
	current := space.SpacePosition{Cell: space.Cell(1_000_012, -40, 7), Offset: mgl32.Vec3{-300, 0, 499}}

	const w = 0.9
	initial := s.Delta(current, target).Len()

	for n := 1; n <= 60; n++ {
		current = s.Smooth(current, target, w)
		want := initial * math.Pow(w, float64(n))
		assert.InEpsilon(t, want, s.Delta(current, target).Len(), 1e-3, "step %d", n)
	}
}

func TestSmoothStaysNearTarget(t *testing.T) {
	s := space.MustSettings(1000)
	target := space.SpacePosition{Cell: space.Cell(0, 0, 0)}
	current := space.SpacePosition{Cell: space.Cell(900_000_000, 0, 0)}

	got := s.Smooth(current, target, 0.5)

	assert.Equal(t, space.Cell(450_000_000, 0, 0), got.Cell)
	assert.Equal(t, mgl32.Vec3{}, got.Offset)
}

func TestSmoothWeightBounds(t *testing.T) {
	s := space.MustSettings(100)
	target := space.SpacePosition{Cell: space.Cell(3, 0, 0), Offset: mgl32.Vec3{1, 2, 3}}
	current := space.SpacePosition{Cell: space.Cell(-3, 0, 0)}

	assert.Equal(t, target, s.Smooth(current, target, 0))
	assert.Equal(t, target, s.Smooth(current, target, -1))
	assert.Equal(t, target, s.Smooth(current, target, math.NaN()))

	held := s.Smooth(current, target, 1)
	assert.InDelta(t, 0, s.Delta(held, current).Len(), 1e-3)
}

func TestLagWeightForHalfLife(t *testing.T) {
	assert.InDelta(t, 0.5, space.LagWeightForHalfLife(1, 1), 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), space.LagWeightForHalfLife(2, 1), 1e-12)
	assert.Equal(t, 0.0, space.LagWeightForHalfLife(0, 1))
	assert.Equal(t, 0.0, space.LagWeightForHalfLife(1, 0))

	// Sixty frames at 60 Hz with a one second half-life halve the distance.
	w := space.LagWeightForHalfLife(1, 1.0/60)
	assert.InDelta(t, 0.5, math.Pow(w, 60), 1e-9)
}
