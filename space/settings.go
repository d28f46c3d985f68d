package space

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Settings holds the cell edge length shared by the whole world. It is fixed
// at construction and only read afterwards, so one value can be handed to any
// number of passes.
//
// Offsets use a centered split: FromDouble picks the cell whose center is
// nearest, leaving a residual in [-edge/2, +edge/2) on every axis.
type Settings struct {
	cellEdge float64
	halfEdge float64
}

// NewSettings validates edge and returns the settings for it.
func NewSettings(edge float64) (*Settings, error) {
	if math.IsNaN(edge) || math.IsInf(edge, 0) || edge <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCellEdge, edge)
	}
	return &Settings{cellEdge: edge, halfEdge: edge / 2}, nil
}

// MustSettings is NewSettings for constants known to be valid.
func MustSettings(edge float64) *Settings {
	s, err := NewSettings(edge)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Settings) CellEdge() float64 {
	return s.cellEdge
}

func (s *Settings) HalfEdge() float64 {
	return s.halfEdge
}

// ToDouble returns cell*edge + offset in double precision.
func (s *Settings) ToDouble(cell GridCell, offset mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(cell.X)*s.cellEdge + float64(offset[0]),
		float64(cell.Y)*s.cellEdge + float64(offset[1]),
		float64(cell.Z)*s.cellEdge + float64(offset[2]),
	}
}

// PositionToDouble is ToDouble for a SpacePosition.
func (s *Settings) PositionToDouble(p SpacePosition) mgl64.Vec3 {
	return s.ToDouble(p.Cell, p.Offset)
}

// FromDouble splits v into the cell containing it and the residual offset.
// This is the only place a carry from offset into cell happens. Cells are
// int64, so |v| must stay below edge*2^63.
func (s *Settings) FromDouble(v mgl64.Vec3) (GridCell, mgl32.Vec3) {
	var cell [3]int64
	var offset mgl32.Vec3
	for i := range 3 {
		cell[i], offset[i] = s.split(v[i])
	}
	return GridCell{X: cell[0], Y: cell[1], Z: cell[2]}, offset
}

// PositionFromDouble is FromDouble packed into a SpacePosition.
func (s *Settings) PositionFromDouble(v mgl64.Vec3) SpacePosition {
	cell, offset := s.FromDouble(v)
	return SpacePosition{Cell: cell, Offset: offset}
}

func (s *Settings) split(v float64) (int64, float32) {
	q := math.Floor(v/s.cellEdge + 0.5)
	r := v - q*s.cellEdge
	if r >= s.halfEdge {
		r -= s.cellEdge
		q++
	} else if r < -s.halfEdge {
		r += s.cellEdge
		q--
	}
	return int64(q), s.clampOffset(r)
}

// clampOffset rounds r to float32 without letting the rounding push it out of
// [-half, +half).
func (s *Settings) clampOffset(r float64) float32 {
	f := float32(r)
	for float64(f) >= s.halfEdge {
		f = math.Nextafter32(f, float32(math.Inf(-1)))
	}
	for float64(f) < -s.halfEdge {
		f = math.Nextafter32(f, float32(math.Inf(1)))
	}
	return f
}

// InCell reports whether offset lies in the canonical range on every axis.
func (s *Settings) InCell(offset mgl32.Vec3) bool {
	for _, c := range offset {
		if float64(c) < -s.halfEdge || float64(c) >= s.halfEdge {
			return false
		}
	}
	return true
}

// Normalize carries p's own offset into its cell. The world position is kept.
func (s *Settings) Normalize(p SpacePosition) SpacePosition {
	carry, offset := s.FromDouble(Vec3To64(p.Offset))
	return SpacePosition{Cell: p.Cell.Add(carry), Offset: offset}
}

// Translate moves p by a double-precision delta, carrying into the cell.
func (s *Settings) Translate(p SpacePosition, delta mgl64.Vec3) SpacePosition {
	carry, offset := s.FromDouble(Vec3To64(p.Offset).Add(delta))
	return SpacePosition{Cell: p.Cell.Add(carry), Offset: offset}
}

// Combine is the carrying counterpart of SpacePosition.Add.
func (s *Settings) Combine(a, b SpacePosition) SpacePosition {
	carry, offset := s.FromDouble(Vec3To64(a.Offset).Add(Vec3To64(b.Offset)))
	return SpacePosition{Cell: a.Cell.Add(b.Cell).Add(carry), Offset: offset}
}

// Delta returns a-b in double precision. Only the difference is ever
// materialized, never the absolute coordinate of either position, and the
// offsets are subtracted in double so no single-precision rounding enters.
func (s *Settings) Delta(a, b SpacePosition) mgl64.Vec3 {
	return s.ToDouble(a.Cell.Sub(b.Cell), mgl32.Vec3{}).Add(Vec3To64(a.Offset).Sub(Vec3To64(b.Offset)))
}
