package space

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// SpacePosition is an exact world position: which cell, and where inside it.
// Offset is expected to stay within about one cell edge of zero but nothing
// here enforces that; use Settings to renormalize.
type SpacePosition struct {
	Cell   GridCell
	Offset mgl32.Vec3
}

// Add combines cells and offsets independently. It never carries offset
// overflow into the cell; Settings.Combine does.
func (p SpacePosition) Add(o SpacePosition) SpacePosition {
	return SpacePosition{Cell: p.Cell.Add(o.Cell), Offset: p.Offset.Add(o.Offset)}
}

// Sub is the raw counterpart of Add.
func (p SpacePosition) Sub(o SpacePosition) SpacePosition {
	return SpacePosition{Cell: p.Cell.Sub(o.Cell), Offset: p.Offset.Sub(o.Offset)}
}

func (p SpacePosition) String() string {
	return fmt.Sprintf("%v+(%.4f, %.4f, %.4f)", p.Cell, p.Offset[0], p.Offset[1], p.Offset[2])
}
