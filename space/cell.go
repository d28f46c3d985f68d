// Package space holds the floating-origin position model: an integer grid
// cell plus a small single-precision offset inside it, and the Settings that
// convert between that pair and double-precision vectors.
package space

import "fmt"

// GridCell indexes one cube of the uniform world partition.
type GridCell struct {
	X, Y, Z int64
}

// Cell is shorthand for GridCell{x, y, z}.
func Cell(x, y, z int64) GridCell {
	return GridCell{X: x, Y: y, Z: z}
}

func (c GridCell) Add(o GridCell) GridCell {
	return GridCell{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

func (c GridCell) Sub(o GridCell) GridCell {
	return GridCell{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

func (c GridCell) Neg() GridCell {
	return GridCell{X: -c.X, Y: -c.Y, Z: -c.Z}
}

func (c GridCell) IsZero() bool {
	return c == GridCell{}
}

func (c GridCell) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}
