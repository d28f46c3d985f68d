package space

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the render-side local transform. On a grid-tracked entity
// Translation is the offset inside the entity's GridCell; on a child entity
// it is relative to the parent.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// NewTransform returns a transform at offset with identity rotation.
func NewTransform(offset mgl32.Vec3) Transform {
	return Transform{Translation: offset, Rotation: mgl32.QuatIdent()}
}

// Rot returns the rotation, treating the zero quaternion as identity.
func (t Transform) Rot() mgl32.Quat {
	if t.Rotation.W == 0 && t.Rotation.V == (mgl32.Vec3{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

// GlobalTransform is the transform relative to the floating origin, ready for
// single-precision consumers. Written once per frame after all passes.
type GlobalTransform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// Tracked pairs the two components that make an entity grid-tracked.
type Tracked struct {
	*GridCell
	*Transform
}

// Position reads the entity's SpacePosition.
func (t Tracked) Position() SpacePosition {
	return SpacePosition{Cell: *t.GridCell, Offset: t.Transform.Translation}
}

// SetPosition writes p back into the two components.
func (t Tracked) SetPosition(p SpacePosition) {
	*t.GridCell = p.Cell
	t.Transform.Translation = p.Offset
}

func Vec3To64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func Vec3To32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func QuatTo64(q mgl32.Quat) mgl64.Quat {
	return mgl64.Quat{W: float64(q.W), V: Vec3To64(q.V)}
}

func QuatTo32(q mgl64.Quat) mgl32.Quat {
	return mgl32.Quat{W: float32(q.W), V: Vec3To32(q.V)}
}
