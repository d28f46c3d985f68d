// Package physics keeps a double-precision rigid-body solver in step with the
// grid. The solver works in a frame whose zero is the physics origin: every
// body's RigidBody.Position equals its grid position measured from the
// origin's. PreSyncSystem restores that frame before the solver steps and
// PostSyncSystem writes the step back onto the grid.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

// RigidBody is a body's placement in the solver frame.
type RigidBody struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

type Velocity struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// BodyKind decides how the solver treats a body. Bodies without one are
// dynamic.
type BodyKind uint8

const (
	Dynamic BodyKind = iota
	Kinematic
	Static
)

func (k BodyKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	}
	return "unknown"
}

// PrevSpacePosition caches where the physics origin was when the solver
// frame was last re-zeroed. It is added on first use.
type PrevSpacePosition struct {
	Position space.SpacePosition
}

// SyncState remembers the render pose last exchanged with the solver and the
// solver position before the current step. A zero SyncState marks a body the
// solver has not seen yet.
type SyncState struct {
	Valid    bool
	Position space.SpacePosition
	Rotation mgl64.Quat
	PreStep  mgl64.Vec3
}

// RegisterComponents registers the physics components together with the
// grid and scene-graph ones they depend on.
func RegisterComponents(r *ecs.ComponentRegistry) {
	scene.RegisterComponents(r)
	ecs.RegisterComponent[RigidBody](r)
	ecs.RegisterComponent[Velocity](r)
	ecs.RegisterComponent[BodyKind](r)
	ecs.RegisterComponent[PrevSpacePosition](r)
	ecs.RegisterComponent[SyncState](r)
}

// Body returns the components of a grid-tracked rigid body. The solver-side
// placement is filled in by the first pre-sync.
func Body(cell space.GridCell, transform space.Transform, kind BodyKind, velocity Velocity) []any {
	return []any{
		cell,
		transform,
		space.GlobalTransform{},
		RigidBody{Rotation: mgl64.QuatIdent()},
		velocity,
		kind,
		SyncState{},
	}
}

// ChildBody returns the components of a rigid body attached to parent.
func ChildBody(parent *ecs.EntityRef, local space.Transform, kind BodyKind, velocity Velocity) []any {
	return []any{
		scene.Parent{Ref: parent},
		local,
		space.GlobalTransform{},
		RigidBody{Rotation: mgl64.QuatIdent()},
		velocity,
		kind,
		SyncState{},
	}
}

// bodyView is what the sync passes read of every body.
type bodyView struct {
	ecs.EntityId
	*RigidBody
	*space.Transform
	*SyncState
	Cell   *space.GridCell `ecs:"optional"`
	Parent *scene.Parent   `ecs:"optional"`
}

// depth counts parent links above a body; roots are 0.
func depth(storage *ecs.Storage, id ecs.EntityId) int {
	d := 0
	for d <= scene.MaxDepth {
		parent := ecs.ReadComponent[scene.Parent](storage, id)
		if parent == nil || !parent.Ref.Valid() {
			return d
		}
		id = parent.Ref.Id
		d++
	}
	return d
}
