// Package scene resolves the scene-graph hierarchy on top of grid-tracked
// roots. A child carries a Parent link and a parent-local space.Transform but
// no GridCell; its position in the world is its root's SpacePosition moved by
// the chain of local transforms.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/space"
)

// MaxDepth bounds parent chains so a cycle cannot hang a pass.
const MaxDepth = 64

// Parent links a child entity to its parent.
type Parent struct {
	Ref *ecs.EntityRef
}

// Pose is a world placement kept in double precision apart from the offset
// stored in Position.
type Pose struct {
	Position space.SpacePosition
	Rotation mgl64.Quat
}

// Apply places a parent-local translation and rotation under p.
func (p Pose) Apply(grid *space.Settings, local mgl64.Vec3, rot mgl64.Quat) Pose {
	return Pose{
		Position: grid.Translate(p.Position, p.Rotation.Rotate(local)),
		Rotation: p.Rotation.Mul(rot).Normalize(),
	}
}

// Resolver reads poses out of a storage.
type Resolver struct {
	Grid    *space.Settings
	Storage *ecs.Storage
}

// WorldPose returns the pose of id. Grid-tracked entities are their own
// roots; children are resolved through their parents. ok is false when the
// chain is broken, too deep, or ends at an entity without a GridCell.
func (r Resolver) WorldPose(id ecs.EntityId) (Pose, bool) {
	return r.worldPose(id, 0)
}

func (r Resolver) worldPose(id ecs.EntityId, depth int) (Pose, bool) {
	if depth > MaxDepth {
		return Pose{}, false
	}

	transform := ecs.ReadComponent[space.Transform](r.Storage, id)
	if transform == nil {
		return Pose{}, false
	}
	rot := space.QuatTo64(transform.Rot())

	if cell := ecs.ReadComponent[space.GridCell](r.Storage, id); cell != nil {
		return Pose{
			Position: space.SpacePosition{Cell: *cell, Offset: transform.Translation},
			Rotation: rot,
		}, true
	}

	parent := ecs.ReadComponent[Parent](r.Storage, id)
	if parent == nil || !parent.Ref.Valid() {
		return Pose{}, false
	}
	pose, ok := r.worldPose(parent.Ref.Id, depth+1)
	if !ok {
		return Pose{}, false
	}
	return pose.Apply(r.Grid, space.Vec3To64(transform.Translation), rot), true
}

// ParentPose resolves the pose of id's parent.
func (r Resolver) ParentPose(id ecs.EntityId) (Pose, bool) {
	parent := ecs.ReadComponent[Parent](r.Storage, id)
	if parent == nil || !parent.Ref.Valid() {
		return Pose{}, false
	}
	return r.worldPose(parent.Ref.Id, 1)
}

// RegisterComponents registers the grid and scene-graph components.
func RegisterComponents(r *ecs.ComponentRegistry) {
	ecs.RegisterComponent[space.GridCell](r)
	ecs.RegisterComponent[space.Transform](r)
	ecs.RegisterComponent[space.GlobalTransform](r)
	ecs.RegisterComponent[Parent](r)
}
