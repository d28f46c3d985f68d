package physics

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

// PostSyncSystem writes the solver step back onto the grid. Roots move by
// what the solver moved them; children are put back into their parent's
// frame. Parents are written before their children.
type PostSyncSystem struct {
	Grid  *space.Settings
	Roles *origin.Roles
	Guard *origin.Guard

	Bodies ecs.Query[bodyView]

	children []childBody
}

// solverPose is a placement in the solver frame.
type solverPose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// local expresses a solver-frame position and rotation relative to p.
func (p solverPose) local(position mgl64.Vec3, rot mgl64.Quat) (mgl64.Vec3, mgl64.Quat) {
	inv := p.Rotation.Inverse()
	return inv.Rotate(position.Sub(p.Position)), inv.Mul(rot).Normalize()
}

type childBody struct {
	depth int
	item  bodyView
}

func (s *PostSyncSystem) Execute(frame *ecs.UpdateFrame) {
	originId, err := s.Roles.Resolve(origin.Physics)
	if err != nil {
		s.Guard.Fail(metrics.PassPostSync, frame.Index, err)
		return
	}
	resolver := scene.Resolver{Grid: s.Grid, Storage: frame.Storage}
	if _, ok := resolver.WorldPose(originId); !ok {
		s.Guard.Fail(metrics.PassPostSync, frame.Index, origin.ErrOriginNotTracked)
		return
	}

	s.children = s.children[:0]
	for item := range s.Bodies.Values() {
		if !item.SyncState.Valid {
			continue
		}
		if item.Cell == nil {
			if item.Parent != nil {
				s.children = append(s.children, childBody{depth: depth(frame.Storage, item.EntityId), item: item})
			}
			continue
		}

		tracked := space.Tracked{GridCell: item.Cell, Transform: item.Transform}
		moved := item.RigidBody.Position.Sub(item.SyncState.PreStep)
		tracked.SetPosition(s.Grid.Translate(tracked.Position(), moved))
		item.Transform.Rotation = space.QuatTo32(item.RigidBody.Rotation)
		s.record(resolver, item)
	}

	// The origin's pose is read again: it may itself have been moved above.
	originPose, ok := resolver.WorldPose(originId)
	if !ok {
		return
	}

	slices.SortStableFunc(s.children, func(a, b childBody) int { return a.depth - b.depth })
	for _, child := range s.children {
		item := child.item
		parentPose, ok := s.parentFrame(resolver, originPose, item)
		if !ok {
			continue
		}
		local, rot := parentPose.local(item.RigidBody.Position, item.RigidBody.Rotation)
		item.Transform.Translation = space.Vec3To32(local)
		item.Transform.Rotation = space.QuatTo32(rot)
		s.record(resolver, item)
	}
}

// parentFrame returns the parent's placement in the solver frame. A parent
// that is itself a body is taken from the solver, anything else from the grid.
func (s *PostSyncSystem) parentFrame(resolver scene.Resolver, originPose scene.Pose, item bodyView) (solverPose, bool) {
	ref := item.Parent.Ref
	if !ref.Valid() {
		return solverPose{}, false
	}
	if body := ecs.ReadComponent[RigidBody](resolver.Storage, ref.Id); body != nil {
		return solverPose{Position: body.Position, Rotation: body.Rotation}, true
	}
	pose, ok := resolver.WorldPose(ref.Id)
	if !ok {
		return solverPose{}, false
	}
	return solverPose{Position: s.Grid.Delta(pose.Position, originPose.Position), Rotation: pose.Rotation}, true
}

func (s *PostSyncSystem) record(resolver scene.Resolver, item bodyView) {
	pose, ok := resolver.WorldPose(item.EntityId)
	if !ok {
		return
	}
	item.SyncState.Position = pose.Position
	item.SyncState.Rotation = pose.Rotation
}
