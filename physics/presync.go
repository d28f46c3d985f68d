package physics

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

var prevType = reflect.TypeFor[PrevSpacePosition]()

// PreSyncSystem prepares the solver frame before the solver steps:
//
//  1. capture where the physics origin was last frame (bootstrapping the
//     cache the first time an entity holds the role),
//  2. measure how far the origin moved on the grid,
//  3. shift every other body back by that distance and re-zero the origin,
//  4. remember the origin's current position,
//  5. copy render-side edits of bodies into the solver.
type PreSyncSystem struct {
	Grid  *space.Settings
	Roles *origin.Roles
	Guard *origin.Guard

	Bodies ecs.Query[bodyView]

	// holder is the reference that owned the physics role last frame.
	holder *ecs.EntityRef
}

func (s *PreSyncSystem) Execute(frame *ecs.UpdateFrame) {
	originId, err := s.Roles.Resolve(origin.Physics)
	if err != nil {
		s.Guard.Fail(metrics.PassPreSync, frame.Index, err)
		return
	}
	resolver := scene.Resolver{Grid: s.Grid, Storage: frame.Storage}
	originPose, ok := resolver.WorldPose(originId)
	if !ok {
		s.Guard.Fail(metrics.PassPreSync, frame.Index, origin.ErrOriginNotTracked)
		return
	}
	current := originPose.Position

	ref := s.Roles.Ref(origin.Physics)
	if s.holder != ref {
		s.releaseHolder(frame)
		s.holder = ref
	}

	var shift mgl64.Vec3
	if prev := ecs.ReadComponent[PrevSpacePosition](frame.Storage, originId); prev == nil {
		frame.Commands.AddComponentRef(ref, PrevSpacePosition{Position: current})
		s.rezero(originId)
		s.Guard.Log().Debug("physics origin bootstrapped", "frame", frame.Index, "cell", current.Cell)
	} else {
		shift = s.Grid.Delta(current, prev.Position)
		for item := range s.Bodies.Values() {
			if item.EntityId == originId {
				item.RigidBody.Position = mgl64.Vec3{}
			} else {
				item.RigidBody.Position = item.RigidBody.Position.Sub(shift)
			}
		}
		prev.Position = current
	}

	mirrored := 0
	for item := range s.Bodies.Values() {
		pose, ok := resolver.WorldPose(item.EntityId)
		if !ok {
			continue
		}

		sync := item.SyncState
		changed := !sync.Valid ||
			s.Grid.Delta(pose.Position, sync.Position) != (mgl64.Vec3{}) ||
			pose.Rotation != sync.Rotation
		if changed {
			if item.EntityId == originId {
				item.RigidBody.Position = mgl64.Vec3{}
			} else {
				item.RigidBody.Position = s.Grid.Delta(pose.Position, current)
			}
			item.RigidBody.Rotation = pose.Rotation
			sync.Position = pose.Position
			sync.Rotation = pose.Rotation
			sync.Valid = true
			mirrored++
		}
		sync.PreStep = item.RigidBody.Position
	}

	s.Guard.MetricsSink().ObserveOriginShift(shift.Len())
	s.Guard.MetricsSink().ObserveBodies(s.Bodies.Len(), mirrored)
	s.Guard.Report().Update(func(r *origin.Report) {
		r.Physics = origin.OriginReport{Set: true, Position: current}
		r.Bodies = s.Bodies.Len()
		r.Mirrored = mirrored
		r.Shift = shift
	})
}

// rezero moves the solver frame so the origin body sits at zero.
func (s *PreSyncSystem) rezero(originId ecs.EntityId) {
	originBody := s.Bodies.Get(originId)
	if originBody == nil {
		return
	}
	zero := originBody.RigidBody.Position
	for item := range s.Bodies.Values() {
		item.RigidBody.Position = item.RigidBody.Position.Sub(zero)
	}
}

// releaseHolder drops the cache of an entity that lost the physics role, so
// it bootstraps again if the role comes back.
func (s *PreSyncSystem) releaseHolder(frame *ecs.UpdateFrame) {
	if !s.holder.Valid() {
		return
	}
	if frame.Storage.HasComponent(s.holder.Id, prevType) {
		frame.Commands.RemoveComponent(s.holder.Id, prevType)
	}
}
