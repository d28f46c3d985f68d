package origin

import (
	"reflect"

	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

var (
	gridCellType  = reflect.TypeFor[space.GridCell]()
	transformType = reflect.TypeFor[space.Transform]()
)

// PropagateSystem writes GlobalTransform relative to the floating origin for
// grid-tracked entities and parented children. It runs after every other
// pass of the frame. Translations come from Settings.Delta, so even entities
// millions of cells away never go through an absolute double.
type PropagateSystem struct {
	Grid  *space.Settings
	Roles *Roles
	Guard *Guard

	Roots ecs.Query[struct {
		*space.GridCell
		*space.Transform
		*space.GlobalTransform
	}]
	Children ecs.Query[struct {
		ecs.EntityId
		*scene.Parent
		*space.Transform
		*space.GlobalTransform
	}]
}

func (s *PropagateSystem) Execute(frame *ecs.UpdateFrame) {
	originId, err := s.Roles.Resolve(Floating)
	if err != nil {
		s.Guard.Fail(metrics.PassPropagate, frame.Index, err)
		return
	}
	originCell := ecs.ReadComponent[space.GridCell](frame.Storage, originId)
	originTransform := ecs.ReadComponent[space.Transform](frame.Storage, originId)
	if originCell == nil || originTransform == nil {
		s.Guard.Fail(metrics.PassPropagate, frame.Index, ErrOriginNotTracked)
		return
	}
	origin := space.SpacePosition{Cell: *originCell, Offset: originTransform.Translation}

	for item := range s.Roots.Values() {
		pos := space.SpacePosition{Cell: *item.GridCell, Offset: item.Transform.Translation}
		item.GlobalTransform.Translation = space.Vec3To32(s.Grid.Delta(pos, origin))
		item.GlobalTransform.Rotation = item.Transform.Rot()
	}

	resolver := scene.Resolver{Grid: s.Grid, Storage: frame.Storage}
	for item := range s.Children.Values() {
		pose, ok := resolver.WorldPose(item.EntityId)
		if !ok {
			continue
		}
		item.GlobalTransform.Translation = space.Vec3To32(s.Grid.Delta(pose.Position, origin))
		item.GlobalTransform.Rotation = space.QuatTo32(pose.Rotation)
	}
}
