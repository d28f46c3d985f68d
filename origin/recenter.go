package origin

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/space"
)

// RecenterSystem carries every grid-tracked entity's offset back into its
// cell. Each entity is normalized in place, so the pass costs one visit per
// tracked entity and relative positions are unchanged. Once it has run the
// floating origin sits in [-edge/2, +edge/2) of its own cell.
type RecenterSystem struct {
	Grid  *space.Settings
	Roles *Roles
	Guard *Guard

	Tracked ecs.Query[struct {
		ecs.EntityId
		*space.GridCell
		*space.Transform
	}]
}

func (s *RecenterSystem) Execute(frame *ecs.UpdateFrame) {
	start := time.Now()

	originId, err := s.Roles.Resolve(Floating)
	if err != nil {
		s.Guard.Fail(metrics.PassRecenter, frame.Index, err)
		return
	}
	if !frame.Storage.HasComponent(originId, gridCellType) || !frame.Storage.HasComponent(originId, transformType) {
		s.Guard.Fail(metrics.PassRecenter, frame.Index, ErrOriginNotTracked)
		return
	}

	var (
		carries   int
		maxOffset float64
		origin    space.SpacePosition
	)
	for item := range s.Tracked.Values() {
		maxOffset = max(maxOffset, largestComponent(item.Transform.Translation))

		if !s.Grid.InCell(item.Transform.Translation) {
			tracked := space.Tracked{GridCell: item.GridCell, Transform: item.Transform}
			tracked.SetPosition(s.Grid.Normalize(tracked.Position()))
			carries++
		}
		if item.EntityId == originId {
			origin = space.SpacePosition{Cell: *item.GridCell, Offset: item.Transform.Translation}
		}
	}

	took := time.Since(start)
	s.Guard.MetricsSink().ObserveRecenter(s.Tracked.Len(), carries, maxOffset, took)
	s.Guard.Report().Update(func(r *Report) {
		r.Frame = frame.Index
		r.Floating = OriginReport{Set: true, Position: origin}
		r.Tracked = s.Tracked.Len()
		r.Carries = carries
		r.MaxOffset = maxOffset
	})
}

func largestComponent(v mgl32.Vec3) float64 {
	return float64(max(abs32(v[0]), abs32(v[1]), abs32(v[2])))
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
