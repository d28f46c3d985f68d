// Package follow moves entities after a target with exponential lag, the way
// a chase camera trails a ship.
package follow

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

// Follower trails Target at Eye, given in the target's rotated frame. The
// follower's own grid position is the smoothing state, so recentering it
// between frames changes nothing.
type Follower struct {
	Target *ecs.EntityRef
	Eye    mgl64.Vec3

	// LagWeight is the share of the remaining distance kept each frame.
	// HalfLife, when positive, replaces it with a frame-rate independent
	// weight.
	LagWeight float64
	HalfLife  float64

	// LookAtTarget turns the follower so its -Z axis faces the target.
	LookAtTarget bool
	Up           mgl64.Vec3

	warned bool
}

// RegisterComponents registers Follower and the grid components.
func RegisterComponents(r *ecs.ComponentRegistry) {
	scene.RegisterComponents(r)
	ecs.RegisterComponent[Follower](r)
}

// System runs before the recenter pass so the followers it moves are
// normalized in the same frame.
type System struct {
	Grid   *space.Settings
	Logger *slog.Logger

	Followers ecs.Query[struct {
		ecs.EntityId
		*Follower
		*space.GridCell
		*space.Transform
	}]
}

func (s *System) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *System) Execute(frame *ecs.UpdateFrame) {
	resolver := scene.Resolver{Grid: s.Grid, Storage: frame.Storage}

	for item := range s.Followers.Values() {
		f := item.Follower

		var target scene.Pose
		ok := f.Target.Valid()
		if ok {
			target, ok = resolver.WorldPose(f.Target.Id)
		}
		if !ok {
			if !f.warned {
				s.logger().Warn("follow target missing", "follower", item.EntityId, "frame", frame.Index)
				f.warned = true
			}
			continue
		}
		f.warned = false

		weight := f.LagWeight
		if f.HalfLife > 0 {
			weight = space.LagWeightForHalfLife(f.HalfLife, frame.DeltaTime)
		}

		tracked := space.Tracked{GridCell: item.GridCell, Transform: item.Transform}
		desired := s.Grid.Translate(target.Position, target.Rotation.Rotate(f.Eye))
		next := s.Grid.Smooth(tracked.Position(), desired, weight)
		tracked.SetPosition(next)

		if f.LookAtTarget {
			dir := s.Grid.Delta(target.Position, next)
			if dir.Len() > 1e-9 {
				item.Transform.Rotation = space.QuatTo32(lookRotation(dir, f.Up))
			}
		}
	}
}

// lookRotation turns -Z onto dir keeping up as close to up as possible.
func lookRotation(dir, up mgl64.Vec3) mgl64.Quat {
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	forward := dir.Normalize()
	right := forward.Cross(up)
	if right.Len() < 1e-9 {
		return mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, -1}, forward)
	}
	right = right.Normalize()
	upward := right.Cross(forward)
	basis := mgl64.Mat3FromCols(right, upward, forward.Mul(-1))
	return mgl64.Mat4ToQuat(basis.Mat4()).Normalize()
}
