package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
)

// BodyState is the solver's view of one body. Velocity may be nil.
type BodyState struct {
	Id       ecs.EntityId
	Kind     BodyKind
	Body     *RigidBody
	Velocity *Velocity
}

// Solver advances bodies by dt seconds. Positions are relative to the
// physics origin and may be written in place.
type Solver interface {
	Step(dt float64, bodies []BodyState)
}

// SolverSystem runs a Solver between the two sync passes.
type SolverSystem struct {
	Solver Solver

	Bodies ecs.Query[struct {
		ecs.EntityId
		*RigidBody
		Velocity *Velocity `ecs:"optional"`
		Kind     *BodyKind `ecs:"optional"`
	}]

	states []BodyState
}

func (s *SolverSystem) Execute(frame *ecs.UpdateFrame) {
	if s.Solver == nil || frame.DeltaTime <= 0 {
		return
	}

	s.states = s.states[:0]
	for id, item := range s.Bodies.Iter() {
		state := BodyState{Id: id, Body: item.RigidBody, Velocity: item.Velocity}
		if item.Kind != nil {
			state.Kind = *item.Kind
		}
		s.states = append(s.states, state)
	}
	s.Solver.Step(frame.DeltaTime, s.states)
}

// Integrator is a minimal semi-implicit Euler solver: constant gravity on
// dynamic bodies, velocities applied to dynamic and kinematic bodies, static
// bodies left alone. It exists to drive the sync passes, not to collide
// anything.
type Integrator struct {
	Gravity mgl64.Vec3
	// LinearDamping removes this fraction of linear velocity per second.
	LinearDamping float64
}

func (in *Integrator) Step(dt float64, bodies []BodyState) {
	damping := max(0, 1-in.LinearDamping*dt)

	for _, b := range bodies {
		if b.Kind == Static || b.Velocity == nil {
			continue
		}

		v := b.Velocity
		if b.Kind == Dynamic {
			v.Linear = v.Linear.Add(in.Gravity.Mul(dt))
			v.Linear = v.Linear.Mul(damping)
		}
		b.Body.Position = b.Body.Position.Add(v.Linear.Mul(dt))
		b.Body.Rotation = integrateRotation(b.Body.Rotation, v.Angular, dt)
	}
}

// integrateRotation applies angular velocity w (radians per second, world
// axes) to q over dt.
func integrateRotation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	if w.Len() == 0 {
		return q
	}
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	spin := mgl64.Quat{V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}
