// Package demo builds the scene the commands run: a ship cruising between
// bodies scattered over a huge volume, trailed by a chase camera. The camera
// is the floating origin and the ship the physics origin, so both roles move
// every frame.
package demo

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/follow"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

type Options struct {
	Bodies int
	// Extent is the half width of the cube the bodies are scattered in.
	Extent float64
	Seed   uint64
	// StaticShare is the fraction of bodies that never move.
	StaticShare float64
}

// Scene holds references to the entities the commands steer or watch.
type Scene struct {
	Ship   *ecs.EntityRef
	Camera *ecs.EntityRef
	Bodies []*ecs.EntityRef
}

// Populate spawns the scene and assigns both origin roles.
func Populate(grid *space.Settings, storage *ecs.Storage, roles *origin.Roles, opts Options) Scene {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	shipId := storage.Spawn(physics.Body(space.GridCell{}, space.NewTransform(mgl32.Vec3{}), physics.Dynamic, physics.Velocity{})...)
	ship := storage.CreateEntityRef(shipId)

	// A mast that turns with the ship through the scene graph.
	storage.Spawn(scene.Parent{Ref: ship}, space.NewTransform(mgl32.Vec3{0, 12, 0}), space.GlobalTransform{})

	cameraId := storage.Spawn(
		space.GridCell{},
		space.NewTransform(mgl32.Vec3{0, 40, 120}),
		space.GlobalTransform{},
		follow.Follower{
			Target:       ship,
			Eye:          mgl64.Vec3{0, 40, 120},
			HalfLife:     0.25,
			LookAtTarget: true,
		},
	)
	camera := storage.CreateEntityRef(cameraId)

	s := Scene{Ship: ship, Camera: camera}
	for range opts.Bodies {
		p := mgl64.Vec3{
			(rng.Float64()*2 - 1) * opts.Extent,
			(rng.Float64()*2 - 1) * opts.Extent * 0.01,
			(rng.Float64()*2 - 1) * opts.Extent,
		}
		pos := grid.PositionFromDouble(p)

		kind := physics.Dynamic
		var velocity physics.Velocity
		if rng.Float64() < opts.StaticShare {
			kind = physics.Static
		} else {
			velocity.Linear = randomDirection(rng).Mul(rng.Float64() * 50)
			velocity.Angular = mgl64.Vec3{0, rng.Float64() - 0.5, 0}
		}

		id := storage.Spawn(physics.Body(pos.Cell, space.NewTransform(pos.Offset), kind, velocity)...)
		s.Bodies = append(s.Bodies, storage.CreateEntityRef(id))
	}

	roles.SetFloating(camera)
	roles.SetPhysics(ship)
	return s
}

func randomDirection(rng *rand.Rand) mgl64.Vec3 {
	z := rng.Float64()*2 - 1
	a := rng.Float64() * 2 * math.Pi
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(a), r * math.Sin(a), z}
}

// Autopilot steers the ship from body to body. It only sets the ship's
// velocity; the solver moves it and the sync passes carry the motion back to
// the grid.
type Autopilot struct {
	Grid      *space.Settings
	Ship      *ecs.EntityRef
	Waypoints []*ecs.EntityRef
	// Cruise is the top speed in units per second.
	Cruise float64
	// Arrive is the distance at which the next waypoint is picked.
	Arrive float64

	next    int
	Arrived int
}

func (a *Autopilot) Execute(frame *ecs.UpdateFrame) {
	if !a.Ship.Valid() || len(a.Waypoints) == 0 {
		return
	}
	resolver := scene.Resolver{Grid: a.Grid, Storage: frame.Storage}
	ship, ok := resolver.WorldPose(a.Ship.Id)
	if !ok {
		return
	}
	velocity := ecs.ReadComponent[physics.Velocity](frame.Storage, a.Ship.Id)
	if velocity == nil {
		return
	}

	for range len(a.Waypoints) {
		target := a.Waypoints[a.next%len(a.Waypoints)]
		if !target.Valid() {
			a.next++
			continue
		}
		pose, ok := resolver.WorldPose(target.Id)
		if !ok {
			a.next++
			continue
		}

		d := a.Grid.Delta(pose.Position, ship.Position)
		dist := d.Len()
		if dist <= a.Arrive {
			a.next++
			a.Arrived++
			continue
		}

		speed := a.Cruise
		if frame.DeltaTime > 0 {
			speed = min(speed, dist/frame.DeltaTime)
		}
		velocity.Linear = d.Mul(speed / dist)
		velocity.Angular = mgl64.Vec3{0, 0.5, 0}
		return
	}
	velocity.Linear = mgl64.Vec3{}
}

// Waypoint returns the index of the body the autopilot is heading for.
func (a *Autopilot) Waypoint() int {
	if len(a.Waypoints) == 0 {
		return 0
	}
	return a.next % len(a.Waypoints)
}
