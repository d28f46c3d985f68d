package physics_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0

type world struct {
	grid       *space.Settings
	storage    *ecs.Storage
	roles      *origin.Roles
	diag       *origin.Diagnostics
	integrator *physics.Integrator
	scheduler  *ecs.Scheduler
}

func newWorld(t *testing.T) *world {
	t.Helper()
	registry := ecs.NewComponentRegistry()
	physics.RegisterComponents(registry)

	w := &world{
		grid:       space.MustSettings(1000),
		storage:    ecs.NewStorage(registry),
		roles:      origin.NewRoles(),
		diag:       &origin.Diagnostics{},
		integrator: &physics.Integrator{},
	}
	guard := &origin.Guard{Diagnostics: w.diag}
	w.scheduler = ecs.NewScheduler(w.storage)
	w.scheduler.Register(&physics.PreSyncSystem{Grid: w.grid, Roles: w.roles, Guard: guard})
	w.scheduler.Register(&physics.SolverSystem{Solver: w.integrator})
	w.scheduler.Register(&physics.PostSyncSystem{Grid: w.grid, Roles: w.roles, Guard: guard})
	return w
}

func (w *world) body(cell space.GridCell, offset mgl32.Vec3, velocity mgl64.Vec3) *ecs.EntityRef {
	id := w.storage.Spawn(physics.Body(cell, space.NewTransform(offset), physics.Dynamic, physics.Velocity{Linear: velocity})...)
	return w.storage.CreateEntityRef(id)
}

func (w *world) position(ref *ecs.EntityRef) space.SpacePosition {
	return space.SpacePosition{
		Cell:   *ecs.ReadComponent[space.GridCell](w.storage, ref.Id),
		Offset: ecs.ReadComponent[space.Transform](w.storage, ref.Id).Translation,
	}
}

func (w *world) rigid(ref *ecs.EntityRef) *physics.RigidBody {
	return ecs.ReadComponent[physics.RigidBody](w.storage, ref.Id)
}

func assertVec(t *testing.T, expected, actual mgl64.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, expected[i], actual[i], delta, "axis %d: expected %v, got %v", i, expected, actual)
	}
}

func TestBootstrapRezeroesSolverFrame(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(10, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	rock := w.body(space.Cell(11, 0, 0), mgl32.Vec3{-250, 0, 0}, mgl64.Vec3{})
	w.roles.SetPhysics(ship)

	w.rigid(ship).Position = mgl64.Vec3{5, 5, 5}
	w.scheduler.Once(dt)

	assert.Equal(t, mgl64.Vec3{}, w.rigid(ship).Position)
	assert.Equal(t, mgl64.Vec3{750, 0, 0}, w.rigid(rock).Position)

	prev := ecs.ReadComponent[physics.PrevSpacePosition](w.storage, ship.Id)
	require.NotNil(t, prev, "cache is added when the frame flushes")
	assert.Equal(t, space.Cell(10, 0, 0), prev.Position.Cell)
	assert.Equal(t, 2, w.diag.Snapshot().Mirrored)
}

func TestOriginTeleportShiftsOtherBodies(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(10, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	rock := w.body(space.Cell(11, 0, 0), mgl32.Vec3{-250, 0, 0}, mgl64.Vec3{})
	w.roles.SetPhysics(ship)
	w.scheduler.Once(dt)

	*ecs.ReadComponent[space.GridCell](w.storage, ship.Id) = space.Cell(11, 0, 0)
	w.scheduler.Once(dt)

	report := w.diag.Snapshot()
	assert.Equal(t, mgl64.Vec3{1000, 0, 0}, report.Shift)
	assert.Equal(t, 1, report.Mirrored, "only the teleported origin changed on the grid")
	assert.Equal(t, mgl64.Vec3{}, w.rigid(ship).Position)
	assert.Equal(t, mgl64.Vec3{-250, 0, 0}, w.rigid(rock).Position)
	assert.Equal(t, space.Cell(11, 0, 0), ecs.ReadComponent[physics.PrevSpacePosition](w.storage, ship.Id).Position.Cell)
}

func TestSolverFrameMatchesGridDelta(t *testing.T) {
	w := newWorld(t)
	rng := rand.New(rand.NewPCG(3, 5))

	ship := w.body(space.Cell(1<<40, -1<<40, 7), mgl32.Vec3{12.5, -400, 3}, mgl64.Vec3{})
	w.roles.SetPhysics(ship)

	var bodies []*ecs.EntityRef
	for range 40 {
		cell := space.Cell(1<<40+rng.Int64N(2000)-1000, -1<<40+rng.Int64N(2000)-1000, rng.Int64N(20))
		offset := mgl32.Vec3{
			float32(rng.Float64()*1000 - 500),
			float32(rng.Float64()*1000 - 500),
			float32(rng.Float64()*1000 - 500),
		}
		bodies = append(bodies, w.body(cell, offset, mgl64.Vec3{}))
	}

	for range 3 {
		w.scheduler.Once(dt)
	}

	originPos := w.position(ship)
	for _, b := range bodies {
		pos := w.position(b)
		assertVec(t, w.grid.Delta(pos, originPos), w.rigid(b).Position, 1e-6)
		assertVec(t, w.grid.PositionToDouble(pos.Sub(originPos)), w.rigid(b).Position, 1e-3)
	}
}

func TestRenderEditsAreMirrored(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(10, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	rock := w.body(space.Cell(11, 0, 0), mgl32.Vec3{-250, 0, 0}, mgl64.Vec3{})
	w.roles.SetPhysics(ship)
	w.scheduler.Once(dt)

	transform := ecs.ReadComponent[space.Transform](w.storage, rock.Id)
	transform.Translation = mgl32.Vec3{100, 0, 0}
	transform.Rotation = mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	w.scheduler.Once(dt)

	assert.Equal(t, mgl64.Vec3{1100, 0, 0}, w.rigid(rock).Position)
	assert.InDelta(t, math.Sqrt2/2, w.rigid(rock).Rotation.W, 1e-6)
	assert.Equal(t, 1, w.diag.Snapshot().Mirrored)

	w.scheduler.Once(dt)
	assert.Equal(t, 0, w.diag.Snapshot().Mirrored)
}

func TestSolverStepIsWrittenBack(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(1e12, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	probe := w.body(space.Cell(1e12+1, 0, 0), mgl32.Vec3{0.25, 0, 0}, mgl64.Vec3{0.5, 0, 0})
	w.roles.SetPhysics(ship)

	w.scheduler.Once(dt)

	assert.Equal(t, space.SpacePosition{Cell: space.Cell(1e12+1, 0, 0), Offset: mgl32.Vec3{0.75, 0, 0}}, w.position(probe))

	w.scheduler.Once(dt)
	assert.Equal(t, mgl32.Vec3{1.25, 0, 0}, w.position(probe).Offset)
	assert.Equal(t, 0, w.diag.Snapshot().Mirrored, "solver writes are not mirrored back")
}

func TestMovingOriginKeepsFrameConsistent(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(0, 0, 0), mgl32.Vec3{}, mgl64.Vec3{600, 0, 0})
	buoy := w.body(space.Cell(3, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	drone := w.body(space.Cell(-2, 1, 0), mgl32.Vec3{}, mgl64.Vec3{0, 0, 40})
	w.roles.SetPhysics(ship)

	for frame := range 20 {
		w.scheduler.Once(dt)

		originPos := w.position(ship)
		for _, b := range []*ecs.EntityRef{buoy, drone} {
			expected := w.rigid(b).Position.Sub(w.rigid(ship).Position)
			assertVec(t, expected, w.grid.Delta(w.position(b), originPos), 1e-3)
		}
		if frame > 0 {
			assert.Equal(t, mgl64.Vec3{600, 0, 0}, w.diag.Snapshot().Shift)
		}
	}

	assert.Equal(t, space.Cell(12, 0, 0), w.position(ship).Cell)
	assertVec(t, mgl64.Vec3{-9000, 0, 0}, w.grid.Delta(w.position(buoy), w.position(ship)), 1e-3)
}

func TestChildBodyIsReparented(t *testing.T) {
	w := newWorld(t)
	ship := w.body(space.Cell(0, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	w.roles.SetPhysics(ship)

	hull := w.storage.Spawn(physics.Body(
		space.Cell(1, 0, 0),
		space.Transform{Rotation: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0})},
		physics.Dynamic,
		physics.Velocity{Linear: mgl64.Vec3{10, 0, 0}},
	)...)
	hullRef := w.storage.CreateEntityRef(hull)
	turret := w.storage.Spawn(physics.ChildBody(
		hullRef,
		space.NewTransform(mgl32.Vec3{0, 0, 5}),
		physics.Dynamic,
		physics.Velocity{Linear: mgl64.Vec3{0, 1, 0}},
	)...)
	turretRef := w.storage.CreateEntityRef(turret)

	w.scheduler.Once(dt)

	assert.Equal(t, mgl32.Vec3{10, 0, 0}, w.position(hullRef).Offset)

	local := ecs.ReadComponent[space.Transform](w.storage, turretRef.Id)
	assert.InDelta(t, 0, local.Translation.X(), 1e-4)
	assert.InDelta(t, 1, local.Translation.Y(), 1e-4)
	assert.InDelta(t, -5, local.Translation.Z(), 1e-4)
	assert.InDelta(t, 1, math.Abs(float64(local.Rotation.W)), 1e-5)

	assertVec(t, mgl64.Vec3{1005, 1, 0}, w.rigid(turretRef).Position, 1e-4)
}

func TestMissingPhysicsOriginSkipsSync(t *testing.T) {
	w := newWorld(t)
	rock := w.body(space.Cell(1, 0, 0), mgl32.Vec3{}, mgl64.Vec3{5, 0, 0})
	w.rigid(rock).Position = mgl64.Vec3{42, 0, 0}

	w.scheduler.Once(dt)

	report := w.diag.Snapshot()
	assert.Equal(t, uint64(1), report.Skipped[metrics.PassPreSync])
	assert.Equal(t, uint64(1), report.Skipped[metrics.PassPostSync])
	assert.Equal(t, mgl32.Vec3{}, w.position(rock).Offset, "grid is untouched")
	assert.False(t, ecs.ReadComponent[physics.SyncState](w.storage, rock.Id).Valid)
}

func TestRoleHandoverBootstrapsAgain(t *testing.T) {
	w := newWorld(t)
	a := w.body(space.Cell(0, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	b := w.body(space.Cell(2, 0, 0), mgl32.Vec3{}, mgl64.Vec3{})
	w.roles.SetPhysics(a)
	w.scheduler.Once(dt)
	require.NotNil(t, ecs.ReadComponent[physics.PrevSpacePosition](w.storage, a.Id))

	w.roles.SetPhysics(b)
	w.scheduler.Once(dt)

	assert.Nil(t, ecs.ReadComponent[physics.PrevSpacePosition](w.storage, a.Id))
	assert.NotNil(t, ecs.ReadComponent[physics.PrevSpacePosition](w.storage, b.Id))
	assert.Equal(t, mgl64.Vec3{}, w.rigid(b).Position)
	assert.Equal(t, mgl64.Vec3{-2000, 0, 0}, w.rigid(a).Position)
}

func TestIntegrator(t *testing.T) {
	in := &physics.Integrator{Gravity: mgl64.Vec3{0, -10, 0}}

	dynamic := &physics.RigidBody{Rotation: mgl64.QuatIdent()}
	kinematic := &physics.RigidBody{Rotation: mgl64.QuatIdent()}
	static := &physics.RigidBody{Rotation: mgl64.QuatIdent()}
	spinning := &physics.RigidBody{Rotation: mgl64.QuatIdent()}

	bodies := []physics.BodyState{
		{Kind: physics.Dynamic, Body: dynamic, Velocity: &physics.Velocity{}},
		{Kind: physics.Kinematic, Body: kinematic, Velocity: &physics.Velocity{Linear: mgl64.Vec3{1, 0, 0}}},
		{Kind: physics.Static, Body: static, Velocity: &physics.Velocity{Linear: mgl64.Vec3{1, 0, 0}}},
		{Kind: physics.Kinematic, Body: spinning, Velocity: &physics.Velocity{Angular: mgl64.Vec3{0, 0, math.Pi / 2}}},
	}

	for range 1000 {
		in.Step(0.001, bodies)
	}

	assert.InDelta(t, -5, dynamic.Position.Y(), 0.01)
	assert.InDelta(t, 1, kinematic.Position.X(), 1e-9)
	assert.Equal(t, mgl64.Vec3{}, static.Position)

	turned := spinning.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	assertVec(t, mgl64.Vec3{0, 1, 0}, turned, 1e-3)
	assert.Equal(t, "static", physics.Static.String())
}
