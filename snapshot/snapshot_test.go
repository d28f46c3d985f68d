package snapshot_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/snapshot"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage() *ecs.Storage {
	registry := ecs.NewComponentRegistry()
	physics.RegisterComponents(registry)
	return ecs.NewStorage(registry)
}

func TestCaptureRestoreIsExact(t *testing.T) {
	grid := space.MustSettings(1000)
	storage := newStorage()
	roles := origin.NewRoles()

	far := space.Cell(1<<62, -(1 << 62), 123456789)
	ship := storage.Spawn(physics.Body(far, space.NewTransform(mgl32.Vec3{499.99997, -0.001, 3}), physics.Dynamic, physics.Velocity{
		Linear:  mgl64.Vec3{1, 2, 3},
		Angular: mgl64.Vec3{0, 0.5, 0},
	})...)
	shipRef := storage.CreateEntityRef(ship)
	ecs.ReadComponent[physics.RigidBody](storage, ship).Position = mgl64.Vec3{0.125, 0, 0}
	beacon := storage.Spawn(space.Cell(-5, 0, 0), space.NewTransform(mgl32.Vec3{1, 1, 1}), space.GlobalTransform{})
	storage.Spawn(scene.Parent{Ref: shipRef}, space.NewTransform(mgl32.Vec3{0, 2, 0}), space.GlobalTransform{})
	storage.Spawn(space.NewTransform(mgl32.Vec3{}))

	roles.Set(origin.Physics, shipRef)
	require.NoError(t, roles.Assign(storage, origin.Floating, beacon))

	snap := snapshot.Capture(grid, storage, roles, 42)
	require.Len(t, snap.Entities, 3, "untracked entities are left out")

	var buf bytes.Buffer
	require.NoError(t, snap.Encode(&buf))
	decoded, err := snapshot.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)

	restoredStorage := newStorage()
	restoredRoles := origin.NewRoles()
	ids, err := decoded.Restore(grid, restoredStorage, restoredRoles)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	shipId, err := restoredRoles.Resolve(origin.Physics)
	require.NoError(t, err)
	assert.Equal(t, far, *ecs.ReadComponent[space.GridCell](restoredStorage, shipId))
	assert.Equal(t, mgl32.Vec3{499.99997, -0.001, 3}, ecs.ReadComponent[space.Transform](restoredStorage, shipId).Translation)
	assert.Equal(t, mgl64.Vec3{0.125, 0, 0}, ecs.ReadComponent[physics.RigidBody](restoredStorage, shipId).Position)
	assert.Equal(t, mgl64.Vec3{0, 0.5, 0}, ecs.ReadComponent[physics.Velocity](restoredStorage, shipId).Angular)

	beaconId, err := restoredRoles.Resolve(origin.Floating)
	require.NoError(t, err)
	assert.Equal(t, space.Cell(-5, 0, 0), *ecs.ReadComponent[space.GridCell](restoredStorage, beaconId))

	resolver := scene.Resolver{Grid: grid, Storage: restoredStorage}
	var childId ecs.EntityId
	for _, id := range ids {
		if ecs.ReadComponent[scene.Parent](restoredStorage, id) != nil {
			childId = id
		}
	}
	pose, ok := resolver.WorldPose(childId)
	require.True(t, ok)
	assert.Equal(t, far, pose.Position.Cell)
}

func TestRestoreRejectsOtherCellEdge(t *testing.T) {
	storage := newStorage()
	storage.Spawn(space.Cell(1, 2, 3), space.NewTransform(mgl32.Vec3{}))
	snap := snapshot.Capture(space.MustSettings(1000), storage, origin.NewRoles(), 0)

	_, err := snap.Restore(space.MustSettings(500), newStorage(), origin.NewRoles())
	assert.ErrorIs(t, err, snapshot.ErrCellEdgeMismatch)
}

func TestRestoreRejectsForwardParent(t *testing.T) {
	snap := &snapshot.Snapshot{
		Version:  snapshot.Version,
		CellEdge: 1000,
		Entities: []snapshot.Entity{{Parent: 1}, {Parent: -1}},
	}
	_, err := snap.Restore(space.MustSettings(1000), newStorage(), origin.NewRoles())
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func TestDecodeRejectsVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&snapshot.Snapshot{Version: 99}).Encode(&buf))

	_, err := snapshot.Decode(&buf)
	assert.ErrorIs(t, err, snapshot.ErrVersion)
}

func TestSaveLoad(t *testing.T) {
	storage := newStorage()
	storage.Spawn(space.Cell(7, 7, 7), space.NewTransform(mgl32.Vec3{1, 2, 3}))
	snap := snapshot.Capture(space.MustSettings(1000), storage, origin.NewRoles(), 3)

	path := filepath.Join(t.TempDir(), "world.msgpack")
	require.NoError(t, snap.Save(path))

	loaded, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}
