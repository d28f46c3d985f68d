package ecs_test

import (
	"reflect"
	"runtime"
	"testing"

	"github.com/plus3/bigspace/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityRefBasicLifecycle(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{X: 1, Y: 2})
	ref := storage.CreateEntityRef(id)
	require.NotNil(t, ref)
	assert.Equal(t, id, ref.Id)
	assert.NotNil(t, ref.Archetype)

	resolved, ok := storage.ResolveEntityRef(ref)
	assert.True(t, ok)
	assert.Equal(t, id, resolved)

	assert.True(t, storage.InvalidateEntityRef(ref))
	assert.False(t, storage.InvalidateEntityRef(ref))
	_, ok = storage.ResolveEntityRef(ref)
	assert.False(t, ok)
	assert.True(t, storage.Alive(id), "invalidating a ref keeps the entity")
}

func TestEntityRefIdempotency(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{X: 5, Y: 10})
	assert.Same(t, storage.CreateEntityRef(id), storage.CreateEntityRef(id))
	assert.Nil(t, storage.CreateEntityRef(ecs.NewEntityId(id.ArchetypeId(), 99)))
}

func TestEntityRefFollowsArchetypeMoves(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{X: 1})
	ref := storage.CreateEntityRef(id)

	moved := storage.AddComponent(id, Velocity{DX: 2})
	assert.Equal(t, moved, ref.Id)
	assert.Equal(t, moved.ArchetypeId(), ref.Archetype.ID())
	assert.Same(t, ref, storage.CreateEntityRef(moved))

	back := storage.RemoveComponent(moved, reflect.TypeFor[Velocity]())
	assert.Equal(t, back, ref.Id)

	storage.Delete(back)
	assert.False(t, ref.Valid())
	assert.Equal(t, ecs.EntityId(0), ref.Id)
}

func TestEntityRefNil(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	var ref *ecs.EntityRef
	assert.False(t, ref.Valid())
	_, ok := storage.ResolveEntityRef(ref)
	assert.False(t, ok)
	assert.False(t, storage.InvalidateEntityRef(ref))
}

func TestEntityRefRecreatedAfterCollection(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{})
	storage.CreateEntityRef(id)
	runtime.GC()

	ref := storage.CreateEntityRef(id)
	require.NotNil(t, ref)
	assert.Equal(t, id, ref.Id)
}
