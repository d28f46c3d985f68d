package ecs_test

import (
	"testing"

	"github.com/plus3/bigspace/ecs"
	"github.com/stretchr/testify/assert"
)

func TestQueryRequiresExecute(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	query := ecs.NewQuery[struct{ *Position }](storage)

	assert.Panics(t, func() {
		for range query.Iter() {
		}
	})
	assert.Panics(t, func() {
		for range query.Values() {
		}
	})
}

func TestQueryCachesMatchesPerExecute(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	query := ecs.NewQuery[struct {
		ecs.EntityId
		*Position
	}](storage)

	first := storage.Spawn(Position{X: 1})
	query.Execute()
	assert.Equal(t, 1, query.Len())

	storage.Spawn(Position{X: 2}, Velocity{})
	assert.Equal(t, 1, query.Len(), "new entities show up on the next Execute")

	query.Execute()
	assert.Equal(t, 2, query.Len())

	ids := []ecs.EntityId{}
	for id, item := range query.Iter() {
		assert.Equal(t, id, item.EntityId)
		ids = append(ids, id)
	}
	assert.Contains(t, ids, first)

	assert.NotNil(t, query.Get(first))
}

func TestQueryEarlyBreak(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	for i := range 10 {
		storage.Spawn(Position{X: float32(i)})
	}

	query := ecs.NewQuery[struct{ *Position }](storage)
	query.Execute()

	count := 0
	for range query.Values() {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}
