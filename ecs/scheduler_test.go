package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/bigspace/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
	ExecuteCount int
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	for item := range s.Entities.Values() {
		item.Position.X += item.Velocity.DX * float32(frame.DeltaTime)
		item.Position.Y += item.Velocity.DY * float32(frame.DeltaTime)
	}
}

type ScoreSystem struct {
	Score    ecs.Singleton[Score]
	Entities ecs.Query[struct{ *Health }]
}

func (s *ScoreSystem) Execute(frame *ecs.UpdateFrame) {
	total := Score(0)
	for item := range s.Entities.Values() {
		total += Score(item.Health.Current)
	}
	*s.Score.Get() = total
}

// spawner queues a spawn every frame; the entity becomes visible to queries
// only in the next frame.
type spawner struct {
	Entities ecs.Query[struct{ *Health }]
	seen     []int
}

func (s *spawner) Execute(frame *ecs.UpdateFrame) {
	s.seen = append(s.seen, s.Entities.Len())
	frame.Commands.Spawn(Health{Current: 1})
}

func TestSchedulerRunsSystemsInOrder(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	ecs.NewSingleton[Score](storage)
	scheduler := ecs.NewScheduler(storage)

	movement := &MovementSystem{}
	score := &ScoreSystem{}
	scheduler.Register(movement)
	scheduler.Register(score)

	id := storage.Spawn(Position{}, Velocity{DX: 1, DY: 2})
	storage.Spawn(Health{Current: 50})
	storage.Spawn(Health{Current: 75})

	scheduler.Once(0.5)
	scheduler.Once(0.5)

	assert.Equal(t, 2, movement.ExecuteCount)
	assert.Equal(t, Position{X: 1, Y: 2}, *ecs.ReadComponent[Position](storage, id))
	assert.Equal(t, Score(125), *score.Score.Get())
	assert.Same(t, storage, scheduler.Storage())
}

func TestSchedulerFlushesCommandsAfterFrame(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)

	system := &spawner{}
	scheduler.Register(system)

	scheduler.Once(0)
	scheduler.Once(0)
	scheduler.Once(0)

	assert.Equal(t, []int{0, 1, 2}, system.seen)
}

func TestSchedulerStats(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&MovementSystem{})
	scheduler.Register(&spawner{})

	for range 3 {
		scheduler.Once(0)
	}

	stats := scheduler.GetStats()
	assert.Equal(t, 2, stats.SystemCount)
	assert.Equal(t, uint64(3), stats.Frames)
	assert.Equal(t, int64(6), stats.TotalExecutions)
	require.Len(t, stats.Systems, 2)
	assert.Equal(t, "MovementSystem", stats.Systems[0].Name)
	assert.Equal(t, "spawner", stats.Systems[1].Name)
	for _, s := range stats.Systems {
		assert.Equal(t, int64(3), s.ExecutionCount)
		assert.LessOrEqual(t, s.MinDuration, s.MaxDuration)
		assert.Equal(t, s.TotalDuration/3, s.AvgDuration)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)
	system := &MovementSystem{}
	scheduler.Register(system)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx, time.Millisecond)

	assert.Positive(t, system.ExecuteCount)
}
