package debugui

import (
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/space"
)

// Sources is the world state the panels read. The panels render after the
// frame's passes, on the goroutine that runs the scheduler.
type Sources struct {
	Storage     *ecs.Storage
	Scheduler   *ecs.Scheduler
	Grid        *space.Settings
	Roles       *origin.Roles
	Diagnostics *origin.Diagnostics
}

// Selection is the entity shared by the body table, the inspector and the
// origin panel. It holds an EntityRef so it survives archetype moves.
type Selection struct {
	ref *ecs.EntityRef
}

func (s *Selection) Select(storage *ecs.Storage, id ecs.EntityId) {
	s.ref = storage.CreateEntityRef(id)
}

func (s *Selection) Clear() {
	s.ref = nil
}

// ID returns the selected entity, or false when nothing live is selected.
func (s *Selection) ID() (ecs.EntityId, bool) {
	if !s.ref.Valid() {
		return 0, false
	}
	return s.ref.Id, true
}
