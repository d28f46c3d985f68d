package ecs

// UpdateFrame is handed to every system during one Scheduler.Once call.
type UpdateFrame struct {
	Index     uint64
	DeltaTime float64
	Commands  *Commands
	Storage   *Storage
}

func newUpdateFrame(index uint64, dt float64, storage *Storage) *UpdateFrame {
	return &UpdateFrame{
		Index:     index,
		DeltaTime: dt,
		Commands:  newCommands(),
		Storage:   storage,
	}
}
