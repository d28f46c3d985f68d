package ecs

// System is one stage of the frame. Query and Singleton fields are wired by
// the Scheduler on registration; any other fields persist between frames.
type System interface {
	Execute(frame *UpdateFrame)
}
