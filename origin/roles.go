// Package origin keeps the render-side grid normalized around the floating
// origin and owns the two origin roles shared by the frame passes.
package origin

import (
	"errors"
	"fmt"

	"github.com/plus3/bigspace/ecs"
)

var (
	ErrNoFloatingOrigin = errors.New("origin: no floating origin assigned")
	ErrNoPhysicsOrigin  = errors.New("origin: no physics origin assigned")
	ErrOriginDeleted    = errors.New("origin: origin entity no longer exists")
	ErrOriginNotTracked = errors.New("origin: origin entity is missing required components")
)

// Role names one of the two origin roles.
type Role int

const (
	Floating Role = iota
	Physics
)

func (r Role) String() string {
	switch r {
	case Floating:
		return "floating"
	case Physics:
		return "physics"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Roles holds at most one entity per role. The holder is changed only through
// the setters, so two entities can never claim the same role; an unset or
// deleted holder is reported by the accessors and the passes skip the frame.
type Roles struct {
	floating *ecs.EntityRef
	physics  *ecs.EntityRef
}

func NewRoles() *Roles {
	return &Roles{}
}

// Set gives role to ref, replacing the previous holder.
func (r *Roles) Set(role Role, ref *ecs.EntityRef) {
	switch role {
	case Floating:
		r.SetFloating(ref)
	case Physics:
		r.SetPhysics(ref)
	}
}

// Assign gives role to the live entity id.
func (r *Roles) Assign(storage *ecs.Storage, role Role, id ecs.EntityId) error {
	ref := storage.CreateEntityRef(id)
	if ref == nil {
		return fmt.Errorf("assign %s origin to %d: %w", role, id, ErrOriginDeleted)
	}
	r.Set(role, ref)
	return nil
}

// Clear leaves role unassigned.
func (r *Roles) Clear(role Role) {
	r.Set(role, nil)
}

// Ref returns the reference holding role, possibly nil.
func (r *Roles) Ref(role Role) *ecs.EntityRef {
	switch role {
	case Floating:
		return r.floating
	case Physics:
		return r.physics
	}
	return nil
}

// Resolve returns the current id of the entity holding role.
func (r *Roles) Resolve(role Role) (ecs.EntityId, error) {
	ref := r.Ref(role)
	if ref == nil {
		if role == Physics {
			return 0, ErrNoPhysicsOrigin
		}
		return 0, ErrNoFloatingOrigin
	}
	if !ref.Valid() {
		return 0, fmt.Errorf("%s origin: %w", role, ErrOriginDeleted)
	}
	return ref.Id, nil
}

// Is reports whether id currently holds role.
func (r *Roles) Is(role Role, id ecs.EntityId) bool {
	ref := r.Ref(role)
	return ref.Valid() && ref.Id == id
}

func (r *Roles) SetFloating(ref *ecs.EntityRef) { r.floating = ref }
func (r *Roles) SetPhysics(ref *ecs.EntityRef)  { r.physics = ref }
func (r *Roles) ClearFloating()                 { r.floating = nil }
func (r *Roles) ClearPhysics()                  { r.physics = nil }
