package ecs

import (
	"iter"
	"reflect"
)

// ComponentRegistry maps component types to column factories. Every type that
// is spawned on an entity has to be registered first.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
	}
}

// RegisterComponent registers T with the registry. Registering twice is harmless.
func RegisterComponent[T any](r *ComponentRegistry) {
	r.factories[reflect.TypeFor[T]()] = func() iComponentStorage {
		return &columnStorage[T]{}
	}
}

// Registered reports whether t has a column factory.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}

func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

const blockSize = 64

// columnStorage keeps components of one type in fixed-size blocks so pointers
// handed out by Get stay valid while the column grows.
type columnStorage[T any] struct {
	blocks    []*[blockSize]T
	filled    []*[blockSize]bool
	freeSlots []int
	nextIndex int
	live      int
}

func (cs *columnStorage[T]) slot(index int) (int, int, bool) {
	if index < 0 {
		return 0, 0, false
	}
	b, s := index/blockSize, index%blockSize
	return b, s, b < len(cs.blocks)
}

// Append stores item (a T or *T) and returns its slot, or -1 on a type mismatch.
func (cs *columnStorage[T]) Append(item any) int {
	var value T
	switch v := item.(type) {
	case *T:
		value = *v
	case T:
		value = v
	default:
		return -1
	}

	var index int
	if n := len(cs.freeSlots); n > 0 {
		index = cs.freeSlots[n-1]
		cs.freeSlots = cs.freeSlots[:n-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/blockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new([blockSize]T))
			cs.filled = append(cs.filled, new([blockSize]bool))
		}
	}

	b, s, _ := cs.slot(index)
	cs.blocks[b][s] = value
	cs.filled[b][s] = true
	cs.live++
	return index
}

// Get returns a *T for a filled slot and nil otherwise.
func (cs *columnStorage[T]) Get(index int) any {
	b, s, ok := cs.slot(index)
	if !ok || !cs.filled[b][s] {
		return nil
	}
	return &cs.blocks[b][s]
}

// Delete clears the slot and recycles it for the next Append.
func (cs *columnStorage[T]) Delete(index int) {
	b, s, ok := cs.slot(index)
	if !ok || !cs.filled[b][s] {
		return
	}
	var zero T
	cs.blocks[b][s] = zero
	cs.filled[b][s] = false
	cs.freeSlots = append(cs.freeSlots, index)
	cs.live--
}

func (cs *columnStorage[T]) Has(index int) bool {
	b, s, ok := cs.slot(index)
	return ok && cs.filled[b][s]
}

func (cs *columnStorage[T]) Len() int {
	return cs.live
}

func (cs *columnStorage[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < cs.nextIndex; i++ {
			b, s := i/blockSize, i%blockSize
			if cs.filled[b][s] && !yield(i) {
				return
			}
		}
	}
}
