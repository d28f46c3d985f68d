// Package snapshot saves and restores the grid state of a world with
// msgpack. Cells are stored as integers and offsets as float32, so a restored
// world is bit-for-bit the captured one.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
	"github.com/vmihailenco/msgpack/v5"
)

const Version = 1

var (
	ErrVersion          = errors.New("snapshot: unsupported version")
	ErrCellEdgeMismatch = errors.New("snapshot: cell edge differs from the running world")
	ErrCorrupt          = errors.New("snapshot: corrupt entity table")
)

type Snapshot struct {
	Version  int      `msgpack:"version"`
	CellEdge float64  `msgpack:"cell_edge"`
	Frame    uint64   `msgpack:"frame"`
	Entities []Entity `msgpack:"entities"`
}

// Entity is one grid-tracked entity or child. For a child Parent indexes an
// earlier entry and Offset is parent-local.
type Entity struct {
	Parent   int            `msgpack:"parent"`
	Cell     space.GridCell `msgpack:"cell"`
	Offset   mgl32.Vec3     `msgpack:"offset"`
	Rotation mgl32.Quat     `msgpack:"rotation"`
	Body     *Body          `msgpack:"body,omitempty"`
	Floating bool           `msgpack:"floating,omitempty"`
	Physics  bool           `msgpack:"physics,omitempty"`
}

type Body struct {
	Kind     physics.BodyKind `msgpack:"kind"`
	Position mgl64.Vec3       `msgpack:"position"`
	Rotation mgl64.Quat       `msgpack:"rotation"`
	Linear   mgl64.Vec3       `msgpack:"linear"`
	Angular  mgl64.Vec3       `msgpack:"angular"`
}

func (b *Body) velocity() physics.Velocity {
	return physics.Velocity{Linear: b.Linear, Angular: b.Angular}
}

type entityView struct {
	ecs.EntityId
	*space.Transform
	Cell     *space.GridCell    `ecs:"optional"`
	Parent   *scene.Parent      `ecs:"optional"`
	Body     *physics.RigidBody `ecs:"optional"`
	Velocity *physics.Velocity  `ecs:"optional"`
	Kind     *physics.BodyKind  `ecs:"optional"`
}

// Capture copies every grid-tracked entity and every child whose parent chain
// reaches one. Parents always precede their children.
func Capture(grid *space.Settings, storage *ecs.Storage, roles *origin.Roles, frame uint64) *Snapshot {
	type captured struct {
		id     ecs.EntityId
		parent ecs.EntityId
		depth  int
		entity Entity
	}

	var all []captured
	for id, item := range ecs.NewView[entityView](storage).Iter() {
		c := captured{id: id, entity: Entity{
			Parent:   -1,
			Offset:   item.Transform.Translation,
			Rotation: item.Transform.Rot(),
			Floating: roles.Is(origin.Floating, id),
			Physics:  roles.Is(origin.Physics, id),
		}}
		switch {
		case item.Cell != nil:
			c.entity.Cell = *item.Cell
		case item.Parent != nil && item.Parent.Ref.Valid():
			c.parent = item.Parent.Ref.Id
			c.depth = chainDepth(storage, id)
		default:
			continue
		}
		if item.Body != nil {
			body := &Body{Position: item.Body.Position, Rotation: item.Body.Rotation}
			if item.Kind != nil {
				body.Kind = *item.Kind
			}
			if item.Velocity != nil {
				body.Linear = item.Velocity.Linear
				body.Angular = item.Velocity.Angular
			}
			c.entity.Body = body
		}
		all = append(all, c)
	}

	slices.SortStableFunc(all, func(a, b captured) int { return a.depth - b.depth })

	snap := &Snapshot{Version: Version, CellEdge: grid.CellEdge(), Frame: frame}
	index := make(map[ecs.EntityId]int, len(all))
	for _, c := range all {
		if c.parent != 0 {
			parent, ok := index[c.parent]
			if !ok {
				continue
			}
			c.entity.Parent = parent
		}
		index[c.id] = len(snap.Entities)
		snap.Entities = append(snap.Entities, c.entity)
	}
	return snap
}

func chainDepth(storage *ecs.Storage, id ecs.EntityId) int {
	d := 0
	for ; d <= scene.MaxDepth; d++ {
		parent := ecs.ReadComponent[scene.Parent](storage, id)
		if parent == nil || !parent.Ref.Valid() {
			break
		}
		id = parent.Ref.Id
	}
	return d
}

// Restore spawns the snapshot's entities into storage and hands the origin
// roles to the restored holders. It returns the new ids in snapshot order.
func (s *Snapshot) Restore(grid *space.Settings, storage *ecs.Storage, roles *origin.Roles) ([]ecs.EntityId, error) {
	if s.CellEdge != grid.CellEdge() {
		return nil, fmt.Errorf("%w: snapshot %v, world %v", ErrCellEdgeMismatch, s.CellEdge, grid.CellEdge())
	}
	for i, e := range s.Entities {
		if e.Parent >= i || e.Parent < -1 {
			return nil, fmt.Errorf("%w: entity %d has parent %d", ErrCorrupt, i, e.Parent)
		}
	}

	refs := make([]*ecs.EntityRef, len(s.Entities))
	ids := make([]ecs.EntityId, len(s.Entities))
	for i, e := range s.Entities {
		transform := space.Transform{Translation: e.Offset, Rotation: e.Rotation}

		var components []any
		switch {
		case e.Body != nil && e.Parent < 0:
			components = physics.Body(e.Cell, transform, e.Body.Kind, e.Body.velocity())
		case e.Body != nil:
			components = physics.ChildBody(refs[e.Parent], transform, e.Body.Kind, e.Body.velocity())
		case e.Parent < 0:
			components = []any{e.Cell, transform, space.GlobalTransform{}}
		default:
			components = []any{scene.Parent{Ref: refs[e.Parent]}, transform, space.GlobalTransform{}}
		}

		ids[i] = storage.Spawn(components...)
		refs[i] = storage.CreateEntityRef(ids[i])
		if e.Body != nil {
			*ecs.ReadComponent[physics.RigidBody](storage, ids[i]) = physics.RigidBody{
				Position: e.Body.Position,
				Rotation: e.Body.Rotation,
			}
		}
		if e.Floating {
			roles.Set(origin.Floating, refs[i])
		}
		if e.Physics {
			roles.Set(origin.Physics, refs[i])
		}
	}
	return ids, nil
}

func (s *Snapshot) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(s)
}

func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}

// Save writes s to path through a temporary file.
func (s *Snapshot) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
