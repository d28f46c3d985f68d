package debugui

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, float32(0), h.Mean())
	assert.Empty(t, h.Ordered(nil))

	h.Push(1)
	h.Push(2)
	assert.Equal(t, []float32{1, 2}, h.Ordered(nil))
	assert.Equal(t, float32(1.5), h.Mean())

	h.Push(3)
	h.Push(4)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []float32{2, 3, 4}, h.Ordered(nil))
	assert.Equal(t, float32(3), h.Mean())
	assert.Equal(t, float32(4), h.Max())
}

type fixture struct {
	src  Sources
	ship ecs.EntityId
	rock ecs.EntityId
	mast ecs.EntityId
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := ecs.NewComponentRegistry()
	physics.RegisterComponents(registry)
	RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	f := &fixture{src: Sources{
		Storage:     storage,
		Scheduler:   ecs.NewScheduler(storage),
		Grid:        space.MustSettings(1000),
		Roles:       origin.NewRoles(),
		Diagnostics: &origin.Diagnostics{},
	}}
	f.ship = storage.Spawn(physics.Body(space.Cell(5, 0, 0), space.NewTransform(mgl32.Vec3{100, 0, 0}), physics.Dynamic, physics.Velocity{})...)
	f.rock = storage.Spawn(space.Cell(-2, 1, 0), space.NewTransform(mgl32.Vec3{}))

	shipRef := storage.CreateEntityRef(f.ship)
	f.mast = storage.Spawn(scene.Parent{Ref: shipRef}, space.NewTransform(mgl32.Vec3{0, 10, 0}))

	require.NoError(t, f.src.Roles.Assign(storage, origin.Floating, f.ship))
	require.NoError(t, f.src.Roles.Assign(storage, origin.Physics, f.ship))
	return f
}

func TestBuildBodyRows(t *testing.T) {
	f := newFixture(t)
	rows := BuildBodyRows(f.src.Grid, f.src.Storage, f.src.Roles)
	require.Len(t, rows, 3)

	byId := map[ecs.EntityId]BodyRow{}
	for _, row := range rows {
		byId[row.ID] = row
	}

	ship := byId[f.ship]
	assert.True(t, ship.HasBody)
	assert.Equal(t, physics.Dynamic, ship.Kind)
	assert.Equal(t, "floating,physics", ship.Roles)
	assert.Zero(t, ship.Distance)

	rock := byId[f.rock]
	assert.False(t, rock.HasBody)
	assert.Empty(t, rock.Roles)
	expected := mgl64.Vec3{-7100, 1000, 0}.Len()
	assert.InDelta(t, expected, rock.Distance, 1e-6)

	mast := byId[f.mast]
	assert.True(t, mast.Child)
	assert.Equal(t, space.Cell(5, 0, 0), mast.Position.Cell)
	assert.InDelta(t, 10, mast.Distance, 1e-6)
}

func TestBodyRowsWithoutOrigin(t *testing.T) {
	f := newFixture(t)
	f.src.Roles.ClearFloating()

	for _, row := range BuildBodyRows(f.src.Grid, f.src.Storage, f.src.Roles) {
		assert.Equal(t, float64(-1), row.Distance)
	}
}

func TestSortFilterPage(t *testing.T) {
	rows := []BodyRow{
		{ID: 3, Position: space.SpacePosition{Cell: space.Cell(0, 0, 9)}, Distance: 5, Roles: "floating"},
		{ID: 1, Position: space.SpacePosition{Cell: space.Cell(2, 0, 0)}, Distance: 50},
		{ID: 2, Position: space.SpacePosition{Cell: space.Cell(-1, 0, 0)}, Distance: 5},
	}

	ids := func(rows []BodyRow) []ecs.EntityId {
		var out []ecs.EntityId
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		column    int
		ascending bool
		expected  []ecs.EntityId
	}{
		{"id", ColumnID, true, []ecs.EntityId{1, 2, 3}},
		{"cell", ColumnCell, true, []ecs.EntityId{2, 3, 1}},
		{"distance ties by id", ColumnDistance, true, []ecs.EntityId{2, 3, 1}},
		{"distance descending", ColumnDistance, false, []ecs.EntityId{1, 3, 2}},
		{"roles", ColumnRoles, false, []ecs.EntityId{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortBodyRows(rows, tt.column, tt.ascending)
			assert.Equal(t, tt.expected, ids(rows))
		})
	}

	SortBodyRows(rows, ColumnID, true)
	assert.Len(t, FilterBodyRows(rows, ""), 3)
	assert.Equal(t, []ecs.EntityId{3}, ids(FilterBodyRows(rows, "FLOAT")))
	assert.Equal(t, []ecs.EntityId{2}, ids(FilterBodyRows(rows, "(-1,")))

	page, pages := Page(rows, 1, 2)
	assert.Equal(t, 2, pages)
	assert.Equal(t, []ecs.EntityId{3}, ids(page))

	page, pages = Page(rows, 7, 2)
	assert.Equal(t, 2, pages)
	assert.Equal(t, []ecs.EntityId{3}, ids(page))

	page, pages = Page(nil, 0, 10)
	assert.Equal(t, 1, pages)
	assert.Empty(t, page)
}

func TestSelectionFollowsEntity(t *testing.T) {
	f := newFixture(t)
	var sel Selection
	_, ok := sel.ID()
	assert.False(t, ok)

	sel.Select(f.src.Storage, f.rock)
	moved := f.src.Storage.AddComponent(f.rock, physics.RigidBody{})
	id, ok := sel.ID()
	require.True(t, ok)
	assert.Equal(t, moved, id)

	f.src.Storage.Delete(moved)
	_, ok = sel.ID()
	assert.False(t, ok)
}

func TestSetNumber(t *testing.T) {
	var target struct {
		I int64
		U uint8
		F float32
		S string
	}
	v := reflect.ValueOf(&target).Elem()

	assert.True(t, setNumber(v.Field(0), -12))
	assert.True(t, setNumber(v.Field(1), 7))
	assert.False(t, setNumber(v.Field(1), -1))
	assert.True(t, setNumber(v.Field(2), 0.5))
	assert.False(t, setNumber(v.Field(3), 1))
	assert.False(t, setNumber(reflect.ValueOf(1.0), 2))

	assert.Equal(t, int64(-12), target.I)
	assert.Equal(t, uint8(7), target.U)
	assert.Equal(t, float32(0.5), target.F)
}

func TestReflectionCacheSkipsUnexported(t *testing.T) {
	type component struct {
		Visible float64
		hidden  int
		Ref     *ecs.EntityRef
	}
	_ = component{hidden: 1}

	fields := NewReflectionCache().GetFields(reflect.TypeFor[component]())
	require.Len(t, fields, 2)
	assert.Equal(t, "Visible", fields[0].Name)
	assert.Equal(t, "Ref", fields[1].Name)
	assert.True(t, fields[1].IsPointer)
	assert.Equal(t, 2, fields[1].Index)
}

func TestDriftPanelSamplesOncePerFrame(t *testing.T) {
	f := newFixture(t)
	panel := NewDriftPanel(&f.src, 8)

	f.src.Diagnostics.Update(func(r *origin.Report) {
		r.Frame = 1
		r.MaxOffset = 600
		r.Shift = mgl64.Vec3{3, 4, 0}
	})
	panel.Sample()
	panel.Sample()
	assert.Equal(t, 1, panel.maxOffset.Len())
	assert.Equal(t, float32(5), panel.shift.Max())

	f.src.Diagnostics.Update(func(r *origin.Report) { r.Frame = 2; r.MaxOffset = 200 })
	panel.Sample()
	assert.Equal(t, []float32{600, 200}, panel.maxOffset.Ordered(nil))
}
