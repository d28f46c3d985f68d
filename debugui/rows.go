package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/scene"
	"github.com/plus3/bigspace/space"
)

// BodyRow is one line of the body table.
type BodyRow struct {
	ID       ecs.EntityId
	Position space.SpacePosition
	// Distance from the floating origin, or -1 when it cannot be resolved.
	Distance float64
	Child    bool
	HasBody  bool
	Kind     physics.BodyKind
	Physics  mgl64.Vec3
	Roles    string
}

// Body table columns, in display order.
const (
	ColumnID = iota
	ColumnCell
	ColumnOffset
	ColumnDistance
	ColumnPhysics
	ColumnRoles
	columnCount
)

var columnNames = [columnCount]string{"Entity", "Cell", "Offset", "Distance", "Physics", "Roles"}

type rowView struct {
	ecs.EntityId
	*space.Transform
	Body   *physics.RigidBody `ecs:"optional"`
	Kind   *physics.BodyKind  `ecs:"optional"`
	Parent *scene.Parent      `ecs:"optional"`
}

// BuildBodyRows lists every entity with a Transform whose world pose
// resolves, sorted by id.
func BuildBodyRows(grid *space.Settings, storage *ecs.Storage, roles *origin.Roles) []BodyRow {
	resolver := scene.Resolver{Grid: grid, Storage: storage}

	var originPos space.SpacePosition
	hasOrigin := false
	if id, err := roles.Resolve(origin.Floating); err == nil {
		if pose, ok := resolver.WorldPose(id); ok {
			originPos, hasOrigin = pose.Position, true
		}
	}

	var rows []BodyRow
	for id, v := range ecs.NewView[rowView](storage).Iter() {
		pose, ok := resolver.WorldPose(id)
		if !ok {
			continue
		}

		row := BodyRow{
			ID:       v.EntityId,
			Position: pose.Position,
			Distance: -1,
			Child:    v.Parent != nil,
			HasBody:  v.Body != nil,
			Roles:    roleLabel(roles, id),
		}
		if hasOrigin {
			row.Distance = grid.Delta(pose.Position, originPos).Len()
		}
		if v.Body != nil {
			row.Physics = v.Body.Position
		}
		if v.Kind != nil {
			row.Kind = *v.Kind
		}
		rows = append(rows, row)
	}

	SortBodyRows(rows, ColumnID, true)
	return rows
}

func roleLabel(roles *origin.Roles, id ecs.EntityId) string {
	var names []string
	for _, role := range []origin.Role{origin.Floating, origin.Physics} {
		if roles.Is(role, id) {
			names = append(names, role.String())
		}
	}
	return strings.Join(names, ",")
}

// SortBodyRows orders rows in place by column. Ties fall back to the id.
func SortBodyRows(rows []BodyRow, column int, ascending bool) {
	slices.SortStableFunc(rows, func(a, b BodyRow) int {
		var c int
		switch column {
		case ColumnCell:
			c = compareCells(a.Position.Cell, b.Position.Cell)
		case ColumnOffset:
			c = cmp.Compare(a.Position.Offset.Len(), b.Position.Offset.Len())
		case ColumnDistance:
			c = cmp.Compare(a.Distance, b.Distance)
		case ColumnPhysics:
			c = cmp.Compare(a.Physics.Len(), b.Physics.Len())
		case ColumnRoles:
			c = strings.Compare(a.Roles, b.Roles)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !ascending {
			return -c
		}
		return c
	})
}

func compareCells(a, b space.GridCell) int {
	return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
}

// FilterBodyRows keeps rows whose id, cell or roles contain text, case
// insensitively. An empty filter keeps everything.
func FilterBodyRows(rows []BodyRow, text string) []BodyRow {
	if text == "" {
		return rows
	}
	text = strings.ToLower(text)

	filtered := make([]BodyRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(fmt.Sprintf("%d", row.ID), text) ||
			strings.Contains(strings.ToLower(row.Position.Cell.String()), text) ||
			strings.Contains(row.Roles, text) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// Page returns the rows of page (zero based) and the page count.
func Page(rows []BodyRow, page, perPage int) ([]BodyRow, int) {
	if perPage <= 0 {
		return rows, 1
	}
	pages := max((len(rows)+perPage-1)/perPage, 1)
	page = min(max(page, 0), pages-1)
	start := page * perPage
	end := min(start+perPage, len(rows))
	return rows[start:end], pages
}
