package debugui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
)

// BodyTable lists every placed entity with its cell, offset, distance from
// the floating origin and solver-frame position. Clicking a row selects it.
type BodyTable struct {
	src       *Sources
	selection *Selection

	// RefreshFrames is how many renders reuse the cached rows.
	RefreshFrames int
	PerPage       int

	rows          []BodyRow
	age           int
	filterText    string
	currentPage   int
	sortColumn    int
	sortAscending bool
}

func NewBodyTable(src *Sources, selection *Selection, perPage int) *BodyTable {
	return &BodyTable{
		src:           src,
		selection:     selection,
		RefreshFrames: 10,
		PerPage:       perPage,
		sortAscending: true,
	}
}

// Rows returns the cached rows after filtering, rebuilding them when stale.
func (bt *BodyTable) Rows() []BodyRow {
	if bt.rows == nil || bt.age >= bt.RefreshFrames {
		bt.rows = BuildBodyRows(bt.src.Grid, bt.src.Storage, bt.src.Roles)
		SortBodyRows(bt.rows, bt.sortColumn, bt.sortAscending)
		bt.age = 0
	}
	bt.age++
	return FilterBodyRows(bt.rows, bt.filterText)
}

func (bt *BodyTable) Render() {
	if !imgui.BeginV("Bodies", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.InputTextWithHint("##search", "Filter by id, cell or role...", &bt.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		bt.filterText = ""
	}
	imgui.SameLine()
	if imgui.Button("Refresh") {
		bt.rows = nil
	}

	rows := bt.Rows()
	visible, pages := Page(rows, bt.currentPage, bt.PerPage)
	bt.currentPage = min(bt.currentPage, pages-1)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("BodyTable", columnCount, tableFlags, imgui.NewVec2(0, -30), 0) {
		for _, name := range columnNames {
			imgui.TableSetupColumn(name)
		}
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			bt.sortColumn = int(spec.ColumnIndex())
			bt.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			SortBodyRows(bt.rows, bt.sortColumn, bt.sortAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		selected, _ := bt.selection.ID()
		for _, row := range visible {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			label := fmt.Sprintf("%d", row.ID)
			if row.Child {
				label += " (child)"
			}
			if imgui.SelectableBoolV(label, row.ID == selected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				bt.selection.Select(bt.src.Storage, row.ID)
			}

			imgui.TableNextColumn()
			imgui.Text(row.Position.Cell.String())

			imgui.TableNextColumn()
			o := row.Position.Offset
			imgui.Text(fmt.Sprintf("(%.2f, %.2f, %.2f)", o[0], o[1], o[2]))

			imgui.TableNextColumn()
			if row.Distance >= 0 {
				imgui.Text(fmt.Sprintf("%.3g", row.Distance))
			} else {
				imgui.Text("-")
			}

			imgui.TableNextColumn()
			if row.HasBody {
				p := row.Physics
				imgui.Text(fmt.Sprintf("%s (%.2f, %.2f, %.2f)", row.Kind, p[0], p[1], p[2]))
			} else {
				imgui.Text("-")
			}

			imgui.TableNextColumn()
			imgui.Text(row.Roles)
		}

		imgui.EndTable()
	}

	imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", bt.currentPage+1, pages, len(rows)))
	imgui.SameLine()
	if imgui.Button("Prev") && bt.currentPage > 0 {
		bt.currentPage--
	}
	imgui.SameLine()
	if imgui.Button("Next") && bt.currentPage < pages-1 {
		bt.currentPage++
	}

	imgui.End()
}
