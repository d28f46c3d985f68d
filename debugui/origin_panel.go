package debugui

import (
	"fmt"
	"maps"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/bigspace/origin"
)

// OriginPanel shows both origin roles and lets the user hand a role to the
// selected entity.
type OriginPanel struct {
	src       *Sources
	selection *Selection
	status    string
}

func NewOriginPanel(src *Sources, selection *Selection) *OriginPanel {
	return &OriginPanel{src: src, selection: selection}
}

func (op *OriginPanel) Render() {
	if !imgui.BeginV("Origins", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	report := op.src.Diagnostics.Snapshot()
	imgui.Text(fmt.Sprintf("Frame %d, cell edge %.1f", report.Frame, op.src.Grid.CellEdge()))
	imgui.Separator()

	op.renderRole(origin.Floating, report.Floating)
	op.renderRole(origin.Physics, report.Physics)

	imgui.Separator()
	imgui.Text(fmt.Sprintf("Tracked: %d  Carries: %d", report.Tracked, report.Carries))
	imgui.Text(fmt.Sprintf("Bodies: %d  Mirrored: %d", report.Bodies, report.Mirrored))
	imgui.Text(fmt.Sprintf("Shift: (%.3f, %.3f, %.3f)", report.Shift[0], report.Shift[1], report.Shift[2]))

	if len(report.Skipped) > 0 && imgui.TreeNodeStr("Skipped passes") {
		for _, pass := range slices.Sorted(maps.Keys(report.Skipped)) {
			imgui.BulletText(fmt.Sprintf("%s: %d", pass, report.Skipped[pass]))
		}
		imgui.TreePop()
	}
	if report.LastError != "" {
		imgui.Text("Last error: " + report.LastError)
	}
	if op.status != "" {
		imgui.Text(op.status)
	}

	imgui.End()
}

func (op *OriginPanel) renderRole(role origin.Role, state origin.OriginReport) {
	if id, err := op.src.Roles.Resolve(role); err == nil {
		imgui.Text(fmt.Sprintf("%s origin: entity %d", role, id))
	} else {
		imgui.Text(fmt.Sprintf("%s origin: %v", role, err))
	}
	if state.Set {
		imgui.Text(fmt.Sprintf("  at %s", state.Position))
	}

	selected, ok := op.selection.ID()
	if !ok {
		return
	}
	if imgui.Button(fmt.Sprintf("Make selection %s origin", role)) {
		if err := op.src.Roles.Assign(op.src.Storage, role, selected); err != nil {
			op.status = err.Error()
		} else {
			op.status = fmt.Sprintf("entity %d is now the %s origin", selected, role)
		}
	}
}
