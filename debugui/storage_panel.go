package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/bigspace/ecs"
)

// StoragePanel shows archetype occupancy and per-pass timings. The pass
// timings are how a slow recenter or sync shows up.
type StoragePanel struct {
	src *Sources
}

func NewStoragePanel(src *Sources) *StoragePanel {
	return &StoragePanel{src: src}
}

func (sp *StoragePanel) Render() {
	if !imgui.BeginV("Storage", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := sp.src.Storage.CollectStats()
	imgui.Text(fmt.Sprintf("Total Entities: %d", stats.TotalEntityCount))
	imgui.Text(fmt.Sprintf("Archetypes: %d", stats.ArchetypeCount))
	imgui.Text(fmt.Sprintf("Singletons: %d", stats.SingletonCount))

	if sp.src.Scheduler != nil && imgui.TreeNodeStr("Passes") {
		sp.renderPasses(sp.src.Scheduler.GetStats())
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Archetypes") {
		sp.renderArchetypes(stats)
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Singletons") {
		for _, singletonType := range stats.SingletonTypes {
			imgui.BulletText(singletonType)
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (sp *StoragePanel) renderPasses(stats *ecs.SchedulerStats) {
	imgui.Text(fmt.Sprintf("Frames: %d", stats.Frames))

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("PassTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Pass")
		imgui.TableSetupColumn("Last")
		imgui.TableSetupColumn("Avg")
		imgui.TableSetupColumn("Max")
		imgui.TableHeadersRow()

		for _, system := range stats.Systems {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(system.Name)
			imgui.TableNextColumn()
			imgui.Text(system.LastDuration.String())
			imgui.TableNextColumn()
			imgui.Text(system.AvgDuration.String())
			imgui.TableNextColumn()
			imgui.Text(system.MaxDuration.String())
		}
		imgui.EndTable()
	}
}

func (sp *StoragePanel) renderArchetypes(stats *ecs.StorageStats) {
	maxEntityCount := 0
	for _, arch := range stats.ArchetypeBreakdown {
		maxEntityCount = max(maxEntityCount, arch.EntityCount)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("ArchetypeTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Archetype ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Entity Count")
		imgui.TableHeadersRow()

		for _, arch := range stats.ArchetypeBreakdown {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("0x%X", arch.ID))
			imgui.TableNextColumn()
			imgui.Text(strings.Join(arch.ComponentTypes, ", "))
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", arch.EntityCount))

			if maxEntityCount > 0 {
				barWidth := float32(arch.EntityCount) / float32(maxEntityCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}
		imgui.EndTable()
	}
}
