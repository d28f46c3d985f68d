package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/AllenDang/cimgui-go/implot"
)

// DriftPanel plots the largest offset seen by the recenter pass next to the
// frame time and the physics origin shift. A largest offset that keeps
// climbing past the half cell edge means recentering is not running.
type DriftPanel struct {
	src       *Sources
	timer     *FrameTimer
	maxOffset *History
	frameMs   *History
	shift     *History
	lastFrame uint64

	plot []float32
}

func NewDriftPanel(src *Sources, historyFrames int) *DriftPanel {
	return &DriftPanel{
		src:       src,
		timer:     NewFrameTimer(),
		maxOffset: NewHistory(historyFrames),
		frameMs:   NewHistory(historyFrames),
		shift:     NewHistory(historyFrames),
	}
}

// Sample records the current frame. Render calls it; tests call it directly.
func (dp *DriftPanel) Sample() {
	report := dp.src.Diagnostics.Snapshot()
	dt := dp.timer.GetDeltaTime()
	if report.Frame == dp.lastFrame {
		return
	}
	dp.lastFrame = report.Frame

	dp.maxOffset.Push(float32(report.MaxOffset))
	dp.frameMs.Push(float32(dt.Seconds() * 1000))
	dp.shift.Push(float32(report.Shift.Len()))
}

func (dp *DriftPanel) Render() {
	dp.Sample()

	imgui.SetNextWindowSizeV(imgui.NewVec2(520, 420), imgui.CondOnce)
	if !imgui.BeginV("Drift", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	half := dp.src.Grid.HalfEdge()
	peak := dp.maxOffset.Max()
	imgui.Text(fmt.Sprintf("Largest offset: %.2f (peak %.2f, half edge %.1f)", dp.maxOffset.Mean(), peak, half))
	if float64(peak) > 2*half {
		imgui.Text("Offsets exceed the cell: is the floating origin set?")
	}
	avg := dp.frameMs.Mean()
	if avg > 0 {
		imgui.Text(fmt.Sprintf("Avg frame time: %.2f ms (%.0f FPS)", avg, 1000/avg))
	}

	if imgui.BeginTabBar("DriftTabs") {
		dp.plotTab("Largest offset", "Offset", dp.maxOffset)
		dp.plotTab("Origin shift", "Meters", dp.shift)
		dp.plotTab("Frame time", "ms", dp.frameMs)
		imgui.EndTabBar()
	}

	imgui.End()
}

func (dp *DriftPanel) plotTab(title, axis string, h *History) {
	if !imgui.BeginTabItem(title) {
		return
	}
	dp.plot = h.Ordered(dp.plot)
	if len(dp.plot) > 0 && implot.BeginPlotV(title, imgui.NewVec2(-1, -1), 0) {
		implot.SetupAxesV("Frame", axis, implot.AxisFlagsAutoFit, implot.AxisFlagsAutoFit)
		implot.PlotLineFloatPtrInt(title, &dp.plot[0], int32(len(dp.plot)))
		implot.EndPlot()
	}
	imgui.EndTabItem()
}

// FrameTimer measures wall time between renders.
type FrameTimer struct {
	last time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{last: time.Now()}
}

func (ft *FrameTimer) GetDeltaTime() time.Duration {
	now := time.Now()
	delta := now.Sub(ft.last)
	ft.last = now
	return delta
}
