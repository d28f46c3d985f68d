package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/space"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Bodies   int
	Extent   float64
	CellEdge float64
	Entities int

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	SimulatedTime  time.Duration
	UpdateTime     Stats
	Passes         []ecs.SystemStats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats

	// Grid
	Carries      int
	MaxOffset    float64
	FinalCell    space.GridCell
	Waypoints    int
	Errors       int
	LastError    string
	Unnormalized int

	grid *space.Settings
}

func NewReport(grid *space.Settings) *Report {
	return &Report{CellEdge: grid.CellEdge(), grid: grid}
}

// Observe folds one frame's diagnostics into the report.
func (r *Report) Observe(frame origin.Report) {
	r.TotalUpdates++
	r.Carries += frame.Carries
	r.MaxOffset = max(r.MaxOffset, frame.MaxOffset)
	r.FinalCell = frame.Floating.Position.Cell
	if frame.LastError != "" && frame.LastError != r.LastError {
		r.Errors++
		r.LastError = frame.LastError
	}
	if frame.Floating.Set && !r.grid.InCell(frame.Floating.Position.Offset) {
		r.Unnormalized++
	}
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))

	sorted := slices.Clone(s.Samples)
	slices.Sort(sorted)
	s.P99 = sorted[(len(sorted)-1)*99/100]
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# bigspace Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Bodies:** {{.Bodies}} over ±{{printf "%.3g" .Extent}} units
- **Cell Edge:** {{.CellEdge}}
- **Entities:** {{.Entities}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Simulated Time:** {{.SimulatedTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **P99:** {{.UpdateTime.P99}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}

## Passes
| Pass | Runs | Avg | Max |
|------|------|-----|-----|
{{- range .Passes}}
| {{.Name}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MaxDuration}} |
{{- end}}

## Grid
- **Carries:** {{.Carries}}
- **Largest Offset Before Recenter:** {{printf "%.2f" .MaxOffset}}
- **Floating Origin Cell:** {{.FinalCell}}
- **Waypoints Reached:** {{.Waypoints}}
- **Frames With Origin Outside Its Cell:** {{.Unnormalized}}
- **Pass Errors:** {{.Errors}}{{if .LastError}} (last: {{.LastError}}){{end}}

## Memory Usage
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} MB (start) -> {{mb .MemStatsEnd.HeapAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} MB (start) -> {{mb .MemStatsEnd.TotalAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{mb .MemStatsStart.Sys}} MB (start) -> {{mb .MemStatsEnd.Sys}} MB (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v uint64) string {
			return fmt.Sprintf("%.2f", float64(v)/1024/1024)
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
