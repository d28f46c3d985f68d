// Command bigspace-top polls a running bigspace-sim and shows its frame
// report in the terminal, with a history of the largest offset so drift is
// visible at a glance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/plus3/bigspace/origin"
)

func main() {
	addr := flag.String("addr", "http://localhost:9464", "Base URL of bigspace-sim.")
	interval := flag.Duration("interval", time.Second, "Poll interval.")
	flag.Parse()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("terminal: %v", err)
	}
	defer screen.Fini()

	top := &Top{
		screen:  screen,
		client:  &http.Client{Timeout: 2 * time.Second},
		url:     *addr + "/status",
		history: make([]float64, 0, historySize),
	}
	top.Run(*interval)
}

const historySize = 256

type Top struct {
	screen  tcell.Screen
	client  *http.Client
	url     string
	report  origin.Report
	err     error
	history []float64
}

func (t *Top) Run(interval time.Duration) {
	events := make(chan tcell.Event, 8)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.poll()
	t.draw()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		case <-ticker.C:
			t.poll()
		}
		t.draw()
	}
}

func (t *Top) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), t.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		t.err = err
		return
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.err = err
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.err = fmt.Errorf("%s: %s", t.url, resp.Status)
		return
	}

	var report origin.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.err = err
		return
	}
	t.err = nil
	if report.Frame != t.report.Frame {
		t.history = pushHistory(t.history, report.MaxOffset)
	}
	t.report = report
}

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText  = tcell.StyleDefault
	styleError = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleGraph = tcell.StyleDefault.Foreground(tcell.ColorGreen)
)

func (t *Top) draw() {
	t.screen.Clear()
	width, height := t.screen.Size()

	t.text(0, 0, styleTitle, "bigspace-top  "+t.url+"  (q to quit)")
	row := 2
	for _, line := range reportLines(t.report) {
		t.text(0, row, styleText, line)
		row++
	}

	if t.err != nil {
		row++
		t.text(0, row, styleError, "poll failed: "+t.err.Error())
		row++
	}

	row++
	if row < height-1 {
		t.text(0, row, styleTitle, fmt.Sprintf("largest offset, last %d frames sampled", len(t.history)))
		t.text(0, row+1, styleGraph, sparkline(t.history, width))
	}

	t.screen.Show()
}

func (t *Top) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func reportLines(r origin.Report) []string {
	role := func(name string, o origin.OriginReport) string {
		if !o.Set {
			return fmt.Sprintf("%-9s unset", name)
		}
		off := o.Position.Offset
		return fmt.Sprintf("%-9s cell %v offset (%.2f, %.2f, %.2f)", name, o.Position.Cell, off[0], off[1], off[2])
	}

	lines := []string{
		fmt.Sprintf("frame     %d", r.Frame),
		role("floating", r.Floating),
		role("physics", r.Physics),
		fmt.Sprintf("tracked   %d   carries %d   max offset %.2f", r.Tracked, r.Carries, r.MaxOffset),
		fmt.Sprintf("bodies    %d   mirrored %d   shift %.3f", r.Bodies, r.Mirrored, r.Shift.Len()),
	}
	for pass, n := range r.Skipped {
		lines = append(lines, fmt.Sprintf("skipped   %s x%d", pass, n))
	}
	if r.LastError != "" {
		lines = append(lines, "error     "+r.LastError)
	}
	return lines
}

func pushHistory(h []float64, v float64) []float64 {
	if len(h) == historySize {
		copy(h, h[1:])
		h = h[:historySize-1]
	}
	return append(h, v)
}

var bars = []rune(" ▁▂▃▄▅▆▇█")

// sparkline renders the newest width values scaled to their own maximum.
func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if peak > 0 {
			level = int(v / peak * float64(len(bars)-1))
		}
		out[i] = bars[min(max(level, 0), len(bars)-1)]
	}
	return string(out)
}
