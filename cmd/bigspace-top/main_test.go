package main

import (
	"testing"

	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
)

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", sparkline(nil, 10))
	assert.Equal(t, " ▄█", sparkline([]float64{0, 50, 100}, 10))
	assert.Equal(t, "▄█", sparkline([]float64{0, 50, 100}, 2), "keeps the newest values")
	assert.Equal(t, "  ", sparkline([]float64{0, 0}, 10))
}

func TestPushHistory(t *testing.T) {
	var h []float64
	for i := range historySize + 3 {
		h = pushHistory(h, float64(i))
	}
	assert.Len(t, h, historySize)
	assert.Equal(t, 3.0, h[0])
	assert.Equal(t, float64(historySize+2), h[len(h)-1])
}

func TestReportLines(t *testing.T) {
	lines := reportLines(origin.Report{
		Frame:    12,
		Floating: origin.OriginReport{Set: true, Position: space.SpacePosition{Cell: space.Cell(1, 2, 3)}},
		Skipped:  map[string]uint64{"presync": 2},
	})
	assert.Equal(t, "frame     12", lines[0])
	assert.Contains(t, lines[1], "cell (1, 2, 3)")
	assert.Equal(t, "physics   unset", lines[2])
	assert.Contains(t, lines, "skipped   presync x2")
}
