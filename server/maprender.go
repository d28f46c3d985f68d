package server

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/space"
)

// MapPoint is one entity projected onto the XZ plane around the floating
// origin.
type MapPoint struct {
	X, Z     float64
	Body     bool
	Floating bool
	Physics  bool
}

type mapView struct {
	ecs.EntityId
	*space.GridCell
	*space.Transform
	Body *physics.RigidBody `ecs:"optional"`
}

// CollectMapPoints reads every grid-tracked entity relative to the floating
// origin. It must run on the pipeline goroutine.
func CollectMapPoints(grid *space.Settings, storage *ecs.Storage, roles *origin.Roles) ([]MapPoint, error) {
	originId, err := roles.Resolve(origin.Floating)
	if err != nil {
		return nil, err
	}
	view := ecs.NewView[mapView](storage)
	center := view.Get(originId)
	if center == nil {
		return nil, origin.ErrOriginNotTracked
	}
	centerPos := space.SpacePosition{Cell: *center.GridCell, Offset: center.Transform.Translation}

	var points []MapPoint
	for _, v := range view.Iter() {
		pos := space.SpacePosition{Cell: *v.GridCell, Offset: v.Transform.Translation}
		d := grid.Delta(pos, centerPos)
		points = append(points, MapPoint{
			X:        d[0],
			Z:        d[2],
			Body:     v.Body != nil,
			Floating: v.EntityId == originId,
			Physics:  roles.Is(origin.Physics, v.EntityId),
		})
	}
	return points, nil
}

// MapExtent returns the half width that fits every point, at least minExtent.
func MapExtent(points []MapPoint, minExtent float64) float64 {
	extent := minExtent
	for _, p := range points {
		extent = max(extent, math.Abs(p.X), math.Abs(p.Z))
	}
	return extent
}

var (
	mapBackground = color.RGBA{12, 12, 28, 255}
	mapRing       = color.RGBA{40, 40, 70, 255}
	mapEntity     = color.RGBA{140, 140, 160, 255}
	mapBody       = color.RGBA{83, 200, 255, 255}
	mapFloating   = color.RGBA{255, 210, 60, 255}
	mapPhysics    = color.RGBA{255, 62, 62, 255}
)

// RenderMap draws points into a size x size image covering [-extent, extent]
// on both axes, the floating origin at the centre. Rings mark every power of
// ten inside the extent.
func RenderMap(points []MapPoint, size int, extent float64) image.Image {
	dc := gg.NewContext(size, size)
	dc.SetColor(mapBackground)
	dc.Clear()

	half := float64(size) / 2
	scale := half / extent

	dc.SetColor(mapRing)
	dc.SetLineWidth(1)
	for r := 1.0; r <= extent; r *= 10 {
		if px := r * scale; px >= 4 {
			dc.DrawCircle(half, half, px)
			dc.Stroke()
		}
	}
	dc.DrawLine(0, half, float64(size), half)
	dc.DrawLine(half, 0, half, float64(size))
	dc.Stroke()

	for _, p := range points {
		x, y := half+p.X*scale, half-p.Z*scale
		radius := 1.5
		switch {
		case p.Floating:
			dc.SetColor(mapFloating)
			radius = 5
		case p.Physics:
			dc.SetColor(mapPhysics)
			radius = 4
		case p.Body:
			dc.SetColor(mapBody)
		default:
			dc.SetColor(mapEntity)
		}
		dc.DrawCircle(x, y, radius)
		dc.Fill()
	}

	return dc.Image()
}
