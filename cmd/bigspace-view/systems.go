package main

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/bigspace/debugui"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/space"
)

// ViewCamera maps the XZ plane around the floating origin onto the screen.
// Pan is in world units relative to the origin, Scale in pixels per unit.
type ViewCamera struct {
	Pan     mgl64.Vec2
	Scale   float64
	ScreenW int
	ScreenH int
}

const (
	minScale = 1e-9
	maxScale = 10.0
)

// Project returns the screen position of a point relative to the floating
// origin. The map looks down the Y axis with +Z towards the bottom.
func (c *ViewCamera) Project(p mgl64.Vec3) (float32, float32) {
	x := (p[0]-c.Pan[0])*c.Scale + float64(c.ScreenW)/2
	y := (p[2]-c.Pan[1])*c.Scale + float64(c.ScreenH)/2
	return float32(x), float32(y)
}

// Unproject is the inverse of Project on the XZ plane.
func (c *ViewCamera) Unproject(sx, sy float64) mgl64.Vec2 {
	return mgl64.Vec2{
		(sx-float64(c.ScreenW)/2)/c.Scale + c.Pan[0],
		(sy-float64(c.ScreenH)/2)/c.Scale + c.Pan[1],
	}
}

// ZoomAt scales by factor while keeping the point under (sx, sy) fixed.
func (c *ViewCamera) ZoomAt(sx, sy, factor float64) {
	anchor := c.Unproject(sx, sy)
	c.Scale = min(max(c.Scale*factor, minScale), maxScale)
	after := c.Unproject(sx, sy)
	c.Pan = c.Pan.Add(anchor.Sub(after))
}

type ViewInput struct {
	Dragging      bool
	DragStart     mgl64.Vec2
	DragMouseX    int
	DragMouseY    int
	PrevMouseLeft bool
}

type CameraControlSystem struct {
	Camera          ecs.Singleton[ViewCamera]
	Input           ecs.Singleton[ViewInput]
	ImguiInputState ecs.Singleton[debugui.ImguiInputState]
}

func (s *CameraControlSystem) Execute(frame *ecs.UpdateFrame) {
	camera := s.Camera.Get()
	input := s.Input.Get()

	if imguiInput := s.ImguiInputState.Get(); imguiInput != nil && imguiInput.WantCaptureMouse {
		input.Dragging = false
		input.PrevMouseLeft = false
		return
	}

	if ebiten.IsKeyPressed(ebiten.KeyHome) {
		camera.Pan = mgl64.Vec2{}
	}

	mx, my := ebiten.CursorPosition()
	mouseLeft := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)

	if mouseLeft && !input.PrevMouseLeft {
		input.Dragging = true
		input.DragStart = camera.Pan
		input.DragMouseX = mx
		input.DragMouseY = my
	}
	if !mouseLeft {
		input.Dragging = false
	}
	if input.Dragging {
		dx := float64(mx - input.DragMouseX)
		dy := float64(my - input.DragMouseY)
		camera.Pan = input.DragStart.Sub(mgl64.Vec2{dx, dy}.Mul(1 / camera.Scale))
	}
	input.PrevMouseLeft = mouseLeft

	if _, dy := ebiten.Wheel(); dy != 0 {
		camera.ZoomAt(float64(mx), float64(my), math.Pow(1.2, dy))
	}
}

// Dot is one entity on the map.
type Dot struct {
	Position mgl64.Vec3
	Color    color.RGBA
	Radius   float32
}

var (
	colorDynamic  = color.RGBA{80, 160, 255, 255}
	colorStatic   = color.RGBA{150, 150, 150, 255}
	colorChild    = color.RGBA{255, 200, 80, 255}
	colorFloating = color.RGBA{255, 80, 80, 255}
	colorPhysics  = color.RGBA{80, 220, 120, 255}
	colorGrid     = color.RGBA{40, 40, 48, 255}
	colorBack     = color.RGBA{16, 16, 20, 255}
)

// MapSystem runs after propagate and records where every entity is drawn.
// GlobalTransform is already relative to the floating origin, so the map
// never touches absolute coordinates.
type MapSystem struct {
	Roles *origin.Roles

	Entities ecs.Query[struct {
		ecs.EntityId
		*space.GlobalTransform
		Kind *physics.BodyKind `ecs:"optional"`
		Cell *space.GridCell   `ecs:"optional"`
	}]

	dots []Dot
}

func (s *MapSystem) Execute(frame *ecs.UpdateFrame) {
	s.dots = s.dots[:0]
	for e := range s.Entities.Values() {
		s.dots = append(s.dots, s.dot(e.EntityId, e.Kind, e.Cell == nil, e.GlobalTransform))
	}
}

func (s *MapSystem) dot(id ecs.EntityId, kind *physics.BodyKind, child bool, global *space.GlobalTransform) Dot {
	d := Dot{Position: space.Vec3To64(global.Translation), Color: colorDynamic, Radius: 3}
	switch {
	case s.Roles.Is(origin.Floating, id):
		d.Color, d.Radius = colorFloating, 5
	case s.Roles.Is(origin.Physics, id):
		d.Color, d.Radius = colorPhysics, 5
	case child:
		d.Color, d.Radius = colorChild, 2
	case kind != nil && *kind == physics.Static:
		d.Color = colorStatic
	}
	return d
}

// Dots returns what the last frame recorded.
func (s *MapSystem) Dots() []Dot {
	return s.dots
}

func (s *MapSystem) Draw(screen *ebiten.Image, camera *ViewCamera) {
	screen.Fill(colorBack)
	drawScaleRings(screen, camera)

	w, h := float32(camera.ScreenW), float32(camera.ScreenH)
	for _, d := range s.dots {
		x, y := camera.Project(d.Position)
		if x < -d.Radius || y < -d.Radius || x > w+d.Radius || y > h+d.Radius {
			continue
		}
		vector.DrawFilledCircle(screen, x, y, d.Radius, d.Color, true)
	}
}

// drawScaleRings draws circles around the floating origin at the two powers
// of ten that fit on screen.
func drawScaleRings(screen *ebiten.Image, camera *ViewCamera) {
	cx, cy := camera.Project(mgl64.Vec3{})
	for _, r := range ringRadii(camera) {
		vector.StrokeCircle(screen, cx, cy, float32(r*camera.Scale), 1, colorGrid, true)
	}
}

func ringRadii(camera *ViewCamera) []float64 {
	span := float64(min(camera.ScreenW, camera.ScreenH)) / 2 / camera.Scale
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return nil
	}
	top := math.Pow(10, math.Floor(math.Log10(span)))
	return []float64{top / 10, top}
}
