package ebiten_test

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/bigspace"
	"github.com/plus3/bigspace/debugui"
	debugui_ebiten "github.com/plus3/bigspace/debugui/ebiten"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/space"
)

// Game steps the pipeline inside an ImGui frame so the panels draw after
// every pass has run.
type Game struct {
	pipeline     *bigspace.Pipeline
	imguiBackend *ecs.Singleton[debugui_ebiten.ImguiBackend]
}

func (g *Game) Update() error {
	g.imguiBackend.Get().Frame(func() {
		g.pipeline.Step(1.0 / 60.0)
	})
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.imguiBackend.Get().Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.imguiBackend.Get().Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

func Example() {
	registry := ecs.NewComponentRegistry()
	bigspace.RegisterComponents(registry)
	debugui.RegisterComponents(registry)
	ecs.RegisterComponent[debugui_ebiten.ImguiBackend](registry)
	storage := ecs.NewStorage(registry)

	ecs.NewSingleton[debugui_ebiten.ImguiBackend](storage, debugui_ebiten.NewImguiBackend("bigspace debug", 1280, 720))

	grid := space.MustSettings(2000)
	camera := storage.Spawn(space.Cell(1<<40, 0, 0), space.NewTransform(mgl32.Vec3{}))
	roles := origin.NewRoles()
	for _, role := range []origin.Role{origin.Floating, origin.Physics} {
		if err := roles.Assign(storage, role, camera); err != nil {
			panic(err)
		}
	}

	pipeline := bigspace.New(storage, bigspace.Options{
		Grid:    grid,
		Roles:   roles,
		Systems: []ecs.System{&debugui.ImguiSystem{}},
	})
	debugui.SpawnPanels(debugui.Sources{
		Storage:     storage,
		Scheduler:   pipeline.Scheduler,
		Grid:        grid,
		Roles:       roles,
		Diagnostics: pipeline.Diagnostics,
	})

	game := &Game{
		pipeline:     pipeline,
		imguiBackend: ecs.NewSingleton[debugui_ebiten.ImguiBackend](storage),
	}
	if err := ebiten.RunGame(game); err != nil {
		panic(err)
	}
}
