package debugui

import "github.com/plus3/bigspace/ecs"

func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[ImguiInputState](registry)
}

// Panels are the diagnostics windows sharing one selection.
type Panels struct {
	Selection *Selection
	Origin    *OriginPanel
	Drift     *DriftPanel
	Bodies    *BodyTable
	Storage   *StoragePanel
	Inspector *Inspector
}

func NewPanels(src Sources) *Panels {
	selection := &Selection{}
	return &Panels{
		Selection: selection,
		Origin:    NewOriginPanel(&src, selection),
		Drift:     NewDriftPanel(&src, 240),
		Bodies:    NewBodyTable(&src, selection, 100),
		Storage:   NewStoragePanel(&src),
		Inspector: NewInspector(&src, selection),
	}
}

// SpawnPanels adds one ImguiItem per panel and the input state singleton.
// Register an ImguiSystem on the scheduler to draw them.
func SpawnPanels(src Sources) *Panels {
	panels := NewPanels(src)
	ecs.NewSingleton[ImguiInputState](src.Storage)

	for _, render := range []func(){
		panels.Origin.Render,
		panels.Drift.Render,
		panels.Bodies.Render,
		panels.Storage.Render,
		panels.Inspector.Render,
	} {
		src.Storage.Spawn(ImguiItem{Render: render})
	}
	return panels
}
