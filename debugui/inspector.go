package debugui

import (
	"fmt"
	"math"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/bigspace/ecs"
)

// Inspector shows and edits the components of the selected entity. Edits
// write straight into storage; an edited Transform is picked up by the next
// physics pre-sync like any other render-side change.
type Inspector struct {
	src       *Sources
	selection *Selection
}

func NewInspector(src *Sources, selection *Selection) *Inspector {
	return &Inspector{src: src, selection: selection}
}

func (ci *Inspector) Render() {
	if !imgui.BeginV("Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	entityId, ok := ci.selection.ID()
	if !ok {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	archetype := ci.src.Storage.GetArchetypeById(entityId.ArchetypeId())
	if archetype == nil {
		imgui.Text(fmt.Sprintf("Entity %d not found (invalid archetype)", entityId))
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Entity ID: %d", entityId))
	imgui.Text(fmt.Sprintf("Archetype: 0x%X", archetype.ID()))
	if imgui.Button("Deselect") {
		ci.selection.Clear()
	}
	imgui.Separator()

	for _, compType := range archetype.Types() {
		component := ci.src.Storage.GetComponent(entityId, compType)
		if component == nil {
			continue
		}

		if imgui.TreeNodeStr(compType.String()) {
			ci.renderValue(reflect.ValueOf(component).Elem())
			imgui.TreePop()
		}
	}

	imgui.End()
}

func (ci *Inspector) renderValue(val reflect.Value) {
	if val.Kind() != reflect.Struct {
		ci.renderField(val.Type().Name(), val)
		return
	}
	for _, field := range globalReflectionCache.GetFields(val.Type()) {
		ci.renderField(field.Name, val.Field(field.Index))
	}
}

func (ci *Inspector) renderField(name string, val reflect.Value) {
	imgui.PushIDStr(name)
	defer imgui.PopID()

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			imgui.Text(fmt.Sprintf("%s: nil", name))
			return
		}
		if ref, ok := val.Interface().(*ecs.EntityRef); ok {
			if ref.Valid() {
				imgui.Text(fmt.Sprintf("%s: entity %d", name, ref.Id))
			} else {
				imgui.Text(fmt.Sprintf("%s: deleted", name))
			}
			return
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := val.Int()
		if n < math.MinInt32 || n > math.MaxInt32 {
			imgui.Text(fmt.Sprintf("%s: %d", name, n))
			return
		}
		v := int32(n)
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(name, &v) {
			setNumber(val, float64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val.Type().Implements(stringerType) {
			imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
			return
		}
		v := int32(min(val.Uint(), math.MaxInt32))
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(name, &v) {
			setNumber(val, float64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(name, &v) {
			setNumber(val, float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
		}

	case reflect.String:
		v := val.String()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(name, "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
		}

	case reflect.Array:
		if imgui.TreeNodeStr(fmt.Sprintf("%s %v", name, val.Interface())) {
			for i := 0; i < val.Len(); i++ {
				ci.renderField(fmt.Sprintf("[%d]", i), val.Index(i))
			}
			imgui.TreePop()
		}

	case reflect.Struct:
		if imgui.TreeNodeStr(name) {
			ci.renderValue(val)
			imgui.TreePop()
		}

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case reflect.Func:
		imgui.Text(fmt.Sprintf("%s: func", name))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
}

var stringerType = reflect.TypeFor[fmt.Stringer]()
