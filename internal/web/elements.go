package web

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/hpungsan/formcraft/internal/fields"
)

// canvasElement is one element as placed on the designer canvas, with the
// neighbours its move buttons anchor on.
type canvasElement struct {
	ID       string
	Type     fields.FieldType
	HTML     template.HTML
	Selected bool
	PrevID   string
	NextID   string
}

// selectedElement is the element shown in the properties panel.
type selectedElement struct {
	ID         string
	Type       fields.FieldType
	Label      string
	Properties template.HTML
}

// renderCanvas renders each element's designer preview in order.
func renderCanvas(reg *fields.Registry, elements []fields.Element, selected string) ([]canvasElement, error) {
	out := make([]canvasElement, 0, len(elements))
	for i, el := range elements {
		def, err := reg.Lookup(el.Type)
		if err != nil {
			return nil, err
		}
		html, err := def.RenderDesigner(el)
		if err != nil {
			return nil, err
		}
		c := canvasElement{ID: el.ID, Type: el.Type, HTML: html, Selected: el.ID == selected}
		if i > 0 {
			c.PrevID = elements[i-1].ID
		}
		if i < len(elements)-1 {
			c.NextID = elements[i+1].ID
		}
		out = append(out, c)
	}
	return out, nil
}

// renderSelected renders the properties panel for id, or returns nil when id
// is empty or no longer on the canvas.
func renderSelected(reg *fields.Registry, elements []fields.Element, id string, problems map[string]string) (*selectedElement, error) {
	if id == "" {
		return nil, nil
	}
	for _, el := range elements {
		if el.ID != id {
			continue
		}
		def, err := reg.Lookup(el.Type)
		if err != nil {
			return nil, err
		}
		props, err := def.RenderProperties(el, problems)
		if err != nil {
			return nil, err
		}
		return &selectedElement{ID: el.ID, Type: el.Type, Label: def.Button().Label, Properties: props}, nil
	}
	return nil, nil
}

// renderFillIn renders the fill-in controls of every element. values and
// problems are keyed by element id.
func renderFillIn(reg *fields.Registry, elements []fields.Element, values, problems map[string]string, disabled bool) ([]template.HTML, error) {
	out := make([]template.HTML, 0, len(elements))
	for _, el := range elements {
		def, err := reg.Lookup(el.Type)
		if err != nil {
			return nil, err
		}
		_, invalid := problems[el.ID]
		html, err := def.RenderForm(el, fields.InputState{
			Value:    values[el.ID],
			Invalid:  invalid,
			Disabled: disabled,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, html)
	}
	return out, nil
}

// attributesFromForm reads a properties-panel post into attributes. Unchecked
// boxes are absent from the post and read as false; option lists are one
// option per non-blank line.
func attributesFromForm(schema fields.Schema, form url.Values) fields.Attributes {
	attrs := make(fields.Attributes, len(schema))
	for _, a := range schema {
		switch a.Kind {
		case fields.KindBool:
			attrs[a.Name] = form.Get(a.Name) == "true"
		case fields.KindOptions:
			var opts []string
			for _, line := range strings.Split(form.Get(a.Name), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					opts = append(opts, line)
				}
			}
			if opts == nil {
				opts = []string{}
			}
			attrs[a.Name] = opts
		default:
			if _, ok := form[a.Name]; ok {
				attrs[a.Name] = strings.ReplaceAll(form.Get(a.Name), "\r\n", "\n")
			}
		}
	}
	return attrs
}

// valuesFromForm keeps the first value of every posted key.
func valuesFromForm(form url.Values) map[string]string {
	values := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values
}
