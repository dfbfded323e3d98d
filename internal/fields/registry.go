package fields

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hpungsan/formcraft/internal/errors"
)

// Registry maps field types to their definitions. It is read-only once built.
type Registry struct {
	defs  map[FieldType]Definition
	order []FieldType
}

// PaletteItem is one draggable sidebar button.
type PaletteItem struct {
	Type FieldType `json:"type"`
	Button
}

// NewRegistry builds a registry from defs, keeping their order for the palette.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[FieldType]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := r.defs[d.Type()]; dup {
			return nil, fmt.Errorf("field type %q registered twice", d.Type())
		}
		r.defs[d.Type()] = d
		r.order = append(r.order, d.Type())
	}
	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(builtins()...)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the registry holding every built-in field type.
func Default() *Registry {
	return defaultRegistry()
}

// Lookup returns the definition for t.
func (r *Registry) Lookup(t FieldType) (Definition, error) {
	d, ok := r.defs[t]
	if !ok {
		return nil, errors.NewUnknownFieldType(string(t))
	}
	return d, nil
}

// Types returns every registered type in palette order.
func (r *Registry) Types() []FieldType {
	out := make([]FieldType, len(r.order))
	copy(out, r.order)
	return out
}

// IsInput reports whether elements of type t collect a value.
func (r *Registry) IsInput(t FieldType) bool {
	d, ok := r.defs[t]
	return ok && d.Button().Category == CategoryInput
}

// Palette lists the sidebar buttons, skipping disabled types.
func (r *Registry) Palette(disabled ...FieldType) []PaletteItem {
	skip := make(map[FieldType]bool, len(disabled))
	for _, t := range disabled {
		skip[t] = true
	}
	items := make([]PaletteItem, 0, len(r.order))
	for _, t := range r.order {
		if skip[t] {
			continue
		}
		items = append(items, PaletteItem{Type: t, Button: r.defs[t].Button()})
	}
	return items
}

// Construct creates a default element of type t.
func (r *Registry) Construct(t FieldType, id string) (Element, error) {
	d, err := r.Lookup(t)
	if err != nil {
		return Element{}, err
	}
	return d.Construct(id), nil
}

// Validate applies the field-specific acceptance rule to a submitted value.
func (r *Registry) Validate(el Element, value string) (bool, error) {
	d, err := r.Lookup(el.Type)
	if err != nil {
		return false, err
	}
	return d.Validate(el, value), nil
}

// Normalize brings a decoded element into canonical shape. Attribute problems
// are repaired with schema defaults; only an unknown type or a missing id fails.
func (r *Registry) Normalize(el Element) (Element, error) {
	d, err := r.Lookup(el.Type)
	if err != nil {
		return Element{}, err
	}
	id := strings.TrimSpace(el.ID)
	if id == "" {
		return Element{}, errors.NewInvalidRequest("element id must not be empty")
	}
	return Element{
		ID:              id,
		Type:            el.Type,
		ExtraAttributes: d.Schema().Normalize(el.ExtraAttributes),
	}, nil
}

// CheckElements normalizes a whole design and checks every element against
// its schema constraints. Problems are keyed "<elementID>.<attribute>" and
// fail with VALIDATION_FAILED.
func (r *Registry) CheckElements(elements []Element) ([]Element, error) {
	out := make([]Element, 0, len(elements))
	problems := make(map[string]string)
	for _, el := range elements {
		norm, err := r.Normalize(el)
		if err != nil {
			return nil, err
		}
		d, _ := r.Lookup(norm.Type)
		for attr, msg := range d.Schema().Validate(norm.ExtraAttributes) {
			problems[norm.ID+"."+attr] = msg
		}
		out = append(out, norm)
	}
	if len(problems) > 0 {
		return nil, errors.NewValidation(problems)
	}
	return out, nil
}

// ValidateAttributes checks property-editor input for type t and returns the
// canonical attributes. Violations fail with VALIDATION_FAILED.
func (r *Registry) ValidateAttributes(t FieldType, attrs Attributes) (Attributes, error) {
	d, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}
	if problems := d.Schema().Validate(attrs); len(problems) > 0 {
		return nil, errors.NewValidation(problems)
	}
	return d.Schema().Normalize(attrs), nil
}

// ParseFieldTypes converts configured names into field types, rejecting unknown ones.
func (r *Registry) ParseFieldTypes(names []string) ([]FieldType, error) {
	out := make([]FieldType, 0, len(names))
	for _, n := range names {
		t := FieldType(strings.TrimSpace(n))
		if _, err := r.Lookup(t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
