// Package fields holds the catalogue of form field types and the element
// instances placed on a form canvas.
package fields

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// FieldType identifies a field variant.
type FieldType string

const (
	TextField      FieldType = "TextField"
	NumberField    FieldType = "NumberField"
	TextareaField  FieldType = "TextareaField"
	DateField      FieldType = "DateField"
	SelectField    FieldType = "SelectField"
	CheckboxField  FieldType = "CheckboxField"
	TitleField     FieldType = "TitleField"
	SubtitleField  FieldType = "SubtitleField"
	ParagraphField FieldType = "ParagraphField"
	SeparatorField FieldType = "SeparatorField"
	SpacerField    FieldType = "SpacerField"
)

// Attributes are the type-specific editable settings of an element.
type Attributes map[string]any

// Clone returns a deep copy. Option lists are copied so callers can mutate
// the result without touching the original.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		switch val := v.(type) {
		case []string:
			cp := make([]string, len(val))
			copy(cp, val)
			out[k] = cp
		case []any:
			cp := make([]any, len(val))
			copy(cp, val)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// String returns the attribute as a string, or "" when absent or not a string.
func (a Attributes) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns the attribute as a bool.
func (a Attributes) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Int returns the attribute as an int.
func (a Attributes) Int(name string) int {
	switch v := a[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Strings returns the attribute as a string list.
func (a Attributes) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Element is one placed instance of a field type.
type Element struct {
	ID              string     `json:"id" yaml:"id"`
	Type            FieldType  `json:"type" yaml:"type"`
	ExtraAttributes Attributes `json:"extraAttributes" yaml:"extraAttributes"`
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	return Element{
		ID:              e.ID,
		Type:            e.Type,
		ExtraAttributes: e.ExtraAttributes.Clone(),
	}
}

// MarshalJSON writes an empty object instead of null for missing attributes.
func (e Element) MarshalJSON() ([]byte, error) {
	type plain Element
	p := plain(e)
	if p.ExtraAttributes == nil {
		p.ExtraAttributes = Attributes{}
	}
	return json.Marshal(p)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewElementID returns a fresh, sortable element id.
func NewElementID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
