// Package designer holds the ordered element tree edited on the form canvas
// and the drag-and-drop rules that mutate it.
package designer

import (
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
)

// Tree is the ordered list of elements of one form plus the current selection.
// A Tree belongs to a single editing session and is not safe for concurrent use.
type Tree struct {
	registry *fields.Registry
	elements []fields.Element
	selected string
}

// NewTree returns an empty tree whose element types are checked against reg.
// A nil reg uses fields.Default().
func NewTree(reg *fields.Registry) *Tree {
	if reg == nil {
		reg = fields.Default()
	}
	return &Tree{registry: reg}
}

// Registry returns the field registry the tree validates against.
func (t *Tree) Registry() *fields.Registry {
	return t.registry
}

// Len returns the number of elements.
func (t *Tree) Len() int {
	return len(t.elements)
}

// IndexOf returns the position of id, or -1.
func (t *Tree) IndexOf(id string) int {
	for i, el := range t.elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the element with id.
func (t *Tree) Get(id string) (fields.Element, bool) {
	i := t.IndexOf(id)
	if i < 0 {
		return fields.Element{}, false
	}
	return t.elements[i].Clone(), true
}

// Insert places el at index, clamped to [0, Len()]. The element is stored in
// the same normalized shape Hydrate produces.
func (t *Tree) Insert(index int, el fields.Element) error {
	norm, err := t.registry.Normalize(el)
	if err != nil {
		return err
	}
	if t.IndexOf(norm.ID) >= 0 {
		return errors.NewDuplicateID(norm.ID)
	}
	t.insertAt(index, norm)
	return nil
}

// RemoveByID removes and returns the element with id. Removing the selected
// element clears the selection.
func (t *Tree) RemoveByID(id string) (fields.Element, error) {
	i := t.IndexOf(id)
	if i < 0 {
		return fields.Element{}, errors.NewElementNotFound(id)
	}
	el := t.removeAt(i)
	if t.selected == id {
		t.selected = ""
	}
	return el, nil
}

// MoveExisting moves id so that it ends up at newIndex (clamped after removal).
func (t *Tree) MoveExisting(id string, newIndex int) error {
	i := t.IndexOf(id)
	if i < 0 {
		return errors.NewElementNotFound(id)
	}
	el := t.removeAt(i)
	t.insertAt(newIndex, el)
	return nil
}

// MoveNextTo moves id directly before or after anchorID and returns its new
// index. The anchor position is taken from the tree after id was removed.
func (t *Tree) MoveNextTo(id, anchorID string, after bool) (int, error) {
	i := t.IndexOf(id)
	if i < 0 {
		return -1, errors.NewElementNotFound(id)
	}
	if t.IndexOf(anchorID) < 0 {
		return -1, errors.NewElementNotFound(anchorID)
	}
	if id == anchorID {
		return i, nil
	}

	el := t.removeAt(i)
	at := t.IndexOf(anchorID)
	if after {
		at++
	}
	t.insertAt(at, el)
	return at, nil
}

// Select marks id as the element being edited.
func (t *Tree) Select(id string) error {
	if t.IndexOf(id) < 0 {
		return errors.NewElementNotFound(id)
	}
	t.selected = id
	return nil
}

// ClearSelection drops the selection.
func (t *Tree) ClearSelection() {
	t.selected = ""
}

// Selected resolves the current selection. It reports false when nothing is
// selected or the selected element has since been removed.
func (t *Tree) Selected() (fields.Element, bool) {
	if t.selected == "" {
		return fields.Element{}, false
	}
	return t.Get(t.selected)
}

// UpdateAttributes replaces the attributes of id after validating them
// against the element's schema. The tree is unchanged on error.
func (t *Tree) UpdateAttributes(id string, attrs fields.Attributes) (fields.Element, error) {
	i := t.IndexOf(id)
	if i < 0 {
		return fields.Element{}, errors.NewElementNotFound(id)
	}
	clean, err := t.registry.ValidateAttributes(t.elements[i].Type, attrs)
	if err != nil {
		return fields.Element{}, err
	}
	t.elements[i].ExtraAttributes = clean
	return t.elements[i].Clone(), nil
}

// Snapshot returns a deep copy of the elements in order.
func (t *Tree) Snapshot() []fields.Element {
	out := make([]fields.Element, len(t.elements))
	for i, el := range t.elements {
		out[i] = el.Clone()
	}
	return out
}

// Hydrate replaces the whole tree. Every element is normalized and ids must
// be unique; on error the tree is left as it was. The selection is cleared.
func (t *Tree) Hydrate(elements []fields.Element) error {
	next := make([]fields.Element, 0, len(elements))
	seen := make(map[string]bool, len(elements))
	for _, el := range elements {
		norm, err := t.registry.Normalize(el)
		if err != nil {
			return err
		}
		if seen[norm.ID] {
			return errors.NewDuplicateID(norm.ID)
		}
		seen[norm.ID] = true
		next = append(next, norm)
	}
	t.elements = next
	t.selected = ""
	return nil
}

func (t *Tree) insertAt(index int, el fields.Element) {
	if index < 0 {
		index = 0
	}
	if index > len(t.elements) {
		index = len(t.elements)
	}
	t.elements = append(t.elements, fields.Element{})
	copy(t.elements[index+1:], t.elements[index:])
	t.elements[index] = el
}

func (t *Tree) removeAt(i int) fields.Element {
	el := t.elements[i]
	t.elements = append(t.elements[:i], t.elements[i+1:]...)
	return el
}
