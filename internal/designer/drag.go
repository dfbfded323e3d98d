package designer

import (
	"context"
	"log/slog"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
)

// Source is the thing being dragged: a palette button or a placed element.
type Source struct {
	FieldType fields.FieldType `json:"field_type,omitempty"`
	ElementID string           `json:"element_id,omitempty"`
}

// PaletteSource drags a new element of type t.
func PaletteSource(t fields.FieldType) Source {
	return Source{FieldType: t}
}

// ElementSource drags the placed element id.
func ElementSource(id string) Source {
	return Source{ElementID: id}
}

// IsPalette reports whether the source is a palette button.
func (s Source) IsPalette() bool { return s.ElementID == "" && s.FieldType != "" }

// IsElement reports whether the source is a placed element.
func (s Source) IsElement() bool { return s.ElementID != "" }

type targetKind uint8

const (
	targetNone targetKind = iota
	targetCanvas
	targetBefore
	targetAfter
)

// DropTarget is where the pointer was released. The zero value is no target.
type DropTarget struct {
	kind targetKind
	id   string
}

// Canvas is the open drop area below the last element.
func Canvas() DropTarget { return DropTarget{kind: targetCanvas} }

// Before is the top half of element id.
func Before(id string) DropTarget { return DropTarget{kind: targetBefore, id: id} }

// After is the bottom half of element id.
func After(id string) DropTarget { return DropTarget{kind: targetAfter, id: id} }

// IsZero reports whether there is no target.
func (d DropTarget) IsZero() bool { return d.kind == targetNone }

// IsCanvas reports whether the target is the drop area.
func (d DropTarget) IsCanvas() bool { return d.kind == targetCanvas }

// ElementID returns the anchor element, or "" for canvas and no target.
func (d DropTarget) ElementID() string { return d.id }

// IsAfter reports whether the target is the bottom half of an element.
func (d DropTarget) IsAfter() bool { return d.kind == targetAfter }

// String returns the wire name of the target kind.
func (d DropTarget) String() string {
	switch d.kind {
	case targetCanvas:
		return "canvas"
	case targetBefore:
		return "before"
	case targetAfter:
		return "after"
	}
	return "none"
}

// ParseTarget builds a target from its wire form: kind is "canvas", "before",
// "after" or "" (no target).
func ParseTarget(kind, elementID string) (DropTarget, error) {
	switch kind {
	case "":
		return DropTarget{}, nil
	case "canvas":
		return Canvas(), nil
	case "before", "after":
		if elementID == "" {
			return DropTarget{}, errors.NewInvalidRequest("target element_id is required for " + kind)
		}
		if kind == "before" {
			return Before(elementID), nil
		}
		return After(elementID), nil
	}
	return DropTarget{}, errors.NewInvalidRequest("unknown drop target: " + kind)
}

// HitTest maps a pointer position onto the two halves of an element occupying
// [top, top+height). Positions outside the element give no target.
func HitTest(id string, top, height, pointerY float64) DropTarget {
	if height <= 0 || pointerY < top || pointerY >= top+height {
		return DropTarget{}
	}
	if pointerY < top+height/2 {
		return Before(id)
	}
	return After(id)
}

// Outcome describes what a drop did to the tree.
type Outcome string

const (
	OutcomeNoop     Outcome = "noop"
	OutcomeInserted Outcome = "inserted"
	OutcomeMoved    Outcome = "moved"
)

// Result reports the effect of a drop. Element and Index are set for inserts
// and moves.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Element fields.Element `json:"element"`
	Index   int            `json:"index"`
	Notice  *Notice        `json:"notice,omitempty"`
}

var noop = Result{Outcome: OutcomeNoop, Index: -1}

// Resolve applies one drop to tree. newID names the element created by a
// palette drop. Cases are checked in order: palette onto canvas appends,
// palette onto an element half inserts next to it, element onto an element
// half moves it there. Every other combination leaves the tree unchanged.
func Resolve(tree *Tree, src Source, target DropTarget, newID string) (Result, error) {
	switch {
	case src.IsPalette() && target.IsCanvas():
		el, err := tree.Registry().Construct(src.FieldType, newID)
		if err != nil {
			return noop, err
		}
		index := tree.Len()
		if err := tree.Insert(index, el); err != nil {
			return noop, err
		}
		return Result{Outcome: OutcomeInserted, Element: el, Index: index}, nil

	case src.IsPalette() && target.ElementID() != "":
		el, err := tree.Registry().Construct(src.FieldType, newID)
		if err != nil {
			return noop, err
		}
		index := tree.IndexOf(target.ElementID())
		if index < 0 {
			return noop, errors.NewElementNotFound(target.ElementID())
		}
		if target.IsAfter() {
			index++
		}
		if err := tree.Insert(index, el); err != nil {
			return noop, err
		}
		return Result{Outcome: OutcomeInserted, Element: el, Index: index}, nil

	case src.IsElement() && target.ElementID() != "":
		if src.ElementID == target.ElementID() {
			return noop, nil
		}
		before := tree.IndexOf(src.ElementID)
		index, err := tree.MoveNextTo(src.ElementID, target.ElementID(), target.IsAfter())
		if err != nil {
			return noop, err
		}
		el, _ := tree.Get(src.ElementID)
		if index == before {
			return Result{Outcome: OutcomeNoop, Element: el, Index: index}, nil
		}
		return Result{Outcome: OutcomeMoved, Element: el, Index: index}, nil
	}
	return noop, nil
}

// Notice is a drop that was dropped on the floor because the tree no longer
// matched the gesture.
type Notice struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Source  Source           `json:"source"`
	Target  string           `json:"target"`
}

// Notifier receives drop notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to logger at warn level.
func LogNotifier(logger *slog.Logger) Notifier {
	return NotifierFunc(func(n Notice) {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "drop ignored",
			slog.String("code", string(n.Code)),
			slog.String("message", n.Message),
			slog.String("source_type", string(n.Source.FieldType)),
			slog.String("source_element", n.Source.ElementID),
			slog.String("target", n.Target),
		)
	})
}

// State is the controller's gesture state.
type State uint8

const (
	Idle State = iota
	Dragging
)

// Indicator is the hover feedback drawn on an element while dragging.
type Indicator struct {
	ElementID string `json:"element_id,omitempty"`
	Top       bool   `json:"top"`
	Bottom    bool   `json:"bottom"`
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNotifier reports integrity notices to n.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) { c.notifier = n }
}

// WithIDSource replaces the element id generator.
func WithIDSource(next func() (string, error)) ControllerOption {
	return func(c *Controller) { c.newID = next }
}

// Controller runs drag gestures against a tree: Start, any number of Hover
// calls, then Drop or Cancel.
type Controller struct {
	tree      *Tree
	notifier  Notifier
	newID     func() (string, error)
	state     State
	source    Source
	indicator Indicator
}

// NewController returns an idle controller for tree.
func NewController(tree *Tree, opts ...ControllerOption) *Controller {
	c := &Controller{tree: tree, newID: fields.NewElementID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// Indicator returns the current hover indicator.
func (c *Controller) Indicator() Indicator { return c.indicator }

// Start begins a gesture. Starting while dragging replaces the gesture.
func (c *Controller) Start(src Source) error {
	if !src.IsPalette() && !src.IsElement() {
		return errors.NewInvalidRequest("drag source must name a field type or an element")
	}
	c.state = Dragging
	c.source = src
	c.indicator = Indicator{}
	return nil
}

// Hover records the target under the pointer and returns the indicator to draw.
// Hovering over the dragged element itself shows nothing.
func (c *Controller) Hover(target DropTarget) Indicator {
	if c.state != Dragging || target.ElementID() == "" || target.ElementID() == c.source.ElementID {
		c.indicator = Indicator{}
		return c.indicator
	}
	c.indicator = Indicator{
		ElementID: target.ElementID(),
		Top:       !target.IsAfter(),
		Bottom:    target.IsAfter(),
	}
	return c.indicator
}

// Drop ends the gesture at target. Integrity failures (unknown type, stale or
// duplicate element id) become a no-op Result carrying a Notice; other errors
// are returned.
func (c *Controller) Drop(target DropTarget) (Result, error) {
	if c.state != Dragging {
		return noop, nil
	}
	src := c.source
	c.reset()

	var newID string
	if src.IsPalette() {
		id, err := c.newID()
		if err != nil {
			return noop, errors.NewInternal(err)
		}
		newID = id
	}

	res, err := Resolve(c.tree, src, target, newID)
	if err == nil {
		return res, nil
	}
	if !isIntegrityError(err) {
		return noop, err
	}

	appErr := errors.As(err)
	notice := &Notice{
		Code:    appErr.Code,
		Message: appErr.Message,
		Source:  src,
		Target:  target.String(),
	}
	if c.notifier != nil {
		c.notifier.Notify(*notice)
	}
	res = noop
	res.Notice = notice
	return res, nil
}

// Cancel abandons the gesture without touching the tree.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) reset() {
	c.state = Idle
	c.source = Source{}
	c.indicator = Indicator{}
}

func isIntegrityError(err error) bool {
	return errors.Is(err, errors.ErrUnknownFieldType) ||
		errors.Is(err, errors.ErrElementNotFound) ||
		errors.Is(err, errors.ErrDuplicateID)
}
