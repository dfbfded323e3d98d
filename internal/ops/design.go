package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
)

// Design is a form loaded for editing: a hydrated tree and the content
// version it was read at.
type Design struct {
	Form           *form.Form
	Tree           *designer.Tree
	ContentVersion int64
}

// LoadForEditing reads one of the owner's forms and hydrates its design.
// Published forms load too; saving them fails later with FORM_PUBLISHED.
func (s *Service) LoadForEditing(ctx context.Context, owner, id string) (*Design, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.load(ctx, owner, id)
}

func (s *Service) load(ctx context.Context, owner, id string) (*Design, error) {
	f, err := s.store.GetForm(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	elements, err := s.decodeElements(f.Content)
	if err != nil {
		return nil, err
	}
	tree := designer.NewTree(s.registry)
	if err := tree.Hydrate(elements); err != nil {
		return nil, err
	}
	return &Design{Form: f, Tree: tree, ContentVersion: f.ContentVersion}, nil
}

// SaveContentInput contains parameters for the SaveContent operation.
type SaveContentInput struct {
	Owner       string           `json:"-"`
	ID          string           `json:"id"`
	Elements    []fields.Element `json:"elements"`
	BaseVersion *int64           `json:"base_version,omitempty"` // omitted: last write wins
}

// SaveOutput reports the stored design after a change.
type SaveOutput struct {
	ID             string           `json:"id"`
	ContentVersion int64            `json:"content_version"`
	Elements       []fields.Element `json:"elements"`
}

// SaveContent replaces a draft's design. Elements are normalized and checked
// for unknown types and duplicate ids before anything is written.
func (s *Service) SaveContent(ctx context.Context, input SaveContentInput) (*SaveOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}
	if err := s.checkElementCount(len(input.Elements)); err != nil {
		return nil, err
	}

	normalized, err := s.registry.CheckElements(input.Elements)
	if err != nil {
		return nil, err
	}
	tree := designer.NewTree(s.registry)
	if err := tree.Hydrate(normalized); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.ID)
	defer unlock()

	version, err := s.save(ctx, owner, input.ID, tree, input.BaseVersion)
	if err != nil {
		return nil, err
	}
	return &SaveOutput{ID: input.ID, ContentVersion: version, Elements: tree.Snapshot()}, nil
}

// DropInput contains parameters for the ApplyDrop operation. Target is one
// of "canvas", "before" or "after"; before and after need TargetID.
type DropInput struct {
	Owner       string          `json:"-"`
	ID          string          `json:"id"`
	Source      designer.Source `json:"source"`
	Target      string          `json:"target"`
	TargetID    string          `json:"target_id,omitempty"`
	BaseVersion *int64          `json:"base_version,omitempty"`
}

// DropOutput contains the result of the ApplyDrop operation.
type DropOutput struct {
	Result         designer.Result  `json:"result"`
	ContentVersion int64            `json:"content_version"`
	Elements       []fields.Element `json:"elements"`
}

// ApplyDrop runs one drag gesture against the stored design and saves the
// result. A drop that resolves to a no-op (including stale anchors, reported
// as a notice) writes nothing.
func (s *Service) ApplyDrop(ctx context.Context, input DropInput) (*DropOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}
	target, err := designer.ParseTarget(input.Target, input.TargetID)
	if err != nil {
		return nil, err
	}
	if input.Source.IsPalette() && s.fieldDisabled(input.Source.FieldType) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("field type %s is disabled", input.Source.FieldType))
	}

	unlock := s.locks.lock(input.ID)
	defer unlock()

	d, err := s.loadForChange(ctx, owner, input.ID, input.BaseVersion)
	if err != nil {
		return nil, err
	}

	ctrl := designer.NewController(d.Tree, designer.WithNotifier(designer.LogNotifier(s.logger)))
	if err := ctrl.Start(input.Source); err != nil {
		return nil, err
	}
	ctrl.Hover(target)
	res, err := ctrl.Drop(target)
	if err != nil {
		return nil, err
	}

	out := &DropOutput{Result: res, ContentVersion: d.ContentVersion}
	if res.Outcome != designer.OutcomeNoop {
		if err := s.checkElementCount(d.Tree.Len()); err != nil {
			return nil, err
		}
		version, err := s.save(ctx, owner, input.ID, d.Tree, &d.ContentVersion)
		if err != nil {
			return nil, err
		}
		out.ContentVersion = version
	}
	out.Elements = d.Tree.Snapshot()
	return out, nil
}

// UpdateElementInput contains parameters for the UpdateElement operation.
type UpdateElementInput struct {
	Owner       string            `json:"-"`
	ID          string            `json:"id"`
	ElementID   string            `json:"element_id"`
	Attributes  fields.Attributes `json:"attributes"`
	BaseVersion *int64            `json:"base_version,omitempty"`

	// AttributesFrom, when set, builds the attributes from the schema of the
	// element's type and replaces Attributes. It runs under the form lock on
	// the same load that is saved.
	AttributesFrom func(fields.Schema) fields.Attributes `json:"-"`
}

// ElementOutput reports the element touched by a change and the new version.
type ElementOutput struct {
	Element        fields.Element `json:"element"`
	ContentVersion int64          `json:"content_version"`
}

// UpdateElement replaces an element's attributes with validated
// property-editor input.
func (s *Service) UpdateElement(ctx context.Context, input UpdateElementInput) (*ElementOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.ID)
	defer unlock()

	d, err := s.loadForChange(ctx, owner, input.ID, input.BaseVersion)
	if err != nil {
		return nil, err
	}
	attrs := input.Attributes
	if input.AttributesFrom != nil {
		current, ok := d.Tree.Get(input.ElementID)
		if !ok {
			return nil, errors.NewElementNotFound(input.ElementID)
		}
		def, err := s.registry.Lookup(current.Type)
		if err != nil {
			return nil, err
		}
		attrs = input.AttributesFrom(def.Schema())
	}
	el, err := d.Tree.UpdateAttributes(input.ElementID, attrs)
	if err != nil {
		return nil, err
	}
	version, err := s.save(ctx, owner, input.ID, d.Tree, &d.ContentVersion)
	if err != nil {
		return nil, err
	}
	return &ElementOutput{Element: el, ContentVersion: version}, nil
}

// RemoveElementInput contains parameters for the RemoveElement operation.
type RemoveElementInput struct {
	Owner       string `json:"-"`
	ID          string `json:"id"`
	ElementID   string `json:"element_id"`
	BaseVersion *int64 `json:"base_version,omitempty"`
}

// RemoveElement deletes one element from a draft's design.
func (s *Service) RemoveElement(ctx context.Context, input RemoveElementInput) (*ElementOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.ID)
	defer unlock()

	d, err := s.loadForChange(ctx, owner, input.ID, input.BaseVersion)
	if err != nil {
		return nil, err
	}
	el, err := d.Tree.RemoveByID(input.ElementID)
	if err != nil {
		return nil, err
	}
	version, err := s.save(ctx, owner, input.ID, d.Tree, &d.ContentVersion)
	if err != nil {
		return nil, err
	}
	return &ElementOutput{Element: el, ContentVersion: version}, nil
}

// loadForChange loads a draft for a read-modify-write cycle. Callers hold the
// form lock.
func (s *Service) loadForChange(ctx context.Context, owner, id string, baseVersion *int64) (*Design, error) {
	d, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if d.Form.Published {
		return nil, errors.NewFormPublished(id)
	}
	if baseVersion != nil && *baseVersion != d.ContentVersion {
		return nil, errors.NewVersionConflict(*baseVersion, d.ContentVersion)
	}
	return d, nil
}

// save encodes the tree and writes it. Persistence errors are returned as is.
func (s *Service) save(ctx context.Context, owner, id string, tree *designer.Tree, baseVersion *int64) (int64, error) {
	data, err := designer.EncodeSnapshot(tree.Snapshot())
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if limit := s.cfg.MaxContentBytes; limit > 0 && len(data) > limit {
		return 0, errors.NewPayloadTooLarge("content", limit, len(data))
	}
	return s.store.UpdateContent(ctx, owner, id, string(data), baseVersion)
}

func (s *Service) checkElementCount(n int) error {
	if limit := s.cfg.MaxElements; limit > 0 && n > limit {
		return errors.NewPayloadTooLarge("elements", limit, n)
	}
	return nil
}
