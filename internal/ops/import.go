package ops

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/form"
)

// maxImportFileBytes caps how much of an import file is read.
const maxImportFileBytes = 8 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Owner string `json:"-"`
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"` // overrides the document's name
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ShareURL string `json:"share_url"`
	Elements int    `json:"elements"`
}

// Import reads an exported design and stores it as a new draft. The design
// is fully checked (known types, unique ids, size limits) before anything is
// written.
func (s *Service) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := ValidatePath(input.Path, PathCheckRead, s.cfg, s.exportsDir); err != nil {
		return nil, err
	}
	format, err := form.FormatFromPath(input.Path)
	if err != nil {
		return nil, err
	}

	data, err := readImportFile(input.Path)
	if err != nil {
		return nil, err
	}
	doc, err := form.UnmarshalDocument(data, format)
	if err != nil {
		return nil, err
	}

	name := doc.Name
	if input.Name != "" {
		name = input.Name
	}
	name, description, err := form.ValidateDetails(name, doc.Description)
	if err != nil {
		return nil, err
	}

	if err := s.checkElementCount(len(doc.Elements)); err != nil {
		return nil, err
	}
	normalized, err := s.registry.CheckElements(doc.Elements)
	if err != nil {
		return nil, err
	}
	tree := designer.NewTree(s.registry)
	if err := tree.Hydrate(normalized); err != nil {
		return nil, err
	}
	content, err := designer.EncodeSnapshot(tree.Snapshot())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if limit := s.cfg.MaxContentBytes; limit > 0 && len(content) > limit {
		return nil, errors.NewPayloadTooLarge("content", limit, len(content))
	}

	id, err := generateULID()
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	f := &form.Form{
		ID:          id,
		Owner:       owner,
		Name:        name,
		Description: description,
		Content:     string(content),
		ShareURL:    uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateForm(ctx, f); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "form imported", "form_id", f.ID, "owner", owner, "path", input.Path)
	return &ImportOutput{
		ID:       f.ID,
		Name:     f.Name,
		ShareURL: f.ShareURL,
		Elements: tree.Len(),
	}, nil
}

func readImportFile(path string) ([]byte, error) {
	file, err := openNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrFileNotFound) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > maxImportFileBytes {
		return nil, errors.NewPayloadTooLarge("import file", maxImportFileBytes, len(data))
	}
	return data, nil
}
