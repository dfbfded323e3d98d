package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/hpungsan/formcraft/internal/form"
)

// CreateInput contains parameters for the CreateForm operation.
type CreateInput struct {
	Owner       string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateOutput contains the result of the CreateForm operation.
type CreateOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShareURL  string `json:"share_url"`
	CreatedAt int64  `json:"created_at"`
}

// CreateForm stores a new empty draft. The share token is assigned here and
// never changes afterwards.
func (s *Service) CreateForm(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	name, description, err := form.ValidateDetails(input.Name, input.Description)
	if err != nil {
		return nil, err
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
		Content:     "[]",
		ShareURL:    uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateForm(ctx, f); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "form created", "form_id", f.ID, "owner", owner)
	return &CreateOutput{
		ID:        f.ID,
		Name:      f.Name,
		ShareURL:  f.ShareURL,
		CreatedAt: f.CreatedAt,
	}, nil
}
