package ops

import (
	"context"

	"github.com/hpungsan/formcraft/internal/form"
)

// ListInput contains parameters for the ListForms operation.
type ListInput struct {
	Owner  string `json:"-"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ListOutput contains the result of the ListForms operation.
type ListOutput struct {
	Items      []form.Summary `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// ListForms returns the owner's forms, newest first.
func (s *Service) ListForms(ctx context.Context, input ListInput) (*ListOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	limit, offset := normalizePage(input.Limit, input.Offset)

	items, total, err := s.store.ListForms(ctx, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
	}, nil
}
