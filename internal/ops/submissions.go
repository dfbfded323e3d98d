package ops

import (
	"context"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/form"
)

// SubmissionsInput contains parameters for the ListSubmissions operation.
type SubmissionsInput struct {
	Owner  string `json:"-"`
	FormID string `json:"form_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SubmissionItem is one stored submission with its decoded values.
type SubmissionItem struct {
	form.Submission
	Values map[string]string `json:"values"`
}

// SubmissionsOutput contains the result of the ListSubmissions operation.
type SubmissionsOutput struct {
	Items      []SubmissionItem `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// ListSubmissions returns submissions of one of the owner's forms, newest first.
func (s *Service) ListSubmissions(ctx context.Context, input SubmissionsInput) (*SubmissionsOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.FormID); err != nil {
		return nil, err
	}
	limit, offset := normalizePage(input.Limit, input.Offset)

	subs, total, err := s.store.ListSubmissions(ctx, owner, input.FormID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]SubmissionItem, 0, len(subs))
	for _, sub := range subs {
		values, err := form.DecodeValues(sub.Content)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, SubmissionItem{Submission: sub, Values: values})
	}
	return &SubmissionsOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
	}, nil
}
