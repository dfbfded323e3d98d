package ops

import (
	"context"

	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
)

// FormDetail is one form with its counters, public link and decoded design.
type FormDetail struct {
	form.Summary
	Stats     form.Stats       `json:"stats"`
	ShareLink string           `json:"share_link,omitempty"`
	Elements  []fields.Element `json:"elements"`
}

// GetForm returns one of the owner's forms. The share link is only set once
// the form is published.
func (s *Service) GetForm(ctx context.Context, owner, id string) (*FormDetail, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}

	f, err := s.store.GetForm(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	elements, err := s.decodeElements(f.Content)
	if err != nil {
		return nil, err
	}

	detail := &FormDetail{
		Summary:  f.ToSummary(),
		Stats:    form.ComputeStats(f.Visits, f.Submissions),
		Elements: elements,
	}
	if f.Published {
		detail.ShareLink = s.ShareLink(f.ShareURL)
	}
	return detail, nil
}

// StatsOutput contains the owner's totals across active forms.
type StatsOutput struct {
	form.Stats
}

// Stats sums visits and submissions over the owner's forms.
func (s *Service) Stats(ctx context.Context, owner string) (*StatsOutput, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	visits, submissions, err := s.store.Stats(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Stats: form.ComputeStats(visits, submissions)}, nil
}

// decodeElements parses stored content and brings every element into
// canonical shape.
func (s *Service) decodeElements(content string) ([]fields.Element, error) {
	decoded, err := designer.DecodeSnapshot([]byte(content))
	if err != nil {
		return nil, err
	}
	out := make([]fields.Element, 0, len(decoded))
	for _, el := range decoded {
		norm, err := s.registry.Normalize(el)
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return out, nil
}
