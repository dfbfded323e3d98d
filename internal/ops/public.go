package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
)

// PublicForm is what a visitor sees of a published form.
type PublicForm struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	ShareURL    string           `json:"share_url"`
	Elements    []fields.Element `json:"elements"`
}

// OpenPublic counts a visit and returns the published form behind shareURL.
// Drafts and unknown tokens fail with NOT_FOUND.
func (s *Service) OpenPublic(ctx context.Context, shareURL string) (*PublicForm, error) {
	if strings.TrimSpace(shareURL) == "" {
		return nil, errors.NewNotFound(shareURL)
	}
	f, err := s.store.OpenPublished(ctx, shareURL)
	if err != nil {
		return nil, err
	}
	return s.publicForm(f)
}

// PublicForm returns the published form behind shareURL without counting a
// visit. Used to re-render a rejected submission.
func (s *Service) PublicForm(ctx context.Context, shareURL string) (*PublicForm, error) {
	if strings.TrimSpace(shareURL) == "" {
		return nil, errors.NewNotFound(shareURL)
	}
	f, err := s.store.GetByShareURL(ctx, shareURL)
	if err != nil {
		return nil, err
	}
	return s.publicForm(f)
}

func (s *Service) publicForm(f *form.Form) (*PublicForm, error) {
	elements, err := s.decodeElements(f.Content)
	if err != nil {
		return nil, err
	}
	return &PublicForm{
		Name:        f.Name,
		Description: f.Description,
		ShareURL:    f.ShareURL,
		Elements:    elements,
	}, nil
}

// SubmitOutput contains the result of the CollectSubmission operation.
type SubmitOutput struct {
	ID        string `json:"id"`
	FormID    string `json:"form_id"`
	CreatedAt int64  `json:"created_at"`
}

// CollectSubmission validates values (keyed by element id) against every
// input element of the published form and records them. Any rejected value
// fails the whole submission with VALIDATION_FAILED, one entry per element id,
// and nothing is stored. Values for layout elements or unknown ids are dropped.
func (s *Service) CollectSubmission(ctx context.Context, shareURL string, values map[string]string) (*SubmitOutput, error) {
	if strings.TrimSpace(shareURL) == "" {
		return nil, errors.NewNotFound(shareURL)
	}
	f, err := s.store.GetByShareURL(ctx, shareURL)
	if err != nil {
		return nil, err
	}
	elements, err := s.decodeElements(f.Content)
	if err != nil {
		return nil, err
	}

	accepted := make(map[string]string)
	problems := make(map[string]string)
	for _, el := range elements {
		if !s.registry.IsInput(el.Type) {
			continue
		}
		value := values[el.ID]
		ok, err := s.registry.Validate(el, value)
		if err != nil {
			return nil, err
		}
		if !ok {
			problems[el.ID] = rejectionMessage(el, value)
			continue
		}
		accepted[el.ID] = value
	}
	if len(problems) > 0 {
		return nil, errors.NewValidation(problems)
	}

	content, err := form.EncodeValues(accepted)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if limit := s.cfg.MaxSubmissionBytes; limit > 0 && len(content) > limit {
		return nil, errors.NewPayloadTooLarge("submission", limit, len(content))
	}

	id, err := generateULID()
	if err != nil {
		return nil, err
	}
	sub := &form.Submission{ID: id, Content: content, CreatedAt: s.now().Unix()}
	if err := s.store.RecordSubmission(ctx, shareURL, sub); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "submission recorded", "form_id", sub.FormID, "submission_id", sub.ID)
	return &SubmitOutput{ID: sub.ID, FormID: sub.FormID, CreatedAt: sub.CreatedAt}, nil
}

func rejectionMessage(el fields.Element, value string) string {
	if el.ExtraAttributes.Bool("required") {
		if strings.TrimSpace(value) == "" {
			return "is required"
		}
		if el.Type == fields.CheckboxField && value != "true" {
			return "must be checked"
		}
	}
	return "is not a valid value"
}
