package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/formcraft/internal/errors"
)

// PublishOutput contains the result of the Publish operation.
type PublishOutput struct {
	ID        string `json:"id"`
	Published bool   `json:"published"`
	ShareURL  string `json:"share_url"`
	ShareLink string `json:"share_link"`
}

// Publish makes a form public. It cannot be undone; publishing a published
// form returns the same result.
func (s *Service) Publish(ctx context.Context, owner, id string) (*PublishOutput, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	f, err := s.store.Publish(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "form published", "form_id", f.ID, "owner", owner)
	return &PublishOutput{
		ID:        f.ID,
		Published: f.Published,
		ShareURL:  f.ShareURL,
		ShareLink: s.ShareLink(f.ShareURL),
	}, nil
}

// DeleteOutput contains the result of the DeleteForm operation.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeleteForm soft-deletes a draft. Published forms fail with FORM_PUBLISHED.
func (s *Service) DeleteForm(ctx context.Context, owner, id string) (*DeleteOutput, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.store.SoftDelete(ctx, owner, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{ID: id, Deleted: true}, nil
}

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Owner         string `json:"-"`
	OlderThanDays *int   `json:"older_than_days,omitempty"` // only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently removes the owner's soft-deleted forms and their submissions.
func (s *Service) Purge(ctx context.Context, input PurgeInput) (*PurgeOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must be non-negative")
		}
		cutoff = s.now().Add(-time.Duration(*input.OlderThanDays) * 24 * time.Hour)
	}

	count, err := s.store.PurgeDeleted(ctx, owner, cutoff)
	if err != nil {
		return nil, err
	}
	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No deleted forms to purge"
	}

	word := "form"
	if count > 1 {
		word = "forms"
	}
	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
