package form

// Summary represents a form's metadata without its design content.
// Used for list operations to reduce data transfer.
type Summary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Published      bool   `json:"published"`
	ShareURL       string `json:"share_url"`
	ContentVersion int64  `json:"content_version"`
	Visits         int64  `json:"visits"`
	Submissions    int64  `json:"submissions"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
	DeletedAt      *int64 `json:"deleted_at,omitempty"`
}

// ToSummary converts a Form to a Summary by stripping the design content.
func (f *Form) ToSummary() Summary {
	return Summary{
		ID:             f.ID,
		Name:           f.Name,
		Description:    f.Description,
		Published:      f.Published,
		ShareURL:       f.ShareURL,
		ContentVersion: f.ContentVersion,
		Visits:         f.Visits,
		Submissions:    f.Submissions,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
		DeletedAt:      f.DeletedAt,
	}
}
