// Package form holds the persisted form record and the pure helpers around it.
package form

// Form is a form owned by one user: its details, encoded design and counters.
type Form struct {
	// ID is a ULID that uniquely identifies this form
	ID string

	// Owner is the identity of the user who created the form
	Owner string

	// Name is the display name (whitespace-collapsed)
	Name string

	// Description is optional free text shown on the dashboard
	Description string

	// Content is the encoded design: a JSON array of elements
	Content string

	// ContentVersion increases by one on every content save
	ContentVersion int64

	// Published forms accept submissions and can no longer be edited
	Published bool

	// ShareURL is the public token used in /submit/{token}
	ShareURL string

	// Visits counts public opens of a published form
	Visits int64

	// Submissions counts accepted submissions
	Submissions int64

	// CreatedAt is the Unix timestamp when the form was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the form was last updated
	UpdatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// Submission is one accepted fill-in of a published form.
type Submission struct {
	ID        string `json:"id"`
	FormID    string `json:"form_id"`
	Content   string `json:"-"`
	CreatedAt int64  `json:"created_at"`
}
