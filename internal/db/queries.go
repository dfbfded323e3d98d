package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/form"
)

// Store is the SQLite-backed persistence for forms and submissions.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

const formColumns = `
	id, owner, name, description, content, content_version, published,
	share_url, visits, submissions, created_at, updated_at, deleted_at
`

// CreateForm stores a new draft form. A second active form with the same
// owner and name fails with CONFLICT.
func (s *Store) CreateForm(ctx context.Context, f *form.Form) error {
	query := `
		INSERT INTO forms (
			id, owner, name, description, content, content_version, published,
			share_url, visits, submissions, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, 0, 0, ?, ?, NULL)
	`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.Owner, f.Name, f.Description, f.Content, f.ContentVersion,
		f.ShareURL, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict(fmt.Sprintf("a form named %q already exists", f.Name))
		}
		return dbError(ctx, "create form", err)
	}
	return nil
}

// GetForm retrieves an active form owned by owner.
func (s *Store) GetForm(ctx context.Context, owner, id string) (*form.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = ? AND owner = ? AND deleted_at IS NULL`

	f, err := scanForm(s.db.QueryRowContext(ctx, query, id, owner))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, dbError(ctx, "get form", err)
	}
	return f, nil
}

// GetByShareURL retrieves a published, active form by its public token.
func (s *Store) GetByShareURL(ctx context.Context, shareURL string) (*form.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE share_url = ? AND published = 1 AND deleted_at IS NULL`

	f, err := scanForm(s.db.QueryRowContext(ctx, query, shareURL))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(shareURL)
	}
	if err != nil {
		return nil, dbError(ctx, "get form by share url", err)
	}
	return f, nil
}

// ListForms returns summaries of the owner's active forms, newest first,
// plus the total count.
func (s *Store) ListForms(ctx context.Context, owner string, limit, offset int) ([]form.Summary, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM forms WHERE owner = ? AND deleted_at IS NULL`, owner,
	).Scan(&total)
	if err != nil {
		return nil, 0, dbError(ctx, "count forms", err)
	}

	query := `SELECT ` + formColumns + ` FROM forms
		WHERE owner = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, 0, dbError(ctx, "list forms", err)
	}
	defer rows.Close()

	summaries := make([]form.Summary, 0, limit)
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, dbError(ctx, "list forms", err)
		}
		summaries = append(summaries, f.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError(ctx, "list forms", err)
	}
	return summaries, total, nil
}

// UpdateContent replaces the design of a draft form and returns the new
// content version. When baseVersion is non-nil the update only applies if the
// stored version still equals it; otherwise the save is last-write-wins.
// Published forms fail with FORM_PUBLISHED.
func (s *Store) UpdateContent(ctx context.Context, owner, id, content string, baseVersion *int64) (int64, error) {
	now := time.Now().Unix()

	query := `
		UPDATE forms
		SET content = ?, content_version = content_version + 1, updated_at = ?
		WHERE id = ? AND owner = ? AND deleted_at IS NULL AND published = 0
	`
	args := []any{content, now, id, owner}
	if baseVersion != nil {
		query += " AND content_version = ?"
		args = append(args, *baseVersion)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbError(ctx, "update content", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, dbError(ctx, "update content", err)
	}

	// Re-read to report either the new version or why nothing changed.
	current, err := s.GetForm(ctx, owner, id)
	if err != nil {
		return 0, err
	}
	if rowsAffected == 1 {
		return current.ContentVersion, nil
	}
	if current.Published {
		return 0, errors.NewFormPublished(id)
	}
	if baseVersion != nil && current.ContentVersion != *baseVersion {
		return 0, errors.NewVersionConflict(*baseVersion, current.ContentVersion)
	}
	return 0, errors.NewConflict("form content changed concurrently")
}

// Publish marks a form as published. Publishing twice is a no-op.
func (s *Store) Publish(ctx context.Context, owner, id string) (*form.Form, error) {
	query := `
		UPDATE forms
		SET published = 1, updated_at = ?
		WHERE id = ? AND owner = ? AND deleted_at IS NULL AND published = 0
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().Unix(), id, owner); err != nil {
		return nil, dbError(ctx, "publish form", err)
	}
	return s.GetForm(ctx, owner, id)
}

// SoftDelete marks a draft form as deleted. Published forms are kept.
func (s *Store) SoftDelete(ctx context.Context, owner, id string) error {
	query := `
		UPDATE forms
		SET deleted_at = ?
		WHERE id = ? AND owner = ? AND deleted_at IS NULL AND published = 0
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), id, owner)
	if err != nil {
		return dbError(ctx, "delete form", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dbError(ctx, "delete form", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	f, err := s.GetForm(ctx, owner, id)
	if err != nil {
		return err
	}
	if f.Published {
		return errors.NewFormPublished(id)
	}
	return errors.NewNotFound(id)
}

// PurgeDeleted permanently removes the owner's soft-deleted forms (and their
// submissions) deleted before cutoff. A zero cutoff purges all of them.
func (s *Store) PurgeDeleted(ctx context.Context, owner string, cutoff time.Time) (int, error) {
	where := `owner = ? AND deleted_at IS NOT NULL`
	args := []any{owner}
	if !cutoff.IsZero() {
		where += ` AND deleted_at < ?`
		args = append(args, cutoff.Unix())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, dbError(ctx, "purge", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM submissions WHERE form_id IN (SELECT id FROM forms WHERE `+where+`)`, args...,
	); err != nil {
		return 0, dbError(ctx, "purge submissions", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM forms WHERE `+where, args...)
	if err != nil {
		return 0, dbError(ctx, "purge forms", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, dbError(ctx, "purge forms", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, dbError(ctx, "purge", err)
	}
	return int(count), nil
}

// OpenPublished counts a visit to the published form behind shareURL and
// returns it. Unknown or unpublished tokens fail with NOT_FOUND.
func (s *Store) OpenPublished(ctx context.Context, shareURL string) (*form.Form, error) {
	query := `
		UPDATE forms
		SET visits = visits + 1
		WHERE share_url = ? AND published = 1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, shareURL)
	if err != nil {
		return nil, dbError(ctx, "open form", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, dbError(ctx, "open form", err)
	}
	if rowsAffected == 0 {
		return nil, errors.NewNotFound(shareURL)
	}
	return s.GetByShareURL(ctx, shareURL)
}

// RecordSubmission stores sub against the published form behind shareURL and
// bumps its submission counter in one transaction. sub.FormID is filled in.
func (s *Store) RecordSubmission(ctx context.Context, shareURL string, sub *form.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(ctx, "record submission", err)
	}
	defer tx.Rollback()

	var formID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM forms WHERE share_url = ? AND published = 1 AND deleted_at IS NULL`, shareURL,
	).Scan(&formID)
	if err == sql.ErrNoRows {
		return errors.NewNotFound(shareURL)
	}
	if err != nil {
		return dbError(ctx, "record submission", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (id, form_id, content, created_at) VALUES (?, ?, ?, ?)`,
		sub.ID, formID, sub.Content, sub.CreatedAt,
	); err != nil {
		return dbError(ctx, "record submission", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE forms SET submissions = submissions + 1 WHERE id = ?`, formID,
	); err != nil {
		return dbError(ctx, "record submission", err)
	}

	if err := tx.Commit(); err != nil {
		return dbError(ctx, "record submission", err)
	}
	sub.FormID = formID
	return nil
}

// ListSubmissions returns submissions of one of the owner's forms, newest
// first, plus the total count.
func (s *Store) ListSubmissions(ctx context.Context, owner, formID string, limit, offset int) ([]form.Submission, int, error) {
	if _, err := s.GetForm(ctx, owner, formID); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE form_id = ?`, formID,
	).Scan(&total); err != nil {
		return nil, 0, dbError(ctx, "count submissions", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, content, created_at FROM submissions
		WHERE form_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, formID, limit, offset)
	if err != nil {
		return nil, 0, dbError(ctx, "list submissions", err)
	}
	defer rows.Close()

	subs := make([]form.Submission, 0, limit)
	for rows.Next() {
		var sub form.Submission
		if err := rows.Scan(&sub.ID, &sub.FormID, &sub.Content, &sub.CreatedAt); err != nil {
			return nil, 0, dbError(ctx, "list submissions", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError(ctx, "list submissions", err)
	}
	return subs, total, nil
}

// Stats sums visits and submissions over the owner's active forms.
func (s *Store) Stats(ctx context.Context, owner string) (visits, submissions int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(visits), 0), COALESCE(SUM(submissions), 0)
		FROM forms WHERE owner = ? AND deleted_at IS NULL`, owner,
	).Scan(&visits, &submissions)
	if err != nil {
		return 0, 0, dbError(ctx, "stats", err)
	}
	return visits, submissions, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dbError maps a driver error to CANCELLED when the context ended, otherwise
// to PERSISTENCE with the driver's message.
func dbError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCancelled(op)
	}
	return errors.NewPersistence(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanForm scans a single row into a Form struct.
func scanForm(row rowScanner) (*form.Form, error) {
	var (
		f         form.Form
		published int
		deletedAt sql.NullInt64
	)
	err := row.Scan(
		&f.ID, &f.Owner, &f.Name, &f.Description, &f.Content, &f.ContentVersion, &published,
		&f.ShareURL, &f.Visits, &f.Submissions, &f.CreatedAt, &f.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Published = published != 0
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Int64
	}
	return &f, nil
}
