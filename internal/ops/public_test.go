package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
)

// publishedStore serves one published form and records submissions in memory.
type publishedStore struct {
	Persistence
	form     *form.Form
	recorded []*form.Submission
}

func (p *publishedStore) GetByShareURL(_ context.Context, shareURL string) (*form.Form, error) {
	if shareURL != p.form.ShareURL {
		return nil, errors.NewNotFound(shareURL)
	}
	return p.form, nil
}

func (p *publishedStore) RecordSubmission(_ context.Context, _ string, sub *form.Submission) error {
	sub.FormID = p.form.ID
	p.recorded = append(p.recorded, sub)
	return nil
}

func newPublishedStore(t *testing.T, elements ...fields.Element) *publishedStore {
	t.Helper()
	content, err := designer.EncodeSnapshot(elements)
	require.NoError(t, err)
	return &publishedStore{form: &form.Form{
		ID: "form-1", Name: "Event signup", Content: string(content), Published: true, ShareURL: "tok",
	}}
}

func required(t *testing.T, typ fields.FieldType, id string) fields.Element {
	t.Helper()
	el := construct(t, typ, id)
	el.ExtraAttributes["required"] = true
	return el
}

func TestCollectSubmission_ValidationFailureRecordsNothing(t *testing.T) {
	sel := construct(t, fields.SelectField, "size")
	sel.ExtraAttributes["options"] = []string{"S", "M", "L"}
	store := newPublishedStore(t,
		construct(t, fields.TitleField, "title"),
		required(t, fields.TextField, "name"),
		construct(t, fields.NumberField, "guests"),
		construct(t, fields.DateField, "day"),
		sel,
		required(t, fields.CheckboxField, "terms"),
	)
	svc, err := New(store, nil, nil)
	require.NoError(t, err)

	_, err = svc.CollectSubmission(context.Background(), "tok", map[string]string{
		"guests": "two",
		"day":    "31/12/2025",
		"size":   "XL",
		"terms":  "false",
	})
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Equal(t, map[string]string{
		"name":   "is required",
		"guests": "is not a valid value",
		"day":    "is not a valid value",
		"size":   "is not a valid value",
		"terms":  "must be checked",
	}, errors.FieldErrors(err))
	require.Empty(t, store.recorded)

	out, err := svc.CollectSubmission(context.Background(), "tok", map[string]string{
		"name":   "Grace",
		"guests": "2",
		"day":    "2025-12-31",
		"size":   "M",
		"terms":  "true",
		"title":  "not an input",
		"bogus":  "unknown id",
	})
	require.NoError(t, err)
	require.Equal(t, "form-1", out.FormID)
	require.Len(t, store.recorded, 1)

	values, err := form.DecodeValues(store.recorded[0].Content)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"name": "Grace", "guests": "2", "day": "2025-12-31", "size": "M", "terms": "true",
	}, values)
}

func TestCollectSubmission_SizeLimit(t *testing.T) {
	store := newPublishedStore(t, construct(t, fields.TextareaField, "bio"))
	cfg := config.DefaultConfig()
	cfg.MaxSubmissionBytes = 32
	svc, err := New(store, nil, cfg)
	require.NoError(t, err)

	_, err = svc.CollectSubmission(context.Background(), "tok", map[string]string{
		"bio": "a biography that is far too long to fit",
	})
	require.True(t, errors.Is(err, errors.ErrPayloadTooLarge))
	require.Empty(t, store.recorded)
}

func TestCollectSubmission_UnknownToken(t *testing.T) {
	svc, err := New(newPublishedStore(t), nil, nil)
	require.NoError(t, err)

	_, err = svc.CollectSubmission(context.Background(), "other", nil)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = svc.CollectSubmission(context.Background(), " ", nil)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPublicForm_DoesNotCountVisit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	created, err := svc.CreateForm(ctx, CreateInput{Owner: testOwner, Name: "Quiet form"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, testOwner, created.ID)
	require.NoError(t, err)

	_, err = svc.PublicForm(ctx, created.ShareURL)
	require.NoError(t, err)
	_, err = svc.OpenPublic(ctx, created.ShareURL)
	require.NoError(t, err)

	detail, err := svc.GetForm(ctx, testOwner, created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), detail.Visits)
}

func TestPublish_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Twice published")

	first, err := svc.Publish(ctx, testOwner, id)
	require.NoError(t, err)
	second, err := svc.Publish(ctx, testOwner, id)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCreateForm_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.CreateForm(ctx, CreateInput{Owner: testOwner, Name: "abc"})
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Contains(t, errors.FieldErrors(err), "name")

	createForm(t, svc, "Unique name")
	_, err = svc.CreateForm(ctx, CreateInput{Owner: testOwner, Name: "Unique   name"})
	require.True(t, errors.Is(err, errors.ErrConflict))
}

func TestNew_UnknownDisabledFieldType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledFieldTypes = []string{"RatingField"}
	_, err := New(nil, nil, cfg)
	require.True(t, errors.Is(err, errors.ErrUnknownFieldType))
}
