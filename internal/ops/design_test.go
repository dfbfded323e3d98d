package ops

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
)

func construct(t *testing.T, typ fields.FieldType, id string) fields.Element {
	t.Helper()
	el, err := fields.Default().Construct(typ, id)
	require.NoError(t, err)
	return el
}

func TestSaveContent_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Survey form")

	elements := []fields.Element{
		construct(t, fields.TitleField, "t"),
		construct(t, fields.SelectField, "s"),
		construct(t, fields.SpacerField, "gap"),
	}
	elements[1].ExtraAttributes["options"] = []string{"red", "green"}

	out, err := svc.SaveContent(ctx, SaveContentInput{Owner: testOwner, ID: id, Elements: elements, BaseVersion: int64Ptr(0)})
	require.NoError(t, err)
	require.Equal(t, int64(1), out.ContentVersion)

	design, err := svc.LoadForEditing(ctx, testOwner, id)
	require.NoError(t, err)
	if diff := cmp.Diff(elements, design.Tree.Snapshot()); diff != "" {
		t.Errorf("stored design mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveContent_Rejections(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.MaxElements = 2
	svc := newTestService(t, cfg)
	id := createForm(t, svc, "Limited form")

	save := func(elements []fields.Element, base *int64) error {
		_, err := svc.SaveContent(ctx, SaveContentInput{Owner: testOwner, ID: id, Elements: elements, BaseVersion: base})
		return err
	}

	err := save([]fields.Element{{ID: "x", Type: "RatingField"}}, nil)
	require.True(t, errors.Is(err, errors.ErrUnknownFieldType))

	err = save([]fields.Element{construct(t, fields.TextField, "x"), construct(t, fields.DateField, "x")}, nil)
	require.True(t, errors.Is(err, errors.ErrDuplicateID))

	err = save([]fields.Element{construct(t, fields.TextField, "")}, nil)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	err = save([]fields.Element{
		construct(t, fields.TextField, "a"), construct(t, fields.TextField, "b"), construct(t, fields.TextField, "c"),
	}, nil)
	require.True(t, errors.Is(err, errors.ErrPayloadTooLarge))

	spacer := construct(t, fields.SpacerField, "gap")
	spacer.ExtraAttributes["height"] = -500
	unlabeled := construct(t, fields.TextField, "name")
	unlabeled.ExtraAttributes["label"] = ""
	err = save([]fields.Element{spacer, unlabeled}, nil)
	require.True(t, errors.Is(err, errors.ErrValidation))
	problems := errors.FieldErrors(err)
	require.Contains(t, problems, "gap.height")
	require.Contains(t, problems, "name.label")

	require.NoError(t, save([]fields.Element{construct(t, fields.TextField, "a")}, int64Ptr(0)))
	err = save([]fields.Element{}, int64Ptr(0))
	require.True(t, errors.Is(err, errors.ErrConflict), "stale base version")

	// Nothing above changed the stored design except the one good save.
	design, err := svc.LoadForEditing(ctx, testOwner, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), design.ContentVersion)
	require.Equal(t, []string{"a"}, elementIDs(design.Tree.Snapshot()))
}

func TestSaveContent_ContentByteLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxContentBytes = 64
	svc := newTestService(t, cfg)
	id := createForm(t, svc, "Tiny form")

	_, err := svc.SaveContent(context.Background(), SaveContentInput{
		Owner: testOwner, ID: id, Elements: []fields.Element{construct(t, fields.ParagraphField, "p")},
	})
	require.True(t, errors.Is(err, errors.ErrPayloadTooLarge))
}

func TestApplyDrop_MoveAndNoop(t *testing.T) {
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Ordering form")

	a := drop(t, svc, id, paletteDrop(fields.TextField, "canvas", "")).Result.Element.ID
	b := drop(t, svc, id, paletteDrop(fields.NumberField, "canvas", "")).Result.Element.ID

	moved := drop(t, svc, id, DropInput{Source: designer.ElementSource(a), Target: "after", TargetID: b})
	require.Equal(t, designer.OutcomeMoved, moved.Result.Outcome)
	require.Equal(t, []string{b, a}, elementIDs(moved.Elements))
	require.Equal(t, int64(3), moved.ContentVersion)

	// Dropping an element onto itself changes nothing and writes nothing.
	same := drop(t, svc, id, DropInput{Source: designer.ElementSource(a), Target: "before", TargetID: a})
	require.Equal(t, designer.OutcomeNoop, same.Result.Outcome)
	require.Equal(t, int64(3), same.ContentVersion)

	// Element onto the canvas background is a no-op too.
	bg := drop(t, svc, id, DropInput{Source: designer.ElementSource(a), Target: "canvas"})
	require.Equal(t, designer.OutcomeNoop, bg.Result.Outcome)
}

func TestApplyDrop_StaleAnchorIsNotice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Stale anchor form")
	drop(t, svc, id, paletteDrop(fields.TextField, "canvas", ""))

	out, err := svc.ApplyDrop(ctx, DropInput{
		Owner: testOwner, ID: id, Source: designer.PaletteSource(fields.DateField), Target: "after", TargetID: "gone",
	})
	require.NoError(t, err)
	require.Equal(t, designer.OutcomeNoop, out.Result.Outcome)
	require.NotNil(t, out.Result.Notice)
	require.Equal(t, errors.ErrElementNotFound, out.Result.Notice.Code)
	require.Equal(t, int64(1), out.ContentVersion)
	require.Len(t, out.Elements, 1)
}

func TestApplyDrop_Rejections(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.DisabledFieldTypes = []string{"DateField"}
	svc := newTestService(t, cfg)
	id := createForm(t, svc, "Rejections form")

	_, err := svc.ApplyDrop(ctx, DropInput{Owner: testOwner, ID: id, Source: designer.PaletteSource(fields.DateField), Target: "canvas"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "disabled type")

	_, err = svc.ApplyDrop(ctx, DropInput{Owner: testOwner, ID: id, Source: designer.PaletteSource(fields.TextField), Target: "sideways"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "bad target")

	_, err = svc.ApplyDrop(ctx, DropInput{Owner: testOwner, ID: id, Target: "canvas"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "empty source")

	_, err = svc.ApplyDrop(ctx, DropInput{Owner: testOwner, ID: id, Source: designer.PaletteSource(fields.TextField), Target: "canvas", BaseVersion: int64Ptr(7)})
	require.True(t, errors.Is(err, errors.ErrConflict), "stale base version")

	_, err = svc.ApplyDrop(ctx, DropInput{Owner: "mallory", ID: id, Source: designer.PaletteSource(fields.TextField), Target: "canvas"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "other owner")

	for _, item := range svc.Palette() {
		require.NotEqual(t, fields.DateField, item.Type)
	}
}

func TestApplyDrop_ConcurrentDropsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Busy form")

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyDrop(ctx, DropInput{
				Owner: testOwner, ID: id, Source: designer.PaletteSource(fields.TextField), Target: "canvas",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	design, err := svc.LoadForEditing(ctx, testOwner, id)
	require.NoError(t, err)
	require.Equal(t, n, design.Tree.Len())
	require.Equal(t, int64(n), design.ContentVersion)
}

func TestUpdateAndRemoveElement(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Editing form")
	spacer := drop(t, svc, id, paletteDrop(fields.SpacerField, "canvas", "")).Result.Element.ID

	_, err := svc.UpdateElement(ctx, UpdateElementInput{
		Owner: testOwner, ID: id, ElementID: spacer, Attributes: fields.Attributes{"height": 500},
	})
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Contains(t, errors.FieldErrors(err), "height")

	out, err := svc.UpdateElement(ctx, UpdateElementInput{
		Owner: testOwner, ID: id, ElementID: spacer, Attributes: fields.Attributes{"height": float64(40)},
	})
	require.NoError(t, err)
	require.Equal(t, 40, out.Element.ExtraAttributes.Int("height"))

	_, err = svc.RemoveElement(ctx, RemoveElementInput{Owner: testOwner, ID: id, ElementID: "ghost"})
	require.True(t, errors.Is(err, errors.ErrElementNotFound))

	removed, err := svc.RemoveElement(ctx, RemoveElementInput{Owner: testOwner, ID: id, ElementID: spacer})
	require.NoError(t, err)
	require.Equal(t, spacer, removed.Element.ID)
	require.Equal(t, int64(3), removed.ContentVersion)

	detail, err := svc.GetForm(ctx, testOwner, id)
	require.NoError(t, err)
	require.Empty(t, detail.Elements)
}

func TestUpdateElement_AttributesFromElementSchema(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := createForm(t, svc, "Panel form")
	spacer := drop(t, svc, id, paletteDrop(fields.SpacerField, "canvas", "")).Result.Element.ID

	calls := 0
	var seen []string
	fromPanel := func(schema fields.Schema) fields.Attributes {
		calls++
		seen = seen[:0]
		for _, a := range schema {
			seen = append(seen, a.Name)
		}
		return fields.Attributes{"height": "64"}
	}

	_, err := svc.UpdateElement(ctx, UpdateElementInput{
		Owner: testOwner, ID: id, ElementID: spacer, BaseVersion: int64Ptr(0), AttributesFrom: fromPanel,
	})
	require.True(t, errors.Is(err, errors.ErrConflict))
	require.Zero(t, calls, "stale version is rejected before the panel is read")

	_, err = svc.UpdateElement(ctx, UpdateElementInput{
		Owner: testOwner, ID: id, ElementID: "ghost", AttributesFrom: fromPanel,
	})
	require.True(t, errors.Is(err, errors.ErrElementNotFound))
	require.Zero(t, calls)

	out, err := svc.UpdateElement(ctx, UpdateElementInput{
		Owner: testOwner, ID: id, ElementID: spacer, BaseVersion: int64Ptr(1),
		Attributes: fields.Attributes{"height": 5000}, AttributesFrom: fromPanel,
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"height"}, seen)
	require.Equal(t, 64, out.Element.ExtraAttributes.Int("height"), "panel values replace Attributes")
	require.Equal(t, int64(2), out.ContentVersion)
}

func TestOwnerRequired(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	checks := map[string]error{}
	_, checks["create"] = svc.CreateForm(ctx, CreateInput{Name: "Nameless owner"})
	_, checks["list"] = svc.ListForms(ctx, ListInput{Owner: "  "})
	_, checks["get"] = svc.GetForm(ctx, "", "id")
	_, checks["stats"] = svc.Stats(ctx, "")
	_, checks["load"] = svc.LoadForEditing(ctx, "", "id")
	_, checks["save"] = svc.SaveContent(ctx, SaveContentInput{ID: "id"})
	_, checks["drop"] = svc.ApplyDrop(ctx, DropInput{ID: "id"})
	_, checks["publish"] = svc.Publish(ctx, "", "id")
	_, checks["delete"] = svc.DeleteForm(ctx, "", "id")
	_, checks["purge"] = svc.Purge(ctx, PurgeInput{})
	_, checks["submissions"] = svc.ListSubmissions(ctx, SubmissionsInput{FormID: "id"})
	_, checks["export"] = svc.Export(ctx, ExportInput{ID: "id"})
	_, checks["import"] = svc.Import(ctx, ImportInput{Path: "x.json"})

	for op, err := range checks {
		require.True(t, errors.Is(err, errors.ErrUnauthenticated), "%s: got %v", op, err)
	}
}
