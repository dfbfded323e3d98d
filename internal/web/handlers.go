package web

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/ops"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc      *ops.Service
	cfg      *config.Config
	renderer *Renderer
	logger   *slog.Logger
}

// owner resolves the calling user from the identity header, falling back to
// the configured default owner.
func (h *Handlers) owner(r *http.Request) string {
	if h.cfg.IdentityHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(h.cfg.IdentityHeader)); v != "" {
			return v
		}
	}
	return h.cfg.WebDefaultOwner
}

// HandleDashboard lists the owner's forms with their totals.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, "", "", nil)
}

func (h *Handlers) renderDashboard(w http.ResponseWriter, r *http.Request, status int, name, description string, problems map[string]string) {
	owner := h.owner(r)
	limit, err := parseIntParam(r, "limit", ops.DefaultListLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), owner)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	list, err := h.svc.ListForms(r.Context(), ops.ListInput{Owner: owner, Limit: limit, Offset: offset})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPageStatus(w, r, status, "dashboard", DashboardPageData{
		PageData:    h.renderer.page("Forms", "forms"),
		Stats:       stats.Stats,
		Items:       list.Items,
		Pagination:  list.Pagination,
		Name:        name,
		Description: description,
		Problems:    problems,
	})
}

// HandleCreate creates a form from the dashboard and opens it in the designer.
// Rejected details re-render the dashboard with inline errors.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	name := r.PostForm.Get("name")
	description := r.PostForm.Get("description")

	out, err := h.svc.CreateForm(r.Context(), ops.CreateInput{
		Owner:       h.owner(r),
		Name:        name,
		Description: description,
	})
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrValidation):
			h.renderDashboard(w, r, http.StatusUnprocessableEntity, name, description, errors.FieldErrors(err))
		case errors.Is(err, errors.ErrConflict):
			h.renderDashboard(w, r, http.StatusConflict, name, description, map[string]string{"name": errors.As(err).Message})
		default:
			h.renderer.renderError(w, r, err)
		}
		return
	}
	http.Redirect(w, r, "/forms/"+out.ID+"/designer", http.StatusSeeOther)
}

// HandleDetail shows one form's counters, share link and submissions.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	owner := h.owner(r)

	limit, err := parseIntParam(r, "limit", ops.DefaultListLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	detail, err := h.svc.GetForm(r.Context(), owner, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	subs, err := h.svc.ListSubmissions(r.Context(), ops.SubmissionsInput{
		Owner:  owner,
		FormID: id,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	reg := h.svc.Registry()
	var columns []column
	for _, el := range detail.Elements {
		if reg.IsInput(el.Type) {
			columns = append(columns, column{ID: el.ID, Label: el.ExtraAttributes.String("label")})
		}
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:    h.renderer.page(detail.Name, "forms"),
		Form:        detail,
		Submissions: subs.Items,
		Columns:     columns,
		Pagination:  subs.Pagination,
	})
}

// HandleDelete soft-deletes a draft.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.svc.DeleteForm(r.Context(), h.owner(r), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/forms")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/forms", http.StatusSeeOther)
}

// HandlePublish publishes a draft and shows its overview with the share link.
func (h *Handlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.svc.Publish(r.Context(), h.owner(r), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/forms/"+id, http.StatusSeeOther)
}

// HandlePreview renders the form the way visitors will see it, without a
// submit button.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetForm(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	rendered, err := renderFillIn(h.svc.Registry(), detail.Elements, nil, nil, false)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	h.renderer.renderPage(w, r, "preview", PreviewPageData{
		PageData:    h.renderer.page("Preview: "+detail.Name, "forms"),
		Name:        detail.Name,
		Description: detail.Description,
		Elements:    rendered,
	})
}

// HandleDesigner renders the palette, the canvas and the properties panel of
// the selected element.
func (h *Handlers) HandleDesigner(w http.ResponseWriter, r *http.Request) {
	h.renderDesigner(w, r, http.StatusOK, r.URL.Query().Get("selected"), r.URL.Query().Get("notice"), nil)
}

func (h *Handlers) renderDesigner(w http.ResponseWriter, r *http.Request, status int, selected, notice string, problems map[string]string) {
	d, err := h.svc.LoadForEditing(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	reg := h.svc.Registry()
	elements := d.Tree.Snapshot()

	canvas, err := renderCanvas(reg, elements, selected)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	sel, err := renderSelected(reg, elements, selected, problems)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	h.renderer.renderPageStatus(w, r, status, "designer", DesignerPageData{
		PageData:       h.renderer.page("Designer: "+d.Form.Name, "forms"),
		FormID:         d.Form.ID,
		FormName:       d.Form.Name,
		Published:      d.Form.Published,
		ContentVersion: d.ContentVersion,
		Palette:        h.svc.Palette(),
		Canvas:         canvas,
		Selected:       sel,
		Notice:         notice,
	})
}

// HandleDesignerDrop applies one drop posted by the designer page: a palette
// button (field_type) or a placed element (element_id) onto the canvas or
// before/after an element.
func (h *Handlers) HandleDesignerDrop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	baseVersion, err := parseVersion(r.PostForm.Get("base_version"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := h.svc.ApplyDrop(r.Context(), ops.DropInput{
		Owner: h.owner(r),
		ID:    id,
		Source: designer.Source{
			FieldType: fields.FieldType(r.PostForm.Get("field_type")),
			ElementID: r.PostForm.Get("element_id"),
		},
		Target:      r.PostForm.Get("target"),
		TargetID:    r.PostForm.Get("target_id"),
		BaseVersion: baseVersion,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	q := url.Values{}
	if out.Result.Element.ID != "" {
		q.Set("selected", out.Result.Element.ID)
	}
	if out.Result.Notice != nil {
		q.Set("notice", out.Result.Notice.Message)
	}
	redirectDesigner(w, r, id, q)
}

// HandleDesignerUpdate saves the properties panel of one element. Rejected
// attributes re-render the designer with the messages next to their inputs.
func (h *Handlers) HandleDesignerUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	elementID := r.PathValue("elementID")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	baseVersion, err := parseVersion(r.PostForm.Get("base_version"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	_, err = h.svc.UpdateElement(r.Context(), ops.UpdateElementInput{
		Owner:       h.owner(r),
		ID:          id,
		ElementID:   elementID,
		BaseVersion: baseVersion,
		AttributesFrom: func(schema fields.Schema) fields.Attributes {
			return attributesFromForm(schema, r.PostForm)
		},
	})
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			h.renderDesigner(w, r, http.StatusUnprocessableEntity, elementID, "", errors.FieldErrors(err))
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	redirectDesigner(w, r, id, url.Values{"selected": {elementID}})
}

// HandleDesignerRemove deletes one element from the canvas.
func (h *Handlers) HandleDesignerRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	baseVersion, err := parseVersion(r.PostForm.Get("base_version"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	_, err = h.svc.RemoveElement(r.Context(), ops.RemoveElementInput{
		Owner:       h.owner(r),
		ID:          id,
		ElementID:   r.PathValue("elementID"),
		BaseVersion: baseVersion,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirectDesigner(w, r, id, nil)
}

// HandleSubmitPage shows a published form to a visitor and counts the visit.
func (h *Handlers) HandleSubmitPage(w http.ResponseWriter, r *http.Request) {
	pf, err := h.svc.OpenPublic(r.Context(), r.PathValue("shareURL"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderSubmit(w, r, http.StatusOK, pf, nil, nil)
}

// HandleSubmit records a visitor's submission. Rejected values re-render the
// form with the visitor's input and inline messages.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	shareURL := r.PathValue("shareURL")
	if limit := h.cfg.MaxSubmissionBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(limit)*2)
	}
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.renderer.renderError(w, r, errors.NewPayloadTooLarge("submission", h.cfg.MaxSubmissionBytes, int(r.ContentLength)))
			return
		}
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	values := valuesFromForm(r.PostForm)

	out, err := h.svc.CollectSubmission(r.Context(), shareURL, values)
	if err != nil {
		if !errors.Is(err, errors.ErrValidation) {
			h.renderer.renderError(w, r, err)
			return
		}
		pf, perr := h.svc.PublicForm(r.Context(), shareURL)
		if perr != nil {
			h.renderer.renderError(w, r, perr)
			return
		}
		h.renderSubmit(w, r, http.StatusUnprocessableEntity, pf, values, errors.FieldErrors(err))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}
	h.renderer.renderPage(w, r, "submitted", PageData{Title: "Form submitted", Version: h.renderer.version})
}

func (h *Handlers) renderSubmit(w http.ResponseWriter, r *http.Request, status int, pf *ops.PublicForm, values, problems map[string]string) {
	rendered, err := renderFillIn(h.svc.Registry(), pf.Elements, values, problems, false)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	h.renderer.renderPageStatus(w, r, status, "submit", PreviewPageData{
		PageData:    h.renderer.page(pf.Name, ""),
		Name:        pf.Name,
		Description: pf.Description,
		ShareURL:    pf.ShareURL,
		Elements:    rendered,
		Problems:    problems,
	})
}

func redirectDesigner(w http.ResponseWriter, r *http.Request, id string, q url.Values) {
	target := "/forms/" + id + "/designer"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// parseIntParam reads an integer query parameter, returning def when absent.
func parseIntParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return v, nil
}

// parseVersion reads an optional content version. Empty means no version check.
func parseVersion(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.NewInvalidRequest("base_version must be an integer")
	}
	return &v, nil
}
