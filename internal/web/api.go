package web

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/ops"
)

const defaultMaxBodyBytes = 1 << 20

// decodeJSON reads a size-limited JSON request body into v.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	limit := int64(defaultMaxBodyBytes)
	if n := h.cfg.MaxContentBytes; n > 0 {
		limit = int64(n) * 2
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewPayloadTooLarge("request body", int(tooLarge.Limit), int(r.ContentLength))
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// APIPalette returns the enabled palette buttons in sidebar order.
func (h *Handlers) APIPalette(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string][]fields.PaletteItem{"items": h.svc.Palette()})
}

// APIStats returns the owner's visit and submission totals.
func (h *Handlers) APIStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Stats(r.Context(), h.owner(r))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIListForms lists the owner's forms, newest first.
func (h *Handlers) APIListForms(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", ops.DefaultListLimit)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	out, err := h.svc.ListForms(r.Context(), ops.ListInput{Owner: h.owner(r), Limit: limit, Offset: offset})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APICreateForm creates an empty draft.
func (h *Handlers) APICreateForm(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateInput
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	input.Owner = h.owner(r)
	out, err := h.svc.CreateForm(r.Context(), input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, out)
}

// APIGetForm returns one form with its stats and design.
func (h *Handlers) APIGetForm(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetForm(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIDeleteForm soft-deletes a draft.
func (h *Handlers) APIDeleteForm(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.DeleteForm(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// designResponse is the designer's view of a stored design.
type designResponse struct {
	ID             string           `json:"id"`
	Published      bool             `json:"published"`
	ContentVersion int64            `json:"content_version"`
	Elements       []fields.Element `json:"elements"`
}

// APIGetDesign returns the design for editing along with the version to send
// back as base_version.
func (h *Handlers) APIGetDesign(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.LoadForEditing(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, designResponse{
		ID:             d.Form.ID,
		Published:      d.Form.Published,
		ContentVersion: d.ContentVersion,
		Elements:       d.Tree.Snapshot(),
	})
}

// APISaveContent replaces the whole design.
func (h *Handlers) APISaveContent(w http.ResponseWriter, r *http.Request) {
	var input ops.SaveContentInput
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	input.Owner = h.owner(r)
	input.ID = r.PathValue("id")
	out, err := h.svc.SaveContent(r.Context(), input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIDrop applies one drag gesture.
func (h *Handlers) APIDrop(w http.ResponseWriter, r *http.Request) {
	var input ops.DropInput
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	input.Owner = h.owner(r)
	input.ID = r.PathValue("id")
	out, err := h.svc.ApplyDrop(r.Context(), input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIUpdateElement replaces one element's attributes.
func (h *Handlers) APIUpdateElement(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateElementInput
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	input.Owner = h.owner(r)
	input.ID = r.PathValue("id")
	input.ElementID = r.PathValue("elementID")
	out, err := h.svc.UpdateElement(r.Context(), input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIRemoveElement deletes one element. base_version is an optional query
// parameter.
func (h *Handlers) APIRemoveElement(w http.ResponseWriter, r *http.Request) {
	baseVersion, err := parseVersion(r.URL.Query().Get("base_version"))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	out, err := h.svc.RemoveElement(r.Context(), ops.RemoveElementInput{
		Owner:       h.owner(r),
		ID:          r.PathValue("id"),
		ElementID:   r.PathValue("elementID"),
		BaseVersion: baseVersion,
	})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIPublish publishes a draft. Publishing twice is not an error.
func (h *Handlers) APIPublish(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Publish(r.Context(), h.owner(r), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIListSubmissions lists a form's submissions, newest first.
func (h *Handlers) APIListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", ops.DefaultListLimit)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	out, err := h.svc.ListSubmissions(r.Context(), ops.SubmissionsInput{
		Owner:  h.owner(r),
		FormID: r.PathValue("id"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIPurge permanently removes soft-deleted forms. older_than_days is an
// optional query parameter.
func (h *Handlers) APIPurge(w http.ResponseWriter, r *http.Request) {
	input := ops.PurgeInput{Owner: h.owner(r)}
	if r.URL.Query().Has("older_than_days") {
		days, err := parseIntParam(r, "older_than_days", 0)
		if err != nil {
			h.renderer.renderAPIError(w, r, err)
			return
		}
		input.OlderThanDays = &days
	}
	out, err := h.svc.Purge(r.Context(), input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}
