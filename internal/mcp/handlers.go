package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers. Every owner-scoped call
// runs as owner.
type Handlers struct {
	svc   *ops.Service
	owner string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service, owner string) *Handlers {
	return &Handlers{svc: svc, owner: owner}
}

// Request types for each tool

// CreateRequest represents the arguments for form_create.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListRequest represents the arguments for form_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// IDRequest represents the arguments of tools addressing one form.
type IDRequest struct {
	ID string `json:"id"`
}

// SaveContentRequest represents the arguments for form_save_content.
type SaveContentRequest struct {
	ID          string           `json:"id"`
	Elements    []fields.Element `json:"elements"`
	BaseVersion *int64           `json:"base_version,omitempty"`
}

// DropRequest represents the arguments for form_drop.
type DropRequest struct {
	ID          string `json:"id"`
	FieldType   string `json:"field_type,omitempty"`
	ElementID   string `json:"element_id,omitempty"`
	Target      string `json:"target"`
	TargetID    string `json:"target_id,omitempty"`
	BaseVersion *int64 `json:"base_version,omitempty"`
}

// UpdateElementRequest represents the arguments for form_update_element.
type UpdateElementRequest struct {
	ID          string            `json:"id"`
	ElementID   string            `json:"element_id"`
	Attributes  fields.Attributes `json:"attributes"`
	BaseVersion *int64            `json:"base_version,omitempty"`
}

// RemoveElementRequest represents the arguments for form_remove_element.
type RemoveElementRequest struct {
	ID          string `json:"id"`
	ElementID   string `json:"element_id"`
	BaseVersion *int64 `json:"base_version,omitempty"`
}

// PurgeRequest represents the arguments for form_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// ExportRequest represents the arguments for form_export.
type ExportRequest struct {
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// ImportRequest represents the arguments for form_import.
type ImportRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// SubmissionListRequest represents the arguments for submission_list.
type SubmissionListRequest struct {
	FormID string `json:"form_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// DesignResult is the form_design output.
type DesignResult struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Published      bool             `json:"published"`
	ContentVersion int64            `json:"content_version"`
	Elements       []fields.Element `json:"elements"`
}

// PaletteEntry is one field_palette item with its editable attributes.
type PaletteEntry struct {
	fields.PaletteItem
	Input  bool          `json:"input"`
	Schema fields.Schema `json:"schema"`
}

// Handler implementations

// HandleCreate handles the form_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.CreateForm(ctx, ops.CreateInput{
		Owner:       h.owner,
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the form_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.ListForms(ctx, ops.ListInput{
		Owner:  h.owner,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the form_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.GetForm(ctx, h.owner, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDesign handles the form_design tool call.
func (h *Handlers) HandleDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	d, err := h.svc.LoadForEditing(ctx, h.owner, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(DesignResult{
		ID:             d.Form.ID,
		Name:           d.Form.Name,
		Published:      d.Form.Published,
		ContentVersion: d.ContentVersion,
		Elements:       d.Tree.Snapshot(),
	})
}

// HandleSaveContent handles the form_save_content tool call.
func (h *Handlers) HandleSaveContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveContentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.SaveContent(ctx, ops.SaveContentInput{
		Owner:       h.owner,
		ID:          input.ID,
		Elements:    input.Elements,
		BaseVersion: input.BaseVersion,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDrop handles the form_drop tool call.
func (h *Handlers) HandleDrop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if (input.FieldType == "") == (input.ElementID == "") {
		return errorResult(errors.NewInvalidRequest("exactly one of field_type or element_id is required")), nil
	}

	result, err := h.svc.ApplyDrop(ctx, ops.DropInput{
		Owner: h.owner,
		ID:    input.ID,
		Source: designer.Source{
			FieldType: fields.FieldType(input.FieldType),
			ElementID: input.ElementID,
		},
		Target:      input.Target,
		TargetID:    input.TargetID,
		BaseVersion: input.BaseVersion,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdateElement handles the form_update_element tool call.
func (h *Handlers) HandleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateElementRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.UpdateElement(ctx, ops.UpdateElementInput{
		Owner:       h.owner,
		ID:          input.ID,
		ElementID:   input.ElementID,
		Attributes:  input.Attributes,
		BaseVersion: input.BaseVersion,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRemoveElement handles the form_remove_element tool call.
func (h *Handlers) HandleRemoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemoveElementRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.RemoveElement(ctx, ops.RemoveElementInput{
		Owner:       h.owner,
		ID:          input.ID,
		ElementID:   input.ElementID,
		BaseVersion: input.BaseVersion,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePublish handles the form_publish tool call.
func (h *Handlers) HandlePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Publish(ctx, h.owner, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the form_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.DeleteForm(ctx, h.owner, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the form_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Purge(ctx, ops.PurgeInput{
		Owner:         h.owner,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the form_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.Stats(ctx, h.owner)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the form_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Export(ctx, ops.ExportInput{
		Owner:  h.owner,
		ID:     input.ID,
		Path:   input.Path,
		Format: input.Format,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the form_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Import(ctx, ops.ImportInput{
		Owner: h.owner,
		Path:  input.Path,
		Name:  input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSubmissionList handles the submission_list tool call.
func (h *Handlers) HandleSubmissionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmissionListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.ListSubmissions(ctx, ops.SubmissionsInput{
		Owner:  h.owner,
		FormID: input.FormID,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePalette handles the field_palette tool call.
func (h *Handlers) HandlePalette(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := h.svc.Registry()
	items := h.svc.Palette()
	entries := make([]PaletteEntry, 0, len(items))
	for _, item := range items {
		def, err := reg.Lookup(item.Type)
		if err != nil {
			return errorResult(err), nil
		}
		entries = append(entries, PaletteEntry{
			PaletteItem: item,
			Input:       reg.IsInput(item.Type),
			Schema:      def.Schema(),
		})
	}

	return successResult(map[string]any{"items": entries})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	appErr := errors.As(err)

	errorObj := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
		"status":  appErr.Status,
	}
	if appErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if appErr.Details != nil {
		errorObj["details"] = appErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
