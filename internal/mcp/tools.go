package mcp

import "github.com/mark3labs/mcp-go/mcp"

var elementSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":              map[string]any{"type": "string"},
		"type":            map[string]any{"type": "string", "description": "Field type, e.g. TextField. See field_palette."},
		"extraAttributes": map[string]any{"type": "object"},
	},
	"required": []string{"id", "type"},
}

var (
	createToolDef = mcp.NewTool("form_create",
		mcp.WithDescription("Create an empty draft form. Names are unique per owner."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Form name (4-100 characters)")),
		mcp.WithString("description", mcp.Description("Optional description shown on the dashboard")),
	)

	listToolDef = mcp.NewTool("form_list",
		mcp.WithDescription("List your forms, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
		mcp.WithNumber("offset", mcp.Description("Items to skip")),
	)

	getToolDef = mcp.NewTool("form_get",
		mcp.WithDescription("Get one form with its counters, share link and elements."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
	)

	designToolDef = mcp.NewTool("form_design",
		mcp.WithDescription("Load a form's design for editing. Pass content_version back as base_version on changes."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
	)

	saveContentToolDef = mcp.NewTool("form_save_content",
		mcp.WithDescription("Replace a draft's whole design with the given elements."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithArray("elements", mcp.Required(), mcp.Items(elementSchema), mcp.Description("Elements in display order")),
		mcp.WithNumber("base_version", mcp.Description("Content version the change is based on; omit for last write wins")),
	)

	dropToolDef = mcp.NewTool("form_drop",
		mcp.WithDescription("Drop a palette field type or an existing element onto the canvas or next to an element."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithString("field_type", mcp.Description("Palette field type to add (e.g. TextField)")),
		mcp.WithString("element_id", mcp.Description("Existing element to move")),
		mcp.WithString("target", mcp.Required(), mcp.Enum("canvas", "before", "after"), mcp.Description("Where to drop")),
		mcp.WithString("target_id", mcp.Description("Anchor element for before/after")),
		mcp.WithNumber("base_version", mcp.Description("Content version the change is based on")),
	)

	updateElementToolDef = mcp.NewTool("form_update_element",
		mcp.WithDescription("Replace an element's attributes. Every schema attribute must be supplied."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Element id")),
		mcp.WithObject("attributes", mcp.Required(), mcp.Description("New attribute values")),
		mcp.WithNumber("base_version", mcp.Description("Content version the change is based on")),
	)

	removeElementToolDef = mcp.NewTool("form_remove_element",
		mcp.WithDescription("Remove an element from a draft."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Element id")),
		mcp.WithNumber("base_version", mcp.Description("Content version the change is based on")),
	)

	publishToolDef = mcp.NewTool("form_publish",
		mcp.WithDescription("Publish a draft. Published forms accept submissions and can no longer be edited."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
	)

	deleteToolDef = mcp.NewTool("form_delete",
		mcp.WithDescription("Soft-delete a draft. Published forms cannot be deleted."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
	)

	purgeToolDef = mcp.NewTool("form_purge",
		mcp.WithDescription("Permanently remove soft-deleted forms."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("older_than_days", mcp.Description("Only purge forms deleted more than N days ago")),
	)

	statsToolDef = mcp.NewTool("form_stats",
		mcp.WithDescription("Visit and submission totals across your forms."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	exportToolDef = mcp.NewTool("form_export",
		mcp.WithDescription("Export a form's details and design to a JSON or YAML file."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithString("path", mcp.Description("Output file (.json, .yaml, .yml); default under ~/.formcraft/exports")),
		mcp.WithString("format", mcp.Enum("json", "yaml"), mcp.Description("Format when no path is given")),
	)

	importToolDef = mcp.NewTool("form_import",
		mcp.WithDescription("Create a new draft from an exported JSON or YAML file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File to import")),
		mcp.WithString("name", mcp.Description("Name for the new form; defaults to the exported name")),
	)

	submissionListToolDef = mcp.NewTool("submission_list",
		mcp.WithDescription("List a form's submissions, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("form_id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
		mcp.WithNumber("offset", mcp.Description("Items to skip")),
	)

	paletteToolDef = mcp.NewTool("field_palette",
		mcp.WithDescription("List the field types that can be dropped onto a form, with their attribute schemas."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
)
