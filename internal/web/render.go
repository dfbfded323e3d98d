package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
	"github.com/hpungsan/formcraft/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "forms" or "" on public pages
}

// DashboardPageData is the template data for the form list.
type DashboardPageData struct {
	PageData
	Stats       form.Stats
	Items       []form.Summary
	Pagination  ops.Pagination
	Name        string
	Description string
	Problems    map[string]string
}

// DetailPageData is the template data for one form's overview.
type DetailPageData struct {
	PageData
	Form        *ops.FormDetail
	Submissions []ops.SubmissionItem
	Columns     []column
	Pagination  ops.Pagination
}

// column is one submissions-table column: an input element of the form.
type column struct {
	ID    string
	Label string
}

// DesignerPageData is the template data for the designer.
type DesignerPageData struct {
	PageData
	FormID         string
	FormName       string
	Published      bool
	ContentVersion int64
	Palette        []fields.PaletteItem
	Canvas         []canvasElement
	Selected       *selectedElement
	Notice         string
}

// PreviewPageData is the template data for the owner's preview and the
// public fill-in page.
type PreviewPageData struct {
	PageData
	Name        string
	Description string
	ShareURL    string
	Elements    []template.HTML
	Problems    map[string]string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":           func(a, b int) int { return a + b },
		"sub":           func(a, b int) int { return a - b },
		"formatTime":    formatTime,
		"formatPercent": formatPercent,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"detail":    "detail.html",
		"designer":  "designer.html",
		"preview":   "preview.html",
		"submit":    "submit.html",
		"submitted": "submitted.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	appErr := errors.As(err)
	if appErr.Status >= 500 {
		r.logger.Error("request failed", "path", req.URL.Path, "code", appErr.Code, "error", err)
	}

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(appErr.Status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(appErr.Message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, appErr.Status, errorBody(appErr))
		return
	}

	r.renderPageStatus(w, req, appErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", appErr.Status), ""),
		StatusCode: appErr.Status,
		Message:    appErr.Message,
	})
}

// renderAPIError always answers in JSON.
func (r *Renderer) renderAPIError(w http.ResponseWriter, req *http.Request, err error) {
	appErr := errors.As(err)
	if appErr.Status >= 500 {
		r.logger.Error("request failed", "path", req.URL.Path, "code", appErr.Code, "error", err)
	}
	renderJSON(w, appErr.Status, errorBody(appErr))
}

func errorBody(appErr *errors.AppError) map[string]any {
	body := map[string]any{
		"code":    string(appErr.Code),
		"message": appErr.Message,
		"status":  appErr.Status,
	}
	if appErr.Status < 500 && len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return map[string]any{"error": body}
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatPercent formats a rate with one decimal.
func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}
