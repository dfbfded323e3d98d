package fields

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("fields").ParseFS(templateFS, "templates/*.html"))

var (
	markdown  = goldmark.New()
	sanitizer = bluemonday.UGCPolicy()
)

type fieldView struct {
	Element Element
	Attrs   Attributes
	State   InputState
	Body    template.HTML
}

type property struct {
	Attribute
	Value   string
	Checked bool
	Error   string
}

type propertiesView struct {
	Element    Element
	Properties []property
}

func render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// RenderMarkdown converts paragraph Markdown to sanitized HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}
