package form

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
)

// SchemaVersion is written into every exported document.
const SchemaVersion = "1.0"

// Format is the serialization of an exported design.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Extension returns the file extension (with dot) for the format.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ParseFormat accepts "json", "yaml" or "yml". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.NewInvalidRequest("format must be json or yaml")
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.NewInvalidRequest("file must have a .json, .yaml or .yml extension")
}

// Document is a portable form design. Counters, ownership and publication
// state are not exported; importing always creates a fresh draft.
type Document struct {
	// Header detection field
	FormcraftExport bool   `json:"_formcraft_export" yaml:"_formcraft_export"`
	SchemaVersion   string `json:"schema_version" yaml:"schema_version"`
	ExportedAt      int64  `json:"exported_at" yaml:"exported_at"`

	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Elements    []fields.Element `json:"elements" yaml:"elements"`
}

// NewDocument builds an export document for f with its decoded elements.
func NewDocument(f *Form, elements []fields.Element, exportedAt int64) *Document {
	if elements == nil {
		elements = []fields.Element{}
	}
	return &Document{
		FormcraftExport: true,
		SchemaVersion:   SchemaVersion,
		ExportedAt:      exportedAt,
		Name:            f.Name,
		Description:     f.Description,
		Elements:        elements,
	}
}

// MarshalDocument serializes doc in the given format.
func MarshalDocument(doc *Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument parses an exported document and checks its header.
func UnmarshalDocument(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, doc)
	} else {
		err = json.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid export file: " + err.Error())
	}
	if !doc.FormcraftExport {
		return nil, errors.NewInvalidRequest("invalid export file: missing _formcraft_export header")
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, errors.NewInvalidRequest("unsupported export schema version: " + doc.SchemaVersion)
	}
	if doc.Elements == nil {
		doc.Elements = []fields.Element{}
	}
	return doc, nil
}
