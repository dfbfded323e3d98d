package designer

import (
	"bytes"
	"encoding/json"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
)

// EncodeSnapshot serializes elements as the stored content of a form.
func EncodeSnapshot(elements []fields.Element) ([]byte, error) {
	if elements == nil {
		elements = []fields.Element{}
	}
	return json.Marshal(elements)
}

// DecodeSnapshot parses stored form content. Empty content is an empty design.
// Attributes are returned as decoded; Tree.Hydrate normalizes them.
func DecodeSnapshot(data []byte) ([]fields.Element, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []fields.Element{}, nil
	}
	var elements []fields.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, errors.NewInvalidRequest("form content is not a valid element list: " + err.Error())
	}
	if elements == nil {
		elements = []fields.Element{}
	}
	return elements, nil
}
