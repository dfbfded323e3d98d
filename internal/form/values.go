package form

import (
	"encoding/json"
	"fmt"
)

// EncodeValues serializes submitted values keyed by element id.
func EncodeValues(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeValues parses stored submission content.
func DecodeValues(content string) (map[string]string, error) {
	values := map[string]string{}
	if content == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(content), &values); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return values, nil
}
