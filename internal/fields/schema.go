package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind is the value shape of an editable attribute.
type Kind string

const (
	KindString  Kind = "string"
	KindText    Kind = "text" // multi-line string
	KindBool    Kind = "bool"
	KindInt     Kind = "int"
	KindOptions Kind = "options"
)

// Attribute describes one editable setting of a field type.
// Min and Max bound string length for string kinds and the value for KindInt.
// A zero Max means unbounded.
type Attribute struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Kind    Kind   `json:"kind"`
	Default any    `json:"default"`
	Min     int    `json:"min,omitempty"`
	Max     int    `json:"max,omitempty"`
	Help    string `json:"help,omitempty"`
}

// Schema is the ordered list of editable attributes of a field type.
type Schema []Attribute

// Defaults builds a fresh attribute map holding every default value.
func (s Schema) Defaults() Attributes {
	out := make(Attributes, len(s))
	for _, a := range s {
		out[a.Name] = a.defaultValue()
	}
	return out
}

// Normalize coerces attrs into the schema's canonical shape. Values of the
// wrong shape fall back to the default; keys outside the schema are dropped.
func (s Schema) Normalize(attrs Attributes) Attributes {
	out := make(Attributes, len(s))
	for _, a := range s {
		v, ok := a.coerce(attrs[a.Name])
		if !ok {
			v = a.defaultValue()
		}
		out[a.Name] = v
	}
	return out
}

// Validate checks attrs against every constraint and returns one message per
// offending attribute. An empty result means attrs are acceptable.
func (s Schema) Validate(attrs Attributes) map[string]string {
	problems := make(map[string]string)
	for _, a := range s {
		raw, present := attrs[a.Name]
		if !present {
			if a.Kind == KindBool || a.Kind == KindOptions {
				continue
			}
			problems[a.Name] = "is required"
			continue
		}
		v, ok := a.coerce(raw)
		if !ok {
			problems[a.Name] = fmt.Sprintf("must be a %s", a.Kind)
			continue
		}
		if msg := a.check(v); msg != "" {
			problems[a.Name] = msg
		}
	}
	for name := range attrs {
		if s.find(name) == nil {
			problems[name] = "is not a known attribute"
		}
	}
	return problems
}

func (s Schema) find(name string) *Attribute {
	for i := range s {
		if s[i].Name == name {
			return &s[i]
		}
	}
	return nil
}

func (a Attribute) defaultValue() any {
	if a.Kind == KindOptions {
		def, _ := a.Default.([]string)
		cp := make([]string, len(def))
		copy(cp, def)
		return cp
	}
	return a.Default
}

func (a Attribute) check(v any) string {
	switch a.Kind {
	case KindString, KindText:
		n := utf8.RuneCountInString(v.(string))
		if n < a.Min {
			return fmt.Sprintf("must be at least %d characters", a.Min)
		}
		if a.Max > 0 && n > a.Max {
			return fmt.Sprintf("must be at most %d characters", a.Max)
		}
	case KindInt:
		n := v.(int)
		if n < a.Min {
			return fmt.Sprintf("must be at least %d", a.Min)
		}
		if a.Max > 0 && n > a.Max {
			return fmt.Sprintf("must be at most %d", a.Max)
		}
	case KindOptions:
		for _, opt := range v.([]string) {
			if strings.TrimSpace(opt) == "" {
				return "options must not be blank"
			}
		}
	}
	return ""
}

// coerce converts decoded values (JSON numbers, generic lists, form strings)
// into the canonical Go type for the attribute kind.
func (a Attribute) coerce(v any) (any, bool) {
	switch a.Kind {
	case KindString, KindText:
		s, ok := v.(string)
		return s, ok
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "on", "1":
				return true, true
			case "false", "off", "0", "":
				return false, true
			}
		}
		return nil, false
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n != math.Trunc(n) || math.IsInf(n, 0) {
				return nil, false
			}
			return int(n), true
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, false
			}
			return int(i), true
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, false
			}
			return i, true
		}
		return nil, false
	case KindOptions:
		switch list := v.(type) {
		case []string:
			cp := make([]string, len(list))
			copy(cp, list)
			return cp, true
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		}
		return nil, false
	}
	return nil, false
}
