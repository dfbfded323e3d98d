package fields

import (
	"html/template"
	"strconv"
	"strings"
	"time"
)

// Category groups palette buttons in the designer sidebar.
type Category string

const (
	CategoryLayout Category = "layout"
	CategoryInput  Category = "input"
)

// Button is the palette entry of a field type.
type Button struct {
	Label    string   `json:"label"`
	Icon     string   `json:"icon"`
	Category Category `json:"category"`
}

// InputState is what the fill-in renderer needs besides the element.
type InputState struct {
	Value    string
	Invalid  bool
	Disabled bool
}

// Definition is the behaviour of one field type.
type Definition interface {
	Type() FieldType
	Button() Button
	Schema() Schema
	Construct(id string) Element
	RenderDesigner(el Element) (template.HTML, error)
	RenderForm(el Element, state InputState) (template.HTML, error)
	RenderProperties(el Element, problems map[string]string) (template.HTML, error)
	Validate(el Element, value string) bool
}

// base carries the schema-driven parts shared by every field type.
type base struct {
	fieldType FieldType
	button    Button
	schema    Schema
}

func (b base) Type() FieldType { return b.fieldType }
func (b base) Button() Button   { return b.button }
func (b base) Schema() Schema   { return b.schema }

func (b base) Construct(id string) Element {
	return Element{ID: id, Type: b.fieldType, ExtraAttributes: b.schema.Defaults()}
}

func (b base) RenderDesigner(el Element) (template.HTML, error) {
	return render("designer/"+string(b.fieldType), b.view(el, InputState{}))
}

func (b base) RenderForm(el Element, state InputState) (template.HTML, error) {
	return render("form/"+string(b.fieldType), b.view(el, state))
}

func (b base) RenderProperties(el Element, problems map[string]string) (template.HTML, error) {
	attrs := b.schema.Normalize(el.ExtraAttributes)
	props := make([]property, 0, len(b.schema))
	for _, a := range b.schema {
		p := property{Attribute: a, Error: problems[a.Name]}
		switch a.Kind {
		case KindBool:
			p.Checked = attrs.Bool(a.Name)
		case KindInt:
			p.Value = strconv.Itoa(attrs.Int(a.Name))
		case KindOptions:
			p.Value = strings.Join(attrs.Strings(a.Name), "\n")
		default:
			p.Value = attrs.String(a.Name)
		}
		props = append(props, p)
	}
	return render("properties", propertiesView{Element: el, Properties: props})
}

func (b base) view(el Element, state InputState) fieldView {
	return fieldView{
		Element: el,
		Attrs:   b.schema.Normalize(el.ExtraAttributes),
		State:   state,
	}
}

// requiredSatisfied applies the shared "required means non-empty" rule.
func requiredSatisfied(el Element, value string) bool {
	if el.ExtraAttributes.Bool("required") {
		return len(value) > 0
	}
	return true
}

type textField struct{ base }

func (textField) Validate(el Element, value string) bool {
	return requiredSatisfied(el, value)
}

type numberField struct{ base }

func (numberField) Validate(el Element, value string) bool {
	if !requiredSatisfied(el, value) {
		return false
	}
	if value == "" {
		return true
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil
}

type textareaField struct{ base }

func (textareaField) Validate(el Element, value string) bool {
	return requiredSatisfied(el, value)
}

type dateField struct{ base }

func (dateField) Validate(el Element, value string) bool {
	if !requiredSatisfied(el, value) {
		return false
	}
	if value == "" {
		return true
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

type selectField struct{ base }

func (selectField) Validate(el Element, value string) bool {
	if !requiredSatisfied(el, value) {
		return false
	}
	options := el.ExtraAttributes.Strings("options")
	if value == "" || len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

type checkboxField struct{ base }

func (checkboxField) Validate(el Element, value string) bool {
	switch value {
	case "", "true", "false":
	default:
		return false
	}
	if el.ExtraAttributes.Bool("required") {
		return value == "true"
	}
	return true
}

// layoutField is embedded by types that display content but collect no value.
type layoutField struct{ base }

func (layoutField) Validate(Element, string) bool { return true }

type titleField struct{ layoutField }
type subtitleField struct{ layoutField }
type separatorField struct{ layoutField }
type spacerField struct{ layoutField }

type paragraphField struct{ layoutField }

func (p paragraphField) RenderDesigner(el Element) (template.HTML, error) {
	v, err := p.markdownView(el, InputState{})
	if err != nil {
		return "", err
	}
	return render("designer/"+string(ParagraphField), v)
}

func (p paragraphField) RenderForm(el Element, state InputState) (template.HTML, error) {
	v, err := p.markdownView(el, state)
	if err != nil {
		return "", err
	}
	return render("form/"+string(ParagraphField), v)
}

func (p paragraphField) markdownView(el Element, state InputState) (fieldView, error) {
	v := p.view(el, state)
	body, err := RenderMarkdown(v.Attrs.String("text"))
	if err != nil {
		return fieldView{}, err
	}
	v.Body = body
	return v, nil
}

var (
	labelAttr = Attribute{
		Name: "label", Label: "Label", Kind: KindString, Min: 2, Max: 50,
		Help: "Displayed above the field.",
	}
	helperTextAttr = Attribute{
		Name: "helperText", Label: "Helper text", Kind: KindString, Max: 200,
		Help: "Displayed below the field.",
	}
	requiredAttr = Attribute{
		Name: "required", Label: "Required", Kind: KindBool, Default: false,
		Help: "A submission must fill in this field.",
	}
	placeholderAttr = Attribute{
		Name: "placeholder", Label: "Placeholder", Kind: KindString, Max: 50,
		Help: "Shown inside the empty input.",
	}
)

func withDefault(a Attribute, def any) Attribute {
	a.Default = def
	return a
}

func inputSchema(label, helper, placeholder string) Schema {
	return Schema{
		withDefault(labelAttr, label),
		withDefault(helperTextAttr, helper),
		requiredAttr,
		withDefault(placeholderAttr, placeholder),
	}
}

func headingSchema(def string) Schema {
	return Schema{{
		Name: "title", Label: "Title", Kind: KindString, Default: def, Min: 2, Max: 50,
	}}
}

// builtins returns the definitions of every field type in palette order:
// layout elements first, then input elements.
func builtins() []Definition {
	return []Definition{
		titleField{layoutField{base{
			fieldType: TitleField,
			button:    Button{Label: "Title field", Icon: "heading-1", Category: CategoryLayout},
			schema:    headingSchema("Title field"),
		}}},
		subtitleField{layoutField{base{
			fieldType: SubtitleField,
			button:    Button{Label: "Subtitle field", Icon: "heading-2", Category: CategoryLayout},
			schema:    headingSchema("Subtitle field"),
		}}},
		paragraphField{layoutField{base{
			fieldType: ParagraphField,
			button:    Button{Label: "Paragraph field", Icon: "pilcrow", Category: CategoryLayout},
			schema: Schema{{
				Name: "text", Label: "Text", Kind: KindText, Default: "Text here", Min: 2, Max: 500,
				Help: "Markdown is supported.",
			}},
		}}},
		separatorField{layoutField{base{
			fieldType: SeparatorField,
			button:    Button{Label: "Separator field", Icon: "separator", Category: CategoryLayout},
			schema:    Schema{},
		}}},
		spacerField{layoutField{base{
			fieldType: SpacerField,
			button:    Button{Label: "Spacer field", Icon: "spacer", Category: CategoryLayout},
			schema: Schema{{
				Name: "height", Label: "Height (px)", Kind: KindInt, Default: 20, Min: 5, Max: 200,
			}},
		}}},
		textField{base{
			fieldType: TextField,
			button:    Button{Label: "Text field", Icon: "text", Category: CategoryInput},
			schema:    inputSchema("Text field", "Helper text", "Value here..."),
		}},
		numberField{base{
			fieldType: NumberField,
			button:    Button{Label: "Number field", Icon: "hash", Category: CategoryInput},
			schema:    inputSchema("Number field", "Helper text", "0"),
		}},
		textareaField{base{
			fieldType: TextareaField,
			button:    Button{Label: "Textarea field", Icon: "textarea", Category: CategoryInput},
			schema: append(inputSchema("Textarea field", "Helper text", "Value here..."), Attribute{
				Name: "rows", Label: "Rows", Kind: KindInt, Default: 3, Min: 1, Max: 10,
			}),
		}},
		dateField{base{
			fieldType: DateField,
			button:    Button{Label: "Date field", Icon: "calendar", Category: CategoryInput},
			schema: Schema{
				withDefault(labelAttr, "Date field"),
				withDefault(helperTextAttr, "Pick a date"),
				requiredAttr,
			},
		}},
		selectField{base{
			fieldType: SelectField,
			button:    Button{Label: "Select field", Icon: "dropdown", Category: CategoryInput},
			schema: append(inputSchema("Select field", "Helper text", "Value here..."), Attribute{
				Name: "options", Label: "Options", Kind: KindOptions, Default: []string{},
				Help: "One option per line.",
			}),
		}},
		checkboxField{base{
			fieldType: CheckboxField,
			button:    Button{Label: "Checkbox field", Icon: "checkbox", Category: CategoryInput},
			schema: Schema{
				withDefault(labelAttr, "Checkbox field"),
				withDefault(helperTextAttr, "Helper text"),
				requiredAttr,
			},
		}},
	}
}
