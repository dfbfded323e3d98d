package fields

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderDesigner_EveryType(t *testing.T) {
	r := Default()
	for _, typ := range r.Types() {
		t.Run(string(typ), func(t *testing.T) {
			d, err := r.Lookup(typ)
			require.NoError(t, err)

			html, err := d.RenderDesigner(d.Construct("el-1"))
			require.NoError(t, err)
			require.NotEmpty(t, html)
		})
	}
}

func TestRenderForm_EveryType(t *testing.T) {
	r := Default()
	for _, typ := range r.Types() {
		t.Run(string(typ), func(t *testing.T) {
			d, err := r.Lookup(typ)
			require.NoError(t, err)

			html, err := d.RenderForm(d.Construct("el-1"), InputState{})
			require.NoError(t, err)
			require.NotEmpty(t, html)
		})
	}
}

func TestRenderForm_InputStateAndEscaping(t *testing.T) {
	d, err := Default().Lookup(TextField)
	require.NoError(t, err)

	el := d.Construct("name")
	el.ExtraAttributes["label"] = "Your <b>name</b>"
	el.ExtraAttributes["required"] = true

	html, err := d.RenderForm(el, InputState{Value: `"quoted"`, Invalid: true})
	require.NoError(t, err)

	out := string(html)
	require.Contains(t, out, `name="name"`)
	require.Contains(t, out, "Your &lt;b&gt;name&lt;/b&gt;*")
	require.Contains(t, out, `value="&#34;quoted&#34;"`)
	require.Contains(t, out, `aria-invalid="true"`)
}

func TestRenderForm_SelectMarksCurrentOption(t *testing.T) {
	d, err := Default().Lookup(SelectField)
	require.NoError(t, err)

	el := d.Construct("color")
	el.ExtraAttributes["options"] = []string{"red", "green"}

	html, err := d.RenderForm(el, InputState{Value: "green"})
	require.NoError(t, err)
	require.Contains(t, string(html), `<option value="green" selected>green</option>`)
	require.Contains(t, string(html), `<option value="red">red</option>`)
}

func TestRenderForm_CheckboxChecked(t *testing.T) {
	d, err := Default().Lookup(CheckboxField)
	require.NoError(t, err)

	html, err := d.RenderForm(d.Construct("agree"), InputState{Value: "true"})
	require.NoError(t, err)
	require.Contains(t, string(html), "checked")
}

func TestRenderParagraph_MarkdownSanitized(t *testing.T) {
	d, err := Default().Lookup(ParagraphField)
	require.NoError(t, err)

	el := d.Construct("p")
	el.ExtraAttributes["text"] = "Hello **world** <script>alert(1)</script>"

	html, err := d.RenderForm(el, InputState{})
	require.NoError(t, err)
	out := string(html)
	require.Contains(t, out, "<strong>world</strong>")
	require.NotContains(t, out, "<script>")
}

func TestRenderProperties(t *testing.T) {
	d, err := Default().Lookup(SelectField)
	require.NoError(t, err)

	el := d.Construct("s")
	el.ExtraAttributes["options"] = []string{"a", "b"}

	html, err := d.RenderProperties(el, map[string]string{"label": "must be at least 2 characters"})
	require.NoError(t, err)

	out := string(html)
	require.Contains(t, out, `name="label"`)
	require.Contains(t, out, `name="required"`)
	require.Contains(t, out, "a\nb")
	require.Contains(t, out, "must be at least 2 characters")
	require.Equal(t, 1, strings.Count(out, "property-error"))
}

func TestRenderProperties_NoAttributes(t *testing.T) {
	d, err := Default().Lookup(SeparatorField)
	require.NoError(t, err)

	html, err := d.RenderProperties(d.Construct("sep"), nil)
	require.NoError(t, err)
	require.Contains(t, string(html), "No properties")
}
