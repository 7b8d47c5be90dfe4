package template_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/template"
)

func TestRenderRecipientVars(t *testing.T) {
	e := template.NewEngine()
	r := &domain.Recipient{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@corp.example",
		Department: "Engineering",
	}
	vars := template.RecipientVars(r, map[string]string{"company_name": "Acme"})

	out, err := e.Render("", "Hi {{ first_name }}, IT at {{ company_name }} needs you.", vars)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, IT at Acme needs you.", out)
}

func TestRenderDefaultFilter(t *testing.T) {
	e := template.NewEngine()
	out, err := e.Render("", `Hello {{ first_name | default: "colleague" }}`, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "Hello colleague", out)
}

func TestRenderCaches(t *testing.T) {
	e := template.NewEngine()
	for i := 0; i < 3; i++ {
		out, err := e.Render("tpl-1", "Hi {{ first_name }}", map[string]interface{}{"first_name": "Bo"})
		require.NoError(t, err)
		assert.Equal(t, "Hi Bo", out)
	}
}

func TestParseRejectsBadSyntax(t *testing.T) {
	e := template.NewEngine()
	assert.Error(t, e.Parse("{% if x %}no end"))
}

func TestRewriteLinks(t *testing.T) {
	body := `<a href="{{link:reset-password}}">Reset now</a> or {{ link:help }}`
	out := template.RewriteLinks(body, "https://track.example/", "tok123")

	assert.Contains(t, out, "https://track.example/t/tok123/l/reset-password")
	assert.Contains(t, out, "https://track.example/t/tok123/l/help")
	assert.NotContains(t, out, "{{link:")
}

func TestLinkIDs(t *testing.T) {
	body := `{{link:a}} {{link:b}} {{link:a}}`
	assert.Equal(t, []string{"a", "b"}, template.LinkIDs(body))
}

func TestInjectPixelBeforeBodyClose(t *testing.T) {
	html := "<html><body><p>Hi</p></body></html>"
	out := template.InjectPixel(html, "https://track.example/t/tok/p")

	require.Contains(t, out, `<img src="https://track.example/t/tok/p"`)
	imgIdx := strings.Index(out, "<img")
	bodyIdx := strings.Index(out, "</body>")
	assert.Less(t, imgIdx, bodyIdx, "pixel must sit inside the body")
}

func TestInjectPixelWithoutBodyTag(t *testing.T) {
	out := template.InjectPixel("<p>bare fragment</p>", "u")
	assert.True(t, strings.HasSuffix(out, `style="display:none" />`))
}

func TestURLBuilders(t *testing.T) {
	assert.Equal(t, "https://x/t/tok/p", template.PixelURL("https://x/", "tok"))
	assert.Equal(t, "https://x/t/tok/l/a", template.LinkURL("https://x", "tok", "a"))
	assert.Equal(t, "https://x/t/tok/form", template.FormURL("https://x", "tok"))
}
