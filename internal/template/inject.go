package template

import (
	"fmt"
	"regexp"
	"strings"
)

// linkMarker matches {{link:some-id}} markers in template bodies. Link
// markers are rewritten to tracking URLs before Liquid rendering, since
// they are not valid Liquid syntax.
var linkMarker = regexp.MustCompile(`\{\{\s*link:([A-Za-z0-9_-]+)\s*\}\}`)

// PixelURL returns the tracking pixel URL for a token.
func PixelURL(baseURL, token string) string {
	return fmt.Sprintf("%s/t/%s/p", strings.TrimRight(baseURL, "/"), token)
}

// LinkURL returns the tracked click URL for a token and link id.
func LinkURL(baseURL, token, linkID string) string {
	return fmt.Sprintf("%s/t/%s/l/%s", strings.TrimRight(baseURL, "/"), token, linkID)
}

// FormURL returns the credential-form submit URL for a token. Served
// landing pages post here; the body is discarded on receipt.
func FormURL(baseURL, token string) string {
	return fmt.Sprintf("%s/t/%s/form", strings.TrimRight(baseURL, "/"), token)
}

// RewriteLinks replaces every {{link:id}} marker with the recipient's
// tracking URL for that link.
func RewriteLinks(body, baseURL, token string) string {
	return linkMarker.ReplaceAllStringFunc(body, func(m string) string {
		id := linkMarker.FindStringSubmatch(m)[1]
		return LinkURL(baseURL, token, id)
	})
}

// LinkIDs returns the distinct link ids referenced by a template body,
// in order of first appearance.
func LinkIDs(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range linkMarker.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// InjectPixel appends the 1x1 tracking image just before the closing
// body tag, or at the end when the template has no body tag.
func InjectPixel(html, pixelURL string) string {
	img := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`, pixelURL)
	idx := strings.LastIndex(strings.ToLower(html), "</body>")
	if idx < 0 {
		return html + img
	}
	return html[:idx] + img + html[idx:]
}
