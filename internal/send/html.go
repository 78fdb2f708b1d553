// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package send

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"
)

// signatureMarker starts the closing block of composed emails; the block
// keeps its line breaks instead of becoming separate paragraphs.
const signatureMarker = "Mit freundlichen Grüßen"

// htmlShell is the Liquid template wrapping the email body in a minimal
// HTML document. Paragraphs are pre-rendered HTML fragments; test sends
// get a banner naming the recipient the draft was composed for.
const htmlShell = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.5; color: #333; }
      p { margin-bottom: 15px; }
    </style>
  </head>
  <body>
    {%- if test_note != "" %}
    <div style="background-color: #f8f8f8; padding: 10px; margin-bottom: 20px; border-left: 4px solid #ff9900;">
      <strong>TEST EMAIL</strong> - This is a test email for the upcoming campaign. Original recipient would have been: {{ test_note }}
    </div>
    {%- endif %}
    {%- for paragraph in paragraphs %}
    {{ paragraph }}
    {%- endfor %}
  </body>
</html>
`

var htmlEngine = liquid.NewEngine()

var htmlTmpl = func() *liquid.Template {
	tmpl, err := htmlEngine.ParseString(htmlShell)
	if err != nil {
		panic(fmt.Sprintf("parsing HTML shell template: %v", err))
	}
	return tmpl
}()

// RenderHTML converts a plain-text email body into the HTML version sent
// alongside it. A non-empty testNote adds the test banner with the
// original recipient.
func RenderHTML(body, testNote string) (string, error) {
	out, err := htmlTmpl.RenderString(map[string]any{
		"paragraphs": htmlParagraphs(body),
		"test_note":  html.EscapeString(testNote),
	})
	if err != nil {
		return "", fmt.Errorf("rendering HTML shell: %w", err)
	}
	return out, nil
}

// htmlParagraphs formats the plain body into HTML paragraph fragments.
// Blank-line-separated blocks become <p> elements with inner newlines as
// <br>; the signature block keeps its lines together with a tightened
// top margin.
func htmlParagraphs(body string) []string {
	blocks := strings.Split(body, "\n\n")
	paragraphs := make([]string, 0, len(blocks))

	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}

		if strings.Contains(block, signatureMarker) {
			lines := strings.Split(block, "\n")
			p := "<p>" + html.EscapeString(lines[0]) + "</p>"
			if len(lines) > 1 {
				escaped := make([]string, 0, len(lines)-1)
				for _, line := range lines[1:] {
					escaped = append(escaped, html.EscapeString(line))
				}
				p += `<p style="margin-top: 0;">` + strings.Join(escaped, "<br>") + "</p>"
			}
			paragraphs = append(paragraphs, p)
			continue
		}

		escaped := html.EscapeString(block)
		paragraphs = append(paragraphs, "<p>"+strings.ReplaceAll(escaped, "\n", "<br>")+"</p>")
	}

	return paragraphs
}
