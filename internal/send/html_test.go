// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package send

import (
	"strings"
	"testing"
)

const sampleBody = `Sehr geehrte Frau Schmidt,

wir unterstützen Agenturen wie Ihre bei der Vermarktung.
Gern zeigen wir Ihnen Beispiele.

Mit freundlichen Grüßen,
Max Muster
Beispiel GmbH
info@beispiel.example`

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML(sampleBody, "")
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<p>Sehr geehrte Frau Schmidt,</p>",
		"bei der Vermarktung.<br>Gern zeigen wir",
		"<p>Mit freundlichen Grüßen,</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "TEST EMAIL") {
		t.Error("banner should be absent without a test note")
	}
}

func TestRenderHTMLSignatureBlock(t *testing.T) {
	out, err := RenderHTML(sampleBody, "")
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	// Signature lines stay in one paragraph joined with line breaks.
	if !strings.Contains(out, "Max Muster<br>Beispiel GmbH<br>info@beispiel.example") {
		t.Errorf("signature block not joined with <br>:\n%s", out)
	}
	if !strings.Contains(out, `style="margin-top: 0;"`) {
		t.Error("signature paragraph should tighten its top margin")
	}
}

func TestRenderHTMLTestBanner(t *testing.T) {
	out, err := RenderHTML(sampleBody, "info@acme.example")
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	if !strings.Contains(out, "TEST EMAIL") {
		t.Error("banner missing")
	}
	if !strings.Contains(out, "Original recipient would have been: info@acme.example") {
		t.Errorf("banner should name the original recipient:\n%s", out)
	}
}

func TestRenderHTMLEscapesBody(t *testing.T) {
	out, err := RenderHTML("Preis < 100 € & mehr", "")
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	if !strings.Contains(out, "Preis &lt; 100 € &amp; mehr") {
		t.Errorf("body not escaped:\n%s", out)
	}
}

func TestHTMLParagraphsSkipsBlankBlocks(t *testing.T) {
	got := htmlParagraphs("Erster Absatz.\n\n\n\nZweiter Absatz.")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
}
