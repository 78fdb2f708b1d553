// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"text/template"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// systemPrompt primes the model as a business-development email writer.
// Kept in German to match the generated email language.
const systemPrompt = "Du bist ein professioneller E-Mail-Verfasser, spezialisiert auf " +
	"Geschäftsentwicklung. Du schreibst direkte, überzeugende E-Mails mit kreativen, " +
	"personalisierten Betreffzeilen auf Deutsch. Deine E-Mails enthalten niemals " +
	"Meta-Kommentare oder Erklärungen. Wenn du eine E-Mail schreibst, beginnst du " +
	"direkt mit der Betreffzeile und nichts anderem davor."

// composePromptTmpl is the per-lead prompt. It injects the lead profile
// and the configured sender profile and instructs the model to emit a
// subject line first so ParseEmailContent can split the response.
var composePromptTmpl = template.Must(template.New("compose").Parse(`Generiere eine direkte, professionelle Kalt-E-Mail auf Deutsch für {{.Lead.Name}}.

Geschäftsdetails:
- Firmenname: {{.Lead.Name}}
- Name des Inhabers: {{.Lead.OwnerName}}
- Adresse: {{.Lead.FullAddress}}
- Geschäftstyp: {{.Lead.BusinessType}}
- Bewertung: {{.Lead.Rating}} von 5 Sternen aus {{.Lead.ReviewCount}} Bewertungen
- Verifizierungsstatus: {{.Lead.Verified}}
- Status: {{.Lead.BusinessStatus}}
- Zusätzliche Informationen: {{.Lead.About}}

Unsere Unternehmensdetails:
- Firmenname: {{.Profile.CompanyName}}
- Website: {{.Profile.Website}}
- Dienstleistungen: {{.Profile.Services}}
- Wertversprechen: {{.Profile.ValueProposition}}

FORMAT-ANWEISUNGEN:
- Erstelle eine einzigartige und ansprechende Betreffzeile, die auf den spezifischen Geschäftstyp und die Bedürfnisse zugeschnitten ist
- Beginne mit "Betreff: [Deine dynamische Betreffzeile hier]"
- Fahre mit einer angemessenen E-Mail-Anrede fort (z.B. "Sehr geehrte/r Herr/Frau [Name],")
- Schreibe in einem professionellen Geschäftston, der nicht KI-generiert klingt
- Ende mit der Signatur "Mit freundlichen Grüßen,\n\n{{.Profile.SignatureName}}\n{{.Profile.CompanyName}}\n{{.Profile.SignatureEmail}}"
- KEINE EINLEITENDEN BEMERKUNGEN ODER META-KOMMENTARE - schreibe einfach die E-Mail selbst
- Halte die gesamte E-Mail prägnant (maximal 250-300 Wörter)

Richtlinien für den E-Mail-Inhalt:
1. Die Betreffzeile muss einzigartig, aufmerksamkeitserregend und speziell auf den Geschäftstyp zugeschnitten sein
2. Sprich den Empfänger mit Namen an und würdige seinen beruflichen Status
3. Beziehe dich auf den spezifischen Geschäftstyp
4. Wenn sie gute Bewertungen haben, erwähne kurz ihren positiven Ruf
5. Erkläre klar, wie unsere Dienstleistungen diesem spezifischen Geschäftstyp zugutekommen
6. Füge ein kurzes relevantes Beispiel oder eine Fallstudie ein
7. Schließe mit einer klaren, aber nicht aufdringlichen Handlungsaufforderung
8. Personalisiere basierend auf nützlichen Informationen in ihrem Profil

WICHTIG: Verwende KEINE Phrasen wie "Hier ist die E-Mail" oder "Hier ist eine personalisierte E-Mail" - beginne direkt mit "Betreff:"
`))

// promptData is the template context for composePromptTmpl.
type promptData struct {
	Lead    types.Lead
	Profile types.SenderProfile
}

// renderPrompt executes the compose prompt template for one lead.
func renderPrompt(lead types.Lead, profile types.SenderProfile) (string, error) {
	var buf bytes.Buffer
	if err := composePromptTmpl.Execute(&buf, promptData{Lead: lead, Profile: profile}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
