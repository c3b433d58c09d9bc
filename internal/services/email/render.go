// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Render returns the HTML and plain text bodies of msg.
func Render(msg Message) (string, string, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, msg.Template+".html", msg); err != nil {
		return "", "", fmt.Errorf("rendering %s html: %w", msg.Template, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, msg.Template+".txt", msg); err != nil {
		return "", "", fmt.Errorf("rendering %s text: %w", msg.Template, err)
	}
	return html.String(), text.String(), nil
}
