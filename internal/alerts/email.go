package alerts

import (
	"bytes"
	_ "embed"
	"html/template"
)

//go:embed templates/alert.html.tmpl
var alertTemplateSource string

var alertTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	// Alert bodies are authored by staff in the content editor.
	"trusted": func(s string) template.HTML { return template.HTML(s) },
}).Parse(alertTemplateSource))

type email struct {
	Class      string
	Tagline    string
	Paragraphs []string
	Events     []eventLine
	Body       string
	EditLink   string
}

type eventLine struct {
	Title    string
	Link     string
	Initials string
	Start    string
}

func render(e email) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, e); err != nil {
		return "", err
	}
	return buf.String(), nil
}
