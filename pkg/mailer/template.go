package mailer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.md
var templatesFS embed.FS

// Template names
const (
	TemplateDeadlineReminder = "deadline_reminder"
)

var (
	ErrUnknownTemplate         = errors.New("unknown email template")
	ErrMissingClosingDelimiter = errors.New("front matter: missing closing ---")
	ErrMissingSubject          = errors.New("front matter: subject is required")
)

type frontMatter struct {
	Subject string `yaml:"subject"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Rendered is one email ready for a transport.
type Rendered struct {
	Subject string
	Text    string // Markdown source after substitution
	HTML    string
}

// Templates holds the compiled embedded templates.
type Templates struct {
	byName map[string]compiled
	md     goldmark.Markdown
}

// LoadTemplates compiles every embedded template.
func LoadTemplates() (*Templates, error) {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	t := &Templates{byName: make(map[string]compiled), md: goldmark.New()}
	for _, e := range entries {
		raw, err := templatesFS.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		c, err := compile(name, raw)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		t.byName[name] = c
	}
	return t, nil
}

func compile(name string, raw []byte) (compiled, error) {
	fm, body, err := splitFrontMatter(raw)
	if err != nil {
		return compiled{}, err
	}
	var meta frontMatter
	if err := yaml.Unmarshal(fm, &meta); err != nil {
		return compiled{}, fmt.Errorf("front matter: %w", err)
	}
	if meta.Subject == "" {
		return compiled{}, ErrMissingSubject
	}

	funcs := template.FuncMap{"label": Label}
	subject, err := template.New(name + ".subject").Funcs(funcs).Option("missingkey=error").Parse(meta.Subject)
	if err != nil {
		return compiled{}, err
	}
	bodyTpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return compiled{}, err
	}
	return compiled{subject: subject, body: bodyTpl}, nil
}

// splitFrontMatter separates the leading --- delimited YAML block from the body.
func splitFrontMatter(content []byte) (fm, body []byte, err error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, nil
	}
	rest := content[len("---\n"):]
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		return nil, nil, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len("\n---\n"):], nil
}

// Render executes the named template with data and converts the body to HTML.
func (t *Templates) Render(name string, data map[string]any) (*Rendered, error) {
	c, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var subject, body, html bytes.Buffer
	if err := c.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := c.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	if err := t.md.Convert(body.Bytes(), &html); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}

	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    body.String(),
		HTML:    html.String(),
	}, nil
}

// Label turns a stored enum value such as "rejected_with_deadline" into display text.
func Label(value string) string {
	// a Caser keeps state, so one per call
	return cases.Title(language.English).String(strings.ReplaceAll(value, "_", " "))
}
