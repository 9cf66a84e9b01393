// Package mailadapter renders and sends the change notification email. The
// report is built as markdown, converted to HTML with goldmark and wrapped
// in the embedded page template for the email's HTML part; the raw change
// list doubles as the plain-text part.
package mailadapter

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	_ "embed"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ppdms/tree-eclass/internal/entity"
)

//go:embed templates/email.html
var emailTemplateContent string

type PageContext struct {
	Title       string
	ContentHTML template.HTML
}

type Renderer struct {
	md  goldmark.Markdown
	tpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("email").Parse(emailTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("cannot parse email template: %w", err)
	}

	md := goldmark.New(
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{md: md, tpl: tpl}, nil
}

// Subject builds the email subject line for a set of changed courses.
func Subject(changes map[string][]entity.Change) string {
	if len(changes) == 1 {
		for name := range changes {
			return fmt.Sprintf("Change Detected: %s", name)
		}
	}

	return fmt.Sprintf("Changes Detected in %d Courses", len(changes))
}

// Plain builds the plain-text part of the notification.
func Plain(changes map[string][]entity.Change) string {
	var b strings.Builder
	b.WriteString("File system changes detected:\n\n")

	for _, name := range sortedCourses(changes) {
		fmt.Fprintf(&b, "=== Course: %s ===\n", name)
		for _, c := range changes[name] {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML builds the HTML part of the notification.
func (r *Renderer) HTML(changes map[string][]entity.Change) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(r.markdownReport(changes)), &buf); err != nil {
		return "", fmt.Errorf("cannot convert report markdown: %w", err)
	}

	var page bytes.Buffer
	ctx := &PageContext{
		Title:       "Change Detected - tree-eclass",
		ContentHTML: template.HTML(buf.String()),
	}
	if err := r.tpl.Execute(&page, ctx); err != nil {
		return "", fmt.Errorf("cannot build email page: %w", err)
	}

	return page.String(), nil
}

func (r *Renderer) markdownReport(changes map[string][]entity.Change) string {
	var b strings.Builder

	for _, name := range sortedCourses(changes) {
		courseChanges := changes[name]

		fmt.Fprintf(&b, "## %s\n\n", name)
		fmt.Fprintf(&b, "`%s`\n\n", entity.Summarize(courseChanges))

		for _, c := range courseChanges {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// sortedCourses keeps the rendered course order stable across runs.
func sortedCourses(changes map[string][]entity.Change) []string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
