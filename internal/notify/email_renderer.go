package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shanehull/cs2news/internal/types"
)

// HTMLEmailRenderer renders items as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

// NewHTMLEmailRenderer creates a renderer with the default email template.
func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	t := template.Must(template.New("email").Parse(emailHTMLTemplate))
	return &HTMLEmailRenderer{tmpl: t}
}

type emailData struct {
	Label    string
	Headline string
	Date     string
	Link     string
	Bullets  []string
	Body     string
}

// Render produces an HTML email with plain text alternative.
func (r *HTMLEmailRenderer) Render(item types.Item) (*RenderedMessage, error) {
	data := emailData{
		Label:    categoryLabel(item.Category),
		Headline: item.Headline(),
		Date:     item.Date,
		Link:     item.Link,
	}
	data.Bullets, data.Body = splitSummary(item.Summary)

	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: fmt.Sprintf("CS2 %s: %s", item.Category, item.Title),
		Text:    renderPlainText(item),
		HTML:    htmlBuf.String(),
	}, nil
}

// splitSummary returns bullets when every line is a "- " bullet, otherwise
// the summary as a single body.
func splitSummary(summary string) ([]string, string) {
	lines := strings.Split(strings.TrimSpace(summary), "\n")
	bullets := make([]string, 0, len(lines))
	for _, l := range lines {
		text, ok := strings.CutPrefix(strings.TrimSpace(l), "- ")
		if !ok {
			return nil, summary
		}
		bullets = append(bullets, text)
	}
	return bullets, ""
}

func renderPlainText(item types.Item) string {
	var sb strings.Builder

	sb.WriteString(item.Headline() + "\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	if item.Date != "" {
		sb.WriteString(fmt.Sprintf("Date: %s\n", item.Date))
	}
	sb.WriteString(fmt.Sprintf("URL: %s\n\n", item.Link))

	if strings.TrimSpace(item.Summary) == "" {
		sb.WriteString(noSummary + "\n")
	} else {
		sb.WriteString(item.Summary + "\n")
	}

	return sb.String()
}
