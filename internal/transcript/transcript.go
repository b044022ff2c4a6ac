// ABOUTME: HTML transcript export for conversation logs
// ABOUTME: Assistant markdown is rendered via goldmark; user text stays escaped plain

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/session"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Conversation {{.ConversationID}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.user { background: #eef; padding: 0.5rem 1rem; border-radius: 6px; margin: 0.5rem 0; }
.assistant { padding: 0.5rem 1rem; margin: 0.5rem 0; }
.role { font-size: 0.8rem; color: #666; text-transform: uppercase; }
.properties { font-size: 0.9rem; color: #333; border-left: 3px solid #9c9; padding-left: 0.75rem; }
footer { font-size: 0.8rem; color: #999; margin-top: 2rem; }
</style>
</head>
<body>
<h1>Conversation transcript</h1>
{{range .Messages}}
<div class="{{.Role}}">
<div class="role">{{.Role}}</div>
{{.Content}}
{{if .Properties}}
<div class="properties">
<ul>
{{range .Properties}}<li>{{.}}</li>
{{end}}</ul>
</div>
{{end}}
</div>
{{end}}
<footer>Conversation {{.ConversationID}} &mdash; exported {{.ExportedAt}}</footer>
</body>
</html>
`

var tmpl = template.Must(template.New("transcript").Parse(pageTemplate))

// renderedMessage is one message prepared for the template.
type renderedMessage struct {
	Role       string
	Content    template.HTML
	Properties []string
}

// ExportHTML writes the message log as a standalone HTML page. Assistant
// messages are markdown and get converted; user messages are escaped
// verbatim.
func ExportHTML(w io.Writer, conversationID string, messages []session.Message) error {
	rendered := make([]renderedMessage, 0, len(messages))
	for _, msg := range messages {
		rm := renderedMessage{Role: string(msg.Role)}

		if msg.Role == session.RoleAssistant {
			var htmlBuf bytes.Buffer
			if err := goldmark.Convert([]byte(msg.Content), &htmlBuf); err != nil {
				return fmt.Errorf("converting markdown: %w", err)
			}
			rm.Content = template.HTML(htmlBuf.String())
		} else {
			rm.Content = template.HTML("<p>" + template.HTMLEscapeString(msg.Content) + "</p>")
		}

		for _, p := range msg.Properties {
			rm.Properties = append(rm.Properties, p.String())
		}
		rendered = append(rendered, rm)
	}

	data := struct {
		ConversationID string
		Messages       []renderedMessage
		ExportedAt     string
	}{
		ConversationID: conversationID,
		Messages:       rendered,
		ExportedAt:     time.Now().Format(time.RFC3339),
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}
