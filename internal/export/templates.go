package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var boardTemplate = template.Must(template.New("board").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(boardTemplateHTML))

// TemplateData holds data for board template rendering.
type TemplateData struct {
	Title       string
	Description string
	UpdatedAt   time.Time
	Columns     []TemplateColumn
}

// TemplateColumn holds one lane of cards in board order.
type TemplateColumn struct {
	Title string
	Cards []TemplateCard
}

// TemplateCard holds one card's printable fields.
type TemplateCard struct {
	Title       string
	Description string
	Assignee    string
	Deadline    string
	Labels      []TemplateLabel
	Checklist   string
}

// TemplateLabel is a named color chip.
type TemplateLabel struct {
	Name  string
	Color string
}

// RenderBoardHTML renders the board template with provided data.
func RenderBoardHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const boardTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; margin: 2rem; color: #1a1a1a; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; margin-bottom: 0.25rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .column { page-break-inside: avoid; margin-bottom: 1.5rem; }
    .column h2 { background: #f0f0f0; padding: 0.4rem 0.75rem; font-size: 1.05em; }
    .card { border: 1px solid #ddd; border-radius: 4px; padding: 0.6rem 0.75rem; margin: 0.5rem 0; }
    .card h3 { margin: 0 0 0.25rem 0; font-size: 1em; }
    .card .detail { color: #555; font-size: 0.85em; }
    .label { display: inline-block; padding: 0 0.4rem; border-radius: 3px; font-size: 0.75em; margin-right: 0.25rem; background: #e8e8e8; }
    .empty { color: #999; font-style: italic; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <div class="meta">Exported snapshot | Updated {{formatDate .UpdatedAt "Jan 2, 2006 15:04"}}</div>
  {{range .Columns}}
  <div class="column">
    <h2>{{.Title}}</h2>
    {{if .Cards}}{{range .Cards}}
    <div class="card">
      <h3>{{.Title}}</h3>
      {{if .Labels}}<div>{{range .Labels}}<span class="label label-{{lower .Color}}">{{.Name}}</span>{{end}}</div>{{end}}
      {{if .Description}}<div class="detail">{{.Description}}</div>{{end}}
      {{if .Assignee}}<div class="detail">Assignee: {{.Assignee}}</div>{{end}}
      {{if .Deadline}}<div class="detail">Due: {{.Deadline}}</div>{{end}}
      {{if .Checklist}}<div class="detail">Checklist: {{.Checklist}}</div>{{end}}
    </div>
    {{end}}{{else}}<div class="empty">No cards</div>{{end}}
  </div>
  {{end}}
</body>
</html>`
