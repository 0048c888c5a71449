// Package templates renders the dashboard page and the fragments that the
// SSE endpoint patches into it.
package templates

import (
	"context"
	"html/template"
	"io"
	"slices"
	"strings"

	"github.com/a-h/templ"

	"driver-compare/internal/present"
)

const (
	ComparisonID    = "comparison"
	DriverOptionsID = "driver-options"

	DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
)

type Option struct {
	Value    string
	Selected bool
}

// NewOptions marks every value found in selected.
func NewOptions(values, selected []string) []Option {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Value: v, Selected: slices.Contains(selected, v)})
	}
	return opts
}

type DashboardData struct {
	Title       string
	FileName    string
	Error       string
	Message     string
	HasWorkbook bool
	Departments []Option
	Drivers     []Option
	Metrics     []Option
}

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"messageData": func(kind, text string) messageView { return messageView{Kind: kind, Text: text} },
}).Parse(`
{{define "driver-options"}}<select id="driver-options" name="drivers" multiple size="8" data-bind-drivers data-on-change="@get('/sse/comparison')">{{range .}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end}}</select>{{end}}

{{define "message"}}<div id="comparison"><p class="message message-{{.Kind}}">{{.Text}}</p></div>{{end}}

{{define "comparison"}}<div id="comparison"><table class="comparison-table">{{if .Caption}}<caption>{{.Caption}}</caption>{{end}}<thead><tr><th>Driver</th>{{range .Table.Columns}}<th>{{.}}</th>{{end}}</tr></thead><tbody>{{range .Table.Rows}}<tr><th scope="row">{{.Driver}}</th>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table></div>{{end}}

{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="` + DatastarScript + `"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; color: #1f2933; }
header { padding: 1rem 2rem; background: #243b53; color: #fff; }
main { display: grid; grid-template-columns: 18rem 1fr; gap: 2rem; padding: 1.5rem 2rem; }
aside label { display: block; margin: 1rem 0 .25rem; font-weight: 600; }
aside select { width: 100%; }
.comparison-table { border-collapse: collapse; width: 100%; font-size: .9rem; }
.comparison-table th, .comparison-table td { border-bottom: 1px solid #d9e2ec; padding: .35rem .5rem; text-align: right; white-space: nowrap; }
.comparison-table th[scope=row], .comparison-table thead th:first-child { text-align: left; }
.message { padding: .75rem 1rem; border-radius: 4px; background: #e6f6ff; }
.message-error { background: #ffe3e3; }
</style>
</head>
<body>
<header><h1>{{.Title}}</h1></header>
<main>
<aside>
<form action="/upload" method="post" enctype="multipart/form-data">
<label for="file">Upload Excel File</label>
<input id="file" type="file" name="file" accept=".xlsx,.xlsm" required>
<button type="submit">Upload</button>
</form>
{{if .FileName}}<p class="file-name">Loaded: {{.FileName}}</p>{{end}}
{{if .Error}}<p class="message message-error" role="alert">{{.Error}}</p>{{end}}
{{if .HasWorkbook}}
<div data-signals='{"departments": [], "drivers": [], "metrics": []}'>
<label for="department-options">Select Departments:</label>
<select id="department-options" name="departments" multiple size="6" data-bind-departments data-on-change="@get('/sse/comparison')">{{range .Departments}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end}}</select>
<label for="driver-options">Select Drivers:</label>
{{template "driver-options" .Drivers}}
<label for="metric-options">Select Metrics:</label>
<select id="metric-options" name="metrics" multiple size="3" data-bind-metrics data-on-change="@get('/sse/comparison')">{{range .Metrics}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end}}</select>
</div>
{{end}}
</aside>
<section>
{{template "message" (messageData "info" .Message)}}
</section>
</main>
</body>
</html>{{end}}
`))

type messageView struct {
	Kind string
	Text string
}

type comparisonView struct {
	Caption string
	Table   present.Table
}

func execute(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return fragments.ExecuteTemplate(w, name, data)
	})
}

// Dashboard is the full page.
func Dashboard(data DashboardData) templ.Component {
	if data.Title == "" {
		data.Title = "Driver Data Comparison"
	}
	return execute("page", data)
}

// DriverOptions replaces the driver multi-select after the departments
// change.
func DriverOptions(opts []Option) templ.Component {
	return execute("driver-options", opts)
}

// Message fills the comparison container with an info or error notice.
func Message(kind, text string) templ.Component {
	return execute("message", messageView{Kind: kind, Text: text})
}

func Comparison(caption string, table present.Table) templ.Component {
	return execute("comparison", comparisonView{Caption: caption, Table: table})
}

// Render writes c into a string for an SSE patch.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
