package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/dshills/guide/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"rows":   rows,
	"indent": func(depth int) string { return strings.Repeat("&nbsp;&nbsp;", depth) },
	"code": func(s string) string {
		if s == "" {
			return ""
		}
		return "`" + s + "`"
	},
}).Parse(`# Guide Report: {{ .Mission.Name }}

**Verdict:** {{ .Summary.Verdict }}
**Score:** {{ .Summary.Score }}/100
**Specs:** {{ .Summary.Specs }} | **Bound:** {{ .Summary.Bound }} | **Passed:** {{ .Summary.Passed }} | **Failed:** {{ .Summary.Failed }} | **Unverified:** {{ .Summary.Unverified }}
**Tests:** {{ .Summary.Tests }} | **Linked:** {{ .Summary.Linked }} | **Linked failed:** {{ .Summary.LinkedFailed }} | **Undeclared:** {{ .Summary.Undeclared }} | **Orphans:** {{ .Summary.Orphans }}
{{ with rows .Design }}
---

## Design

| Spec | Definition | Test | Status |
|---|---|---|---|
{{ range . }}| {{ indent .Depth }}{{ .Key }} | {{ .Defn }} | {{ code .Ref }} | {{ .Status }} |
{{ end }}{{ end }}{{ if .Signal }}
---

## Signal

| ID | Test | Specs | Outcome | Duration |
|---|---|---|---|---|
{{ range .Signal }}| {{ .ID }} | ` + "`{{ .Ref }}`" + ` | {{ range $i, $s := .SpecIDs }}{{ if $i }}, {{ end }}{{ $s }}{{ end }} | {{ .Result.Outcome }} | {{ printf "%.3fs" .Result.Duration }} |
{{ end }}{{ end }}{{ if .Warnings }}
---

## Warnings
{{ range .Warnings }}
- **{{ .Kind }}**{{ if .Ref }} ` + "`{{ .Ref }}`" + `{{ end }}{{ if .SpecID }} ({{ .SpecID }}){{ end }}: {{ .Message }}{{ end }}
{{ end }}
---
*{{ .Tool }} {{ .Version }} | {{ .Input.Command }} | {{ .Input.MissionFile }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
