package notifications

var commonTemplates = map[string]string{
	`default`: `
{{- with .Error}}Update run failed: {{.}}{{end -}}
{{- if and .Error .Report}}{{println}}{{end -}}
{{- with .Report -}}
{{len .Scanned}} Scanned, {{len .Updated}} Updated, {{len .Failed}} Failed
{{- with .Updated}}{{println}}Updated applications: {{Apps .}}{{end -}}
{{- range .Updated}}{{println}}- {{.Candidate.AppName}} ({{.Candidate.RegistryURL}}): {{.Candidate.ParameterName}} pinned to {{.LatestTag}}{{end -}}
{{- range .Failed}}{{println}}- {{.Candidate.AppName}} ({{.Candidate.RegistryURL}}): {{.State}}: {{.Error}}{{end -}}
{{- end -}}`,

	`porcelain.v1.summary`: `
{{- if .Report -}}
  {{- range .Report.All }}
    {{- .Candidate.AppName}} ({{.Candidate.RegistryURL}}): {{.State -}}
    {{- with .LatestTag}} {{.}}{{end -}}
    {{- with .Error}} Error: {{.}}{{end}}{{ println }}
  {{- else -}}
    no candidates found
  {{- end -}}
{{- end -}}`,

	`json.v1`: `{{ . | ToJSON }}`,
}
