// Package templates provides the functions available to notification templates.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Funcs defines the utility functions for use in notification templates.
var Funcs = template.FuncMap{
	"ToUpper": strings.ToUpper,
	"ToLower": strings.ToLower,
	"ToJSON":  toJSON,
	"Title":   cases.Title(language.AmericanEnglish).String,
	"Apps":    apps,
}

// toJSON marshals a value to an indented JSON string, or an error message if marshaling fails.
func toJSON(v any) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).Warn("Failed to marshal JSON in notification template")

		return fmt.Sprintf("failed to marshal JSON in notification template: %v", err)
	}

	return string(bytes)
}

// apps joins the distinct application names of reports, in report order.
func apps(reports []types.CandidateReport) string {
	seen := map[string]bool{}
	names := make([]string, 0, len(reports))

	for _, report := range reports {
		name := report.Candidate().AppName
		if seen[name] {
			continue
		}

		seen[name] = true
		names = append(names, name)
	}

	return strings.Join(names, ", ")
}
