package types

import "fmt"

// Candidate is one declared image-update target of an application declaration.
//
// Several candidates may share SourcePath and AppName and differ only in ParameterName.
type Candidate struct {
	AppName       string // Name of the owning application (metadata.name).
	ImageName     string // Alias of the image inside the image-list annotation.
	RegistryURL   string // Registry image reference, e.g. ghcr.io/org/api.
	AllowTags     string // Tag filter expression, optionally prefixed with "regexp:".
	ParameterName string // Override parameter controlled by this candidate (helm.image-tag).
	SourcePath    string // spec.source.path, relative to the repository root.
	File          string // Manifest file declaring the candidate, relative to the repository root.
}

// String returns a short identifier used in logs and notifications.
func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s=%s", c.AppName, c.ImageName, c.RegistryURL)
}

// Fields returns the structured log fields identifying the candidate.
func (c Candidate) Fields() map[string]any {
	return map[string]any{
		"app":       c.AppName,
		"image":     c.RegistryURL,
		"parameter": c.ParameterName,
	}
}
