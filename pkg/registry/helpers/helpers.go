// Package helpers parses image references into the registry domain and repository path used by the
// distribution API.
package helpers

import (
	"fmt"

	"github.com/distribution/reference"
)

// ParseReference parses an image reference, expanding short Docker Hub names.
func ParseReference(imageRef string) (reference.Named, error) {
	named, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image reference: %w", err)
	}

	return named, nil
}

// GetRepository returns the registry domain and repository path of an image reference.
//
// Tags and digests are ignored; "alpine" yields ("docker.io", "library/alpine").
func GetRepository(imageRef string) (string, string, error) {
	named, err := ParseReference(imageRef)
	if err != nil {
		return "", "", err
	}

	return reference.Domain(named), reference.Path(named), nil
}
