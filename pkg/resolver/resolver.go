// Package resolver selects the newest eligible registry tag for an update candidate.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Filter kind prefixes understood by allow-tags annotations.
const (
	RegexpPrefix = "regexp:"
	semverPrefix = "semver:"
	globPrefix   = "glob:"
)

// TagLister lists every tag of an image reference.
type TagLister interface {
	ListTags(ctx context.Context, imageRef string) ([]string, error)
}

// Resolver resolves candidates to their latest eligible tag.
type Resolver struct {
	tags TagLister
}

// New creates a Resolver querying tags through lister.
func New(lister TagLister) *Resolver {
	return &Resolver{tags: lister}
}

// LatestTag queries the registry for candidate.RegistryURL and returns the newest tag allowed by
// candidate.AllowTags.
//
// Returns:
//   - string: The selected tag.
//   - error: types.ErrInvalidTagFilter, types.ErrRegistry or types.ErrNoMatchingTag.
func (r *Resolver) LatestTag(ctx context.Context, candidate types.Candidate) (string, error) {
	filter, err := CompileFilter(candidate.AllowTags)
	if err != nil {
		return "", err
	}

	logrus.WithFields(candidate.Fields()).Info("Getting latest tag for candidate")

	tags, err := r.tags.ListTags(ctx, candidate.RegistryURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", types.ErrRegistry, candidate.RegistryURL, err)
	}

	tag, ok := Latest(Filter(tags, filter))
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", types.ErrNoMatchingTag, candidate.AppName, candidate.AllowTags)
	}

	logrus.WithFields(candidate.Fields()).
		WithFields(logrus.Fields{"tags": len(tags), "latest": tag}).
		Debug("Resolved latest tag")

	return tag, nil
}

// CompileFilter compiles an allow-tags expression into a regular expression matching whole tags.
//
// A leading "regexp:" is stripped. Other filter kinds are not supported; their prefix is kept
// and the value is compiled as a regular expression after logging a warning.
func CompileFilter(allowTags string) (*regexp.Regexp, error) {
	pattern := strings.TrimPrefix(allowTags, RegexpPrefix)

	if strings.HasPrefix(pattern, semverPrefix) || strings.HasPrefix(pattern, globPrefix) {
		logrus.WithField("allow_tags", allowTags).
			Warn("Only regular expression tag filters are supported; treating value as a regular expression")
	}

	filter, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", types.ErrInvalidTagFilter, allowTags, err)
	}

	return filter, nil
}

// Filter returns the tags fully matched by filter, preserving input order.
func Filter(tags []string, filter *regexp.Regexp) []string {
	matched := make([]string, 0, len(tags))

	for _, tag := range tags {
		if filter.MatchString(tag) {
			matched = append(matched, tag)
		}
	}

	return matched
}

// Less orders tags treating embedded digit runs as numbers, so "v2" sorts before "v10".
//
// Tags the natural order considers equal ("01" and "1") fall back to lexical order, which keeps
// the ordering total.
func Less(a, b string) bool {
	if natural.Less(a, b) {
		return true
	}

	if natural.Less(b, a) {
		return false
	}

	return a < b
}

// Sort orders tags ascending with Less.
//
// Tags are first sorted lexically so the result does not depend on the input order.
func Sort(tags []string) []string {
	sorted := slices.Clone(tags)
	sort.Strings(sorted)
	sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	return sorted
}

// Latest returns the greatest tag under Less.
func Latest(tags []string) (string, bool) {
	if len(tags) == 0 {
		return "", false
	}

	sorted := Sort(tags)

	return sorted[len(sorted)-1], true
}
