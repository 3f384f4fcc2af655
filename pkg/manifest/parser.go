package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Application declaration identity.
const (
	ApplicationAPIVersion = "argoproj.io/v1alpha1"
	ApplicationKind       = "Application"
)

// Annotation keys consumed from application declarations.
const (
	AnnotationPrefix    = "argocd-image-updater.argoproj.io/"
	ImageListAnnotation = AnnotationPrefix + "image-list"
	allowTagsSuffix     = ".allow-tags"
	helmImageTagSuffix  = ".helm.image-tag"
	documentSeparator   = "---"
)

// Reasons a document or image does not yield a candidate.
var (
	errNoName          = errors.New("metadata.name is missing or not a string")
	errNoAnnotations   = errors.New("metadata.annotations is missing or not a mapping")
	errNoImageList     = errors.New("image-list annotation is missing or not a string")
	errNoSourcePath    = errors.New("spec.source.path is missing or not a string")
	errMalformedImage  = errors.New("image-list entry is not of the form name=reference")
	errNoAllowTags     = errors.New("allow-tags annotation is missing or not a string")
	errNoHelmImageTag  = errors.New("helm.image-tag annotation is missing or not a string")
	errInvalidDocument = errors.New("document is not a mapping")
)

// Severity classifies a diagnostic for logging.
type Severity int

const (
	// SeverityDebug marks documents that simply did not opt into image updates.
	SeverityDebug Severity = iota
	// SeverityWarning marks declarations that opted in but are incomplete.
	SeverityWarning
)

// Diagnostic describes a file, document or image skipped during extraction.
type Diagnostic struct {
	File     string   // File the diagnostic was raised for, relative to the repository root.
	Document int      // Zero-based document index inside File, -1 for file-level diagnostics.
	App      string   // Application name, when known.
	Image    string   // image-list entry, when the diagnostic concerns a single image.
	Severity Severity // Logging severity.
	Err      error    // Reason, wrapping types.ErrParse or types.ErrExtraction.
}

// Message returns the human-readable log message for the diagnostic.
func (d Diagnostic) Message() string {
	switch {
	case errors.Is(d.Err, errNoAllowTags):
		return fmt.Sprintf("Found image %s without `allow-tags`. Ignoring.", d.Image)
	case errors.Is(d.Err, errNoHelmImageTag):
		return fmt.Sprintf("Found image %s without `helm.image-tag`. Ignoring.", d.Image)
	case errors.Is(d.Err, types.ErrParse):
		return fmt.Sprintf("Couldn't parse %s. Ignoring it.", d.File)
	default:
		return "Skipping application declaration"
	}
}

// Document is a generic YAML mapping.
type Document map[string]any

// SplitDocuments splits content into its non-empty YAML documents.
//
// Leading and trailing separators are ignored, so files beginning or ending with "---" produce
// no empty documents.
func SplitDocuments(content []byte) ([][]byte, error) {
	trimmed := bytes.TrimSpace(content)
	trimmed = bytes.TrimPrefix(trimmed, []byte(documentSeparator))
	trimmed = bytes.TrimSuffix(trimmed, []byte(documentSeparator))

	reader := k8syaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(trimmed)))

	var documents [][]byte

	for {
		document, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrParse, err)
		}

		if len(bytes.TrimSpace(document)) == 0 {
			continue
		}

		documents = append(documents, document)
	}

	return documents, nil
}

// ParseDocument parses a single document into a generic mapping.
//
// A document that is not a mapping fails with types.ErrParse. Documents holding only comments
// decode to an empty mapping.
func ParseDocument(data []byte) (Document, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", types.ErrParse, errInvalidDocument, err)
	}

	return document, nil
}

// IsApplication reports whether the document is an Argo CD Application declaration.
func IsApplication(document Document) bool {
	apiVersion, _, _ := unstructured.NestedString(document, "apiVersion")
	kind, _, _ := unstructured.NestedString(document, "kind")

	return apiVersion == ApplicationAPIVersion && kind == ApplicationKind
}

// Extract returns the candidates declared by an application document and the diagnostics for
// everything skipped on the way.
//
// The document must already satisfy IsApplication. Images are returned in image-list order.
func Extract(document Document, file string, index int) ([]types.Candidate, []Diagnostic) {
	diagnose := func(app, image string, severity Severity, reason error) Diagnostic {
		return Diagnostic{
			File:     file,
			Document: index,
			App:      app,
			Image:    image,
			Severity: severity,
			Err:      fmt.Errorf("%w: %w", types.ErrExtraction, reason),
		}
	}

	annotations, ok := stringMapping(document, "metadata", "annotations")
	if !ok {
		return nil, []Diagnostic{diagnose("", "", SeverityDebug, errNoAnnotations)}
	}

	name, found, err := unstructured.NestedString(document, "metadata", "name")
	if !found || err != nil {
		return nil, []Diagnostic{diagnose("", "", SeverityDebug, errNoName)}
	}

	imageList, ok := annotations[ImageListAnnotation].(string)
	if !ok {
		return nil, []Diagnostic{diagnose(name, "", SeverityDebug, errNoImageList)}
	}

	sourcePath, found, err := unstructured.NestedString(document, "spec", "source", "path")
	if !found || err != nil {
		return nil, []Diagnostic{diagnose(name, "", SeverityWarning, errNoSourcePath)}
	}

	var (
		candidates  []types.Candidate
		diagnostics []Diagnostic
	)

	for _, entry := range strings.Split(imageList, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		alias, reference, ok := strings.Cut(entry, "=")
		if !ok {
			diagnostics = append(diagnostics, diagnose(name, entry, SeverityWarning, errMalformedImage))

			continue
		}

		allowTags, ok := annotations[AnnotationPrefix+alias+allowTagsSuffix].(string)
		if !ok {
			diagnostics = append(diagnostics, diagnose(name, alias, SeverityWarning, errNoAllowTags))

			continue
		}

		parameter, ok := annotations[AnnotationPrefix+alias+helmImageTagSuffix].(string)
		if !ok {
			diagnostics = append(diagnostics, diagnose(name, alias, SeverityWarning, errNoHelmImageTag))

			continue
		}

		candidates = append(candidates, types.Candidate{
			AppName:       name,
			ImageName:     alias,
			RegistryURL:   reference,
			AllowTags:     allowTags,
			ParameterName: parameter,
			SourcePath:    sourcePath,
			File:          file,
		})
	}

	return candidates, diagnostics
}

// stringMapping looks up a nested mapping without copying it.
func stringMapping(document Document, fields ...string) (map[string]any, bool) {
	value, found, err := unstructured.NestedFieldNoCopy(document, fields...)
	if !found || err != nil {
		return nil, false
	}

	mapping, ok := value.(map[string]any)

	return mapping, ok
}
