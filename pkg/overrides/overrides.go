package overrides

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// filePerm is applied to override files created by Save.
const filePerm fs.FileMode = 0o644

// FileName returns the override file name for an application.
func FileName(appName string) string {
	return fmt.Sprintf(".argocd-source-%s.yaml", appName)
}

// Path returns the override file path of candidate under the repository root.
func Path(root string, candidate types.Candidate) string {
	return filepath.Join(root, filepath.FromSlash(candidate.SourcePath), FileName(candidate.AppName))
}

// Load reads the override document at path.
//
// A missing file yields an empty document and exists=false. Read and parse failures wrap
// types.ErrPatch.
func Load(path string) (types.OverrideDocument, bool, error) {
	var document types.OverrideDocument

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document, false, nil
	}

	if err != nil {
		return document, false, fmt.Errorf("%w: %s: %w", types.ErrPatch, path, err)
	}

	if err := yaml.Unmarshal(content, &document); err != nil {
		return document, true, fmt.Errorf("%w: %s: %w", types.ErrPatch, path, err)
	}

	return document, true, nil
}

// Save serializes document to path, replacing the file entirely.
func Save(path string, document types.OverrideDocument) error {
	if document.Helm.Parameters == nil {
		document.Helm.Parameters = []types.Parameter{}
	}

	content, err := yaml.Marshal(document)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrPatch, path, err)
	}

	if err := os.WriteFile(path, content, filePerm); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrPatch, path, err)
	}

	return nil
}

// Outcome describes the effect of patching one candidate.
type Outcome struct {
	Path    string // Override file path.
	Exists  bool   // The override file exists.
	Matched int    // Parameters named after the candidate's override parameter.
	Changed bool   // At least one matched parameter changed value; the file was rewritten.
}

// SetParameter sets every parameter named name to value.
//
// Returns the number of parameters named name and whether any value actually changed.
func SetParameter(document *types.OverrideDocument, name, value string) (int, bool) {
	matched := 0
	changed := false

	for i := range document.Helm.Parameters {
		parameter := &document.Helm.Parameters[i]
		if parameter.Name != name {
			continue
		}

		matched++

		if parameter.Value != value {
			parameter.Value = value
			changed = true
		}
	}

	return matched, changed
}

// Apply pins candidate's override parameter to tag and reports whether the file changed.
//
// See Patch.
func Apply(root string, candidate types.Candidate, tag string) (bool, error) {
	outcome, err := Patch(root, candidate, tag)

	return outcome.Changed, err
}

// Patch pins candidate's override parameter to tag.
//
// The file is rewritten only if a value changed. A missing file or a file without a matching
// parameter is left untouched; no parameter is ever inserted.
//
// Parameters:
//   - root: Repository working copy root.
//   - candidate: Candidate whose override file is patched.
//   - tag: Resolved tag.
//
// Returns:
//   - Outcome: What was found and whether the file was modified.
//   - error: Non-nil (wrapping types.ErrPatch) if the file could not be read, parsed or written.
func Patch(root string, candidate types.Candidate, tag string) (Outcome, error) {
	outcome := Outcome{Path: Path(root, candidate)}
	fields := logrus.Fields(candidate.Fields())

	document, exists, err := Load(outcome.Path)
	if err != nil {
		return outcome, err
	}

	outcome.Exists = exists
	outcome.Matched, outcome.Changed = SetParameter(&document, candidate.ParameterName, tag)

	if !outcome.Changed {
		logrus.WithFields(fields).
			WithFields(logrus.Fields{"file": outcome.Path, "exists": exists, "matched": outcome.Matched, "tag": tag}).
			Debug("Override file left unchanged")

		return outcome, nil
	}

	logrus.WithFields(fields).Infof("Updating %s to %s", candidate.RegistryURL, tag)

	if err := Save(outcome.Path, document); err != nil {
		outcome.Changed = false

		return outcome, err
	}

	return outcome, nil
}
