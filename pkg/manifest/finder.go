package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// gitDir is never descended into.
const gitDir = ".git"

// Result holds the candidates and diagnostics of a repository walk.
type Result struct {
	Candidates  []types.Candidate
	Diagnostics []Diagnostic
}

// FindCandidates walks root and extracts candidates from every regular .yaml or .yml file.
//
// Files that fail to parse are reported as diagnostics and skipped. Walk and read failures are
// returned as types.ErrExtraction and abort the walk.
func FindCandidates(root string) (Result, error) {
	var result Result

	logrus.WithField("root", root).Info("Extracting candidates")

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if entry.Name() == gitDir {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() || !isYAML(entry.Name()) {
			return nil
		}

		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		candidates, diagnostics := FromFile(content, filepath.ToSlash(relative))
		result.Candidates = append(result.Candidates, candidates...)
		result.Diagnostics = append(result.Diagnostics, diagnostics...)

		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: walking %s: %w", types.ErrExtraction, root, err)
	}

	logrus.WithFields(logrus.Fields{
		"candidates":  len(result.Candidates),
		"diagnostics": len(result.Diagnostics),
	}).Debug("Finished extracting candidates")

	return result, nil
}

// FromFile extracts the candidates declared in the content of a single manifest file.
//
// A file that cannot be split into documents yields one diagnostic for the whole file. A document
// that is not a mapping yields a diagnostic of its own and the remaining documents are still read.
func FromFile(content []byte, file string) ([]types.Candidate, []Diagnostic) {
	raw, err := SplitDocuments(content)
	if err != nil {
		return nil, []Diagnostic{{
			File:     file,
			Document: -1,
			Severity: SeverityDebug,
			Err:      err,
		}}
	}

	var (
		candidates  []types.Candidate
		diagnostics []Diagnostic
	)

	for index, data := range raw {
		document, err := ParseDocument(data)
		if err != nil {
			diagnostics = append(diagnostics, Diagnostic{
				File:     file,
				Document: index,
				Severity: SeverityDebug,
				Err:      err,
			})

			continue
		}

		if !IsApplication(document) {
			continue
		}

		found, skipped := Extract(document, file, index)
		candidates = append(candidates, found...)
		diagnostics = append(diagnostics, skipped...)
	}

	return candidates, diagnostics
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
