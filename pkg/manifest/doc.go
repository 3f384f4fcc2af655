// Package manifest discovers image-update candidates in a manifest repository.
//
// It walks the repository for YAML files, splits each file into documents, recognises Argo CD
// Application declarations and extracts one types.Candidate per image listed in the
// argocd-image-updater.argoproj.io/image-list annotation.
//
// Missing optional fields never abort extraction. Every skipped file, document or image is
// reported as a Diagnostic so callers can log it with the right severity.
package manifest
