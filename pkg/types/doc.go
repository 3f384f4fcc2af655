// Package types defines the data model and interfaces shared across the image updater.
// It provides the update candidate, the override document persisted next to each application,
// the run configuration, the error taxonomy, and the reporting abstractions used by notifications.
//
// Key components:
//   - Candidate: One (application, image) pair discovered in the manifest repository.
//   - OverrideDocument: The `.argocd-source-<app>.yaml` file pinning Helm parameters.
//   - Config / RunConfig: Explicit configuration built once at startup.
//   - Report: Interface for run results (scanned, updated, failed, ...).
//   - Notifier: Interface for notification services.
//   - RegistryCredentials: Struct for registry authentication.
//
// Usage example:
//
//	cfg := types.Config{RepositoryURL: "git@github.com:org/deploy.git", Branch: "main"}
//	result, err := updater.Run(ctx)
//	notifier.Send(result.Report, err)
package types
