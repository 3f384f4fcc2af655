// Package cmd contains the command-line interface of the image updater.
// It wires configuration, the git working copy, the registry client, notifications, the HTTP API
// and the optional schedule into a running process.
//
// Key components:
//   - rootCmd: Root command running the webhook server, the scheduler or a single update.
//   - RunConfig: Settings assembled from flags before execution.
//
// Usage example:
//
//	cmd.Execute()
//
// The package integrates with the actions, api, flags, git, registry and notifications packages,
// using Cobra for CLI parsing and logrus for logging.
package cmd
