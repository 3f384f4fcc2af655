// Package actions provides the update run of the image updater.
//
// A run synchronizes the manifest working copy, extracts update candidates from application
// declarations, resolves each candidate's latest allowed tag, pins it in the application's
// override file and commits and pushes the working copy when any override changed.
//
// Key components:
//   - Updater: Executes runs against a Repository and a TagResolver.
//   - RunUpdatesWithNotifications: Executes a run and reports it to a notifier.
//
// Usage example:
//
//	updater := actions.New(repository, resolver.New(registryClient), 4)
//	result, err := actions.RunUpdatesWithNotifications(ctx, updater, notifier)
//	if err != nil {
//	    logrus.WithError(err).Error("Update failed")
//	}
//	metrics.Default().RegisterRun(result.Metric(err))
//
// Candidate failures never abort a run; only synchronization, extraction and push failures do.
package actions
