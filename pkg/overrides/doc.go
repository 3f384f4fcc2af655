// Package overrides reads and rewrites the per-application parameter override files.
//
// An override file lives at <source path>/.argocd-source-<app>.yaml and pins Helm parameter values
// for the deployment-sync tool. Updates only ever modify the value of existing parameters; missing
// parameters are never inserted.
package overrides
