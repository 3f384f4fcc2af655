// Package flags manages command-line flags and environment variables for the image updater.
// It registers repository, registry, API and notification settings via Cobra and Viper and
// turns them into the explicit configuration consumed by the update pipeline.
//
// Key components:
//   - RegisterSystemFlags: Adds repository, registry, API and operational flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - GetSecretsFromFiles: Replaces secret flag values naming files with the file content.
//   - SetupLogging: Configures logrus based on flags.
//   - BuildConfig: Builds and validates the run configuration.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	flags.RegisterNotificationFlags(cmd)
//	cfg, err := flags.BuildConfig(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Invalid configuration")
//	}
//
// The package integrates with Cobra for flag parsing, Viper for environment variable binding,
// and logrus for logging configuration errors.
package flags
