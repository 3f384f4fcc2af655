package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nicholas-fedor/gitops-image-updater/internal/actions"
	"github.com/nicholas-fedor/gitops-image-updater/internal/api"
	"github.com/nicholas-fedor/gitops-image-updater/internal/flags"
	"github.com/nicholas-fedor/gitops-image-updater/internal/logging"
	"github.com/nicholas-fedor/gitops-image-updater/internal/meta"
	"github.com/nicholas-fedor/gitops-image-updater/internal/scheduling"
	metricsAPI "github.com/nicholas-fedor/gitops-image-updater/pkg/api/metrics"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/api/update"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/git"
	gitAuth "github.com/nicholas-fedor/gitops-image-updater/pkg/git/auth"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/metrics"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/notifications"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/registry"
	registryAuth "github.com/nicholas-fedor/gitops-image-updater/pkg/registry/auth"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/resolver"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// workdirPrefix names temporary working copies.
const workdirPrefix = "image-updater"

// rootCmd is the entry point of the CLI.
var rootCmd = NewRootCommand()

// RunConfig holds everything runMain needs.
type RunConfig struct {
	types.RunConfig

	Notifications    notifications.Config
	NoStartupMessage bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gitops-image-updater",
		Short: "Keeps image tags of a GitOps repository pinned to the latest registry release",
		Long: "\nThe image updater watches the Argo CD applications of a manifest repository, " +
			"resolves the newest matching tag of every tracked image\nand commits the pinned tags back, " +
			"whenever its webhook is called or its schedule fires.",
		Run:    run,
		PreRun: preRun,
		Args:   cobra.NoArgs,
	}
}

func init() {
	flags.SetDefaults()
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
}

// Execute runs the root command, exiting on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun resolves flag aliases, configures logging and reads secrets from files.
func preRun(cmd *cobra.Command, _ []string) {
	flagsSet := cmd.PersistentFlags()

	if err := flags.ProcessFlagAliases(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to process flag aliases")
	}

	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	if err := flags.GetSecretsFromFiles(cmd); err != nil {
		logrus.WithError(err).Fatal("Failed to read secrets")
	}
}

// run builds the configuration and exits with the status of runMain.
func run(c *cobra.Command, _ []string) {
	cfg, err := buildRunConfig(c.PersistentFlags())
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if exitCode := runMain(ctx, cfg); exitCode != 0 {
		stop()
		logrus.WithField("exit_code", exitCode).Debug("Exiting with non-zero status")
		os.Exit(exitCode)
	}
}

// buildRunConfig reads the run and notification settings from flags.
func buildRunConfig(flagsSet *pflag.FlagSet) (RunConfig, error) {
	runConfig, err := flags.BuildConfig(flagsSet)
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to build configuration: %w", err)
	}

	cfg := RunConfig{RunConfig: runConfig}

	cfg.Notifications.URLs = runConfig.NotificationURLs
	cfg.Notifications.Template, _ = flagsSet.GetString("notification-template")
	cfg.Notifications.TitleTag, _ = flagsSet.GetString("notification-title-tag")
	cfg.Notifications.Hostname, _ = flagsSet.GetString("notifications-hostname")
	cfg.Notifications.Stdout, _ = flagsSet.GetBool("notification-log-stdout")
	cfg.NoStartupMessage, _ = flagsSet.GetBool("no-startup-message")

	return cfg, nil
}

// prepareWorkdir returns workdir, creating a temporary directory when it is empty.
func prepareWorkdir(workdir string) (string, error) {
	if workdir != "" {
		return workdir, nil
	}

	dir, err := os.MkdirTemp("", workdirPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}

	logrus.WithField("workdir", dir).Debug("Using temporary working directory")

	return dir, nil
}

// runMain runs the updater until ctx is canceled, or once with --run-once.
//
// Returns the process exit code.
func runMain(ctx context.Context, cfg RunConfig) int {
	workdir, err := prepareWorkdir(cfg.Workdir)
	if err != nil {
		logrus.WithError(err).Error("Failed to prepare working copy")

		return 1
	}

	cfg.Workdir = workdir
	registryAuth.UserAgent = meta.UserAgent

	repository := git.New(cfg.Config, gitAuth.NewProvider(cfg.SSHKeyPath))
	registryClient := registry.New(registry.NewHTTPClient(cfg.RegistryRateLimit), cfg.Registry)
	updater := actions.New(repository, resolver.New(registryClient), cfg.Concurrency)

	notifier := notifications.NewNotifier(cfg.Notifications)
	if notifier != nil {
		defer notifier.Close()
	}

	if err := repository.Sync(ctx); err != nil {
		logrus.WithError(err).Error("Initial synchronization of the manifest repository failed")

		return 1
	}

	runUpdate := func(ctx context.Context) (*metrics.Metric, error) {
		result, err := actions.RunUpdatesWithNotifications(ctx, updater, notifier)
		metric := result.Metric(err)
		metrics.Default().RegisterRun(metric)

		return metric, err
	}

	startup := logging.Startup{
		Version:      meta.Version,
		Config:       cfg.RunConfig,
		APIAddr:      api.GetAPIAddr(cfg.APIHost, cfg.APIPort),
		Notifier:     notifier,
		Suppressed:   cfg.NoStartupMessage,
		MetricsPath:  metricsAPI.Path,
		TriggerRoute: api.TriggerPattern(cfg.Prefix),
	}

	if cfg.RunOnce {
		logging.WriteStartupMessage(startup)

		if _, err := runUpdate(ctx); err != nil {
			return 1
		}

		return 0
	}

	// Shared by webhook triggers and scheduled runs.
	updateLock := make(chan bool, 1)
	updateLock <- true

	var scheduler *scheduling.Scheduler

	if cfg.Schedule != "" {
		scheduler, err = scheduling.New(
			cfg.Schedule,
			updateLock,
			func(ctx context.Context) { _, _ = runUpdate(ctx) },
			metrics.Default().RegisterSkipped,
		)
		if err != nil {
			logrus.WithError(err).Error("Failed to schedule updates")

			return 1
		}

		startup.NextRun = scheduler.Next()
	}

	logging.WriteStartupMessage(startup)

	return serve(ctx, cfg, updateLock, runUpdate, scheduler)
}

// serve runs the HTTP API and the scheduler, if any, until ctx is canceled.
func serve(
	ctx context.Context,
	cfg RunConfig,
	updateLock chan bool,
	runUpdate update.Func,
	scheduler *scheduling.Scheduler,
) int {
	group, groupCtx := errgroup.WithContext(ctx)

	if scheduler != nil {
		group.Go(func() error {
			scheduler.Run(groupCtx)

			return nil
		})
	}

	group.Go(func() error {
		return api.SetupAndStartAPI(groupCtx, api.Options{
			Host:          cfg.APIHost,
			Port:          cfg.APIPort,
			Secret:        cfg.Secret,
			Prefix:        cfg.Prefix,
			EnableMetrics: cfg.EnableMetricsAPI,
			Lock:          updateLock,
			RunUpdate:     runUpdate,
			OnSkipped:     metrics.Default().RegisterSkipped,
		}, true)
	})

	if err := group.Wait(); err != nil {
		return 1
	}

	if scheduler == nil {
		scheduling.WaitForRunningUpdate(context.Background(), updateLock)
	}

	logrus.Info("Image updater stopped")

	return 0
}
