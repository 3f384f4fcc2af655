package flags

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/gitops-image-updater/internal/scheduling"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Defaults.
const (
	DefaultBranch            = "main"
	DefaultPrefix            = "/"
	DefaultAPIPort           = "8080"
	DefaultConcurrency       = 4
	DefaultRegistryRateLimit = 10.0
	DefaultCommitAuthorName  = "Automatic image updater"
	DefaultCommitAuthorEmail = "nobody@bananium.fr"
	DefaultCommitMessage     = "Updated images"
)

// hostnamePattern matches DNS names usable as a bind address.
var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)*$`)

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errCloseFileFailed indicates a failure to close a file after reading secrets.
var errCloseFileFailed = errors.New("failed to close secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a file’s contents.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to set or read a flag’s value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidFlagName indicates an invalid flag name was provided.
var errInvalidFlagName = errors.New("invalid flag name provided")

// errNotSliceValue indicates a flag does not support slice values.
var errNotSliceValue = errors.New("flag does not support slice values")

// errUnknownPorcelain indicates an unsupported porcelain version.
var errUnknownPorcelain = errors.New("unknown porcelain version")

// requiredFlags lists the settings without a usable default, with their environment variables.
var requiredFlags = []struct {
	flag string
	env  string
}{
	{flag: "repository-url", env: "REPOSITORY_URL"},
	{flag: "ssh-key-path", env: "SSH_KEY_PATH"},
	{flag: "registry-username", env: "GITHUB_USERNAME"},
	{flag: "registry-token", env: "GITHUB_KEY"},
	{flag: "secret", env: "SECRET"},
}

// secretFlags are the flags whose values may name a file holding the actual value.
var secretFlags = []string{
	"registry-token",
	"secret",
	"notification-url",
}

// RegisterSystemFlags adds repository, registry, API and operational flags to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.String(
		"repository-url",
		envString("REPOSITORY_URL"),
		"Git URL of the manifest repository")

	flags.String(
		"ssh-key-path",
		envString("SSH_KEY_PATH"),
		"Path of the private key used to authenticate against the manifest repository")

	flags.String(
		"branch",
		envString("BRANCH"),
		"Tracked branch of the manifest repository, used for both fetch and push")

	flags.String(
		"workdir",
		envString("WORKDIR"),
		"Directory of the manifest working copy (defaults to a new temporary directory)")

	flags.String(
		"registry-username",
		envString("GITHUB_USERNAME"),
		"Username used for registry queries")

	flags.String(
		"registry-token",
		envString("GITHUB_KEY"),
		"Token used for registry queries, or a file containing it")

	flags.Float64(
		"registry-rate-limit",
		envFloat("REGISTRY_RATE_LIMIT"),
		"Maximum registry requests per second per host (0 disables the limit)")

	flags.Int(
		"concurrency",
		envInt("CONCURRENCY"),
		"Maximum number of candidates resolved at the same time")

	flags.String(
		"secret",
		envString("SECRET"),
		"Shared secret expected in the X-Secret header of trigger requests, or a file containing it")

	flags.String(
		"prefix",
		envString("PREFIX"),
		"HTTP path the update trigger is mounted on")

	flags.String(
		"http-api-host",
		envString("HTTP_API_HOST"),
		"Host to bind the HTTP API to (empty binds all interfaces)")

	flags.String(
		"http-api-port",
		envString("HTTP_API_PORT"),
		"Port of the HTTP API")

	flags.Bool(
		"http-api-metrics",
		envBool("HTTP_API_METRICS"),
		"Expose Prometheus metrics on /v1/metrics")

	flags.StringP(
		"schedule",
		"s",
		envString("SCHEDULE"),
		"Cron expression (six fields, seconds first) adding periodic updates")

	flags.BoolP(
		"run-once",
		"R",
		envBool("RUN_ONCE"),
		"Run a single update and exit")

	flags.String(
		"commit-author-name",
		envString("COMMIT_AUTHOR_NAME"),
		"Author name of update commits")

	flags.String(
		"commit-author-email",
		envString("COMMIT_AUTHOR_EMAIL"),
		"Author email of update commits")

	flags.String(
		"commit-message",
		envString("COMMIT_MESSAGE"),
		"Message of update commits")

	flags.Bool(
		"no-startup-message",
		envBool("NO_STARTUP_MESSAGE"),
		"Prevents the updater from logging a startup message")

	flags.StringP(
		"log-format",
		"l",
		envString("LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.StringP(
		"log-level",
		"",
		envString("LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.BoolP(
		"debug",
		"d",
		envBool("DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	// https://no-color.org/
	flags.Bool(
		"no-color",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterNotificationFlags adds notification flags to the root command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArray(
		"notification-url",
		envStringSlice("NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to, or a file listing one URL per line")

	flags.String(
		"notification-template",
		envString("NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages, or the name of a built-in template")

	flags.String(
		"notification-title-tag",
		envString("NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")

	flags.String(
		"notifications-hostname",
		envString("NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.Bool(
		"notification-log-stdout",
		envBool("NOTIFICATION_LOG_STDOUT"),
		"Write notification logs to stdout instead of logging (to stderr)")

	flags.StringP(
		"porcelain",
		"P",
		envString("PORCELAIN"),
		`Write session results to stdout using a stable versioned format. Supported values: "v1"`)
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envFloat retrieves a float value from an environment variable via Viper.
func envFloat(key string) float64 {
	viper.MustBindEnv(key)

	return viper.GetFloat64(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// SetDefaults configures default values for environment variables.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("BRANCH", DefaultBranch)
	viper.SetDefault("PREFIX", DefaultPrefix)
	viper.SetDefault("HTTP_API_PORT", DefaultAPIPort)
	viper.SetDefault("CONCURRENCY", DefaultConcurrency)
	viper.SetDefault("REGISTRY_RATE_LIMIT", DefaultRegistryRateLimit)
	viper.SetDefault("COMMIT_AUTHOR_NAME", DefaultCommitAuthorName)
	viper.SetDefault("COMMIT_AUTHOR_EMAIL", DefaultCommitAuthorEmail)
	viper.SetDefault("COMMIT_MESSAGE", DefaultCommitMessage)
	viper.SetDefault("NOTIFICATION_URL", []string{})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "auto")
}

// GetSecretsFromFiles replaces secret flag values with file contents if they reference files.
func GetSecretsFromFiles(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	for _, secret := range secretFlags {
		if err := getSecretFromFile(flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %v: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates a flag’s value with file contents if it references a file.
// Slice flags get one value per non-empty line.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, secret)
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lines = append(lines, line)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", errCloseFileFailed, err)
	}

	return lines, nil
}

// isFilePath determines if a string likely represents an existing file.
// It avoids false positives from URLs or invalid Windows paths.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// If ':' exists but isn’t the second character, it’s likely not a file path (e.g., URLs).
		return false
	}

	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// ProcessFlagAliases synchronizes flag values based on helper flags.
func ProcessFlagAliases(flags *pflag.FlagSet) error {
	porcelain, err := flags.GetString("porcelain")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if porcelain != "" {
		if porcelain != "v1" {
			return fmt.Errorf("%w: %q, supported values: \"v1\"", errUnknownPorcelain, porcelain)
		}

		if err := appendFlagValue(flags, "notification-url", "logger://"); err != nil {
			return err
		}

		setFlagIfDefault(flags, "notification-log-stdout", "true")
		setFlagIfDefault(flags, "notification-template", "porcelain."+porcelain+".summary")
	}

	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// SetupLogging configures the global logger based on log-related flags.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// BuildConfig reads the run configuration from flags.
//
// Every missing required setting is named in a single error wrapping types.ErrConfig, as are an
// invalid schedule, a negative concurrency or registry rate limit and a malformed API host.
func BuildConfig(flags *pflag.FlagSet) (types.RunConfig, error) {
	reader := flagReader{flags: flags}

	cfg := types.RunConfig{
		Config: types.Config{
			RepositoryURL: reader.String("repository-url"),
			Branch:        reader.String("branch"),
			SSHKeyPath:    reader.String("ssh-key-path"),
			Workdir:       reader.String("workdir"),
			Registry: types.RegistryCredentials{
				Username: reader.String("registry-username"),
				Password: reader.String("registry-token"),
			},
			Concurrency:       reader.Int("concurrency"),
			RegistryRateLimit: reader.Float64("registry-rate-limit"),
			CommitAuthor: types.CommitAuthor{
				Name:  reader.String("commit-author-name"),
				Email: reader.String("commit-author-email"),
			},
			CommitMessage: reader.String("commit-message"),
		},
		Secret:           reader.String("secret"),
		Prefix:           reader.String("prefix"),
		APIHost:          reader.String("http-api-host"),
		APIPort:          reader.String("http-api-port"),
		EnableMetricsAPI: reader.Bool("http-api-metrics"),
		Schedule:         reader.String("schedule"),
		RunOnce:          reader.Bool("run-once"),
		NotificationURLs: reader.StringArray("notification-url"),
	}

	if reader.err != nil {
		return types.RunConfig{}, fmt.Errorf("%w: %w", types.ErrConfig, reader.err)
	}

	var missing []string

	for _, required := range requiredFlags {
		value, _ := flags.GetString(required.flag)
		if strings.TrimSpace(value) == "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", required.flag, required.env))
		}
	}

	if len(missing) > 0 {
		return types.RunConfig{}, fmt.Errorf("%w: missing required settings: %s", types.ErrConfig, strings.Join(missing, ", "))
	}

	if err := validate(cfg); err != nil {
		return types.RunConfig{}, fmt.Errorf("%w: %w", types.ErrConfig, err)
	}

	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return cfg, nil
}

func validate(cfg types.RunConfig) error {
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}

	if cfg.RegistryRateLimit < 0 {
		return fmt.Errorf("registry rate limit must not be negative, got %v", cfg.RegistryRateLimit)
	}

	if cfg.Schedule != "" {
		if err := scheduling.ValidateSchedule(cfg.Schedule); err != nil {
			return err
		}
	}

	if host := cfg.APIHost; host != "" && net.ParseIP(host) == nil && !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid HTTP API host %q", host)
	}

	return nil
}

// flagReader reads flag values, keeping the first lookup error.
type flagReader struct {
	flags *pflag.FlagSet
	err   error
}

func (r *flagReader) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

func (r *flagReader) String(name string) string {
	value, err := r.flags.GetString(name)
	r.keep(err)

	return value
}

func (r *flagReader) StringArray(name string) []string {
	value, err := r.flags.GetStringArray(name)
	r.keep(err)

	return value
}

func (r *flagReader) Int(name string) int {
	value, err := r.flags.GetInt(name)
	r.keep(err)

	return value
}

func (r *flagReader) Float64(name string) float64 {
	value, err := r.flags.GetFloat64(name)
	r.keep(err)

	return value
}

func (r *flagReader) Bool(name string) bool {
	value, err := r.flags.GetBool(name)
	r.keep(err)

	return value
}

// flagIsEnabled checks if a boolean flag is set to true.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.Fatalf("The flag %q is not defined", name)
	}

	return value
}

// appendFlagValue appends values to a slice-type flag.
func appendFlagValue(flags *pflag.FlagSet, name string, values ...string) error {
	flag := flags.Lookup(name)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, name)
	}

	flagValues, ok := flag.Value.(pflag.SliceValue)
	if !ok {
		return fmt.Errorf("%w: %q", errNotSliceValue, name)
	}

	for _, value := range values {
		if err := flagValues.Append(value); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// setFlagIfDefault sets a flag’s value if it hasn’t been explicitly changed.
func setFlagIfDefault(flags *pflag.FlagSet, name string, value string) {
	if flags.Changed(name) {
		return
	}

	if err := flags.Set(name, value); err != nil {
		logrus.Errorf("Failed to set flag: %v", err)
	}
}
