package types

// CommitAuthor is the identity used for commits created by the updater.
type CommitAuthor struct {
	Name  string
	Email string
}

// Config is the configuration consumed by the update pipeline.
//
// It is constructed once at startup and passed explicitly; nothing below cmd reads the environment.
type Config struct {
	// RepositoryURL is the manifest repository remote, e.g. git@github.com:org/deploy.git.
	RepositoryURL string
	// Branch is the tracked branch used for both fetch and push.
	Branch string
	// SSHKeyPath points at the private key used for git authentication.
	SSHKeyPath string
	// Workdir is the local working copy location.
	Workdir string
	// Registry holds the credentials used for every registry query.
	Registry RegistryCredentials
	// Concurrency bounds the number of candidates resolved in parallel.
	Concurrency int
	// RegistryRateLimit bounds registry requests per second per host; zero disables limiting.
	RegistryRateLimit float64
	// CommitAuthor is the author and committer of update commits.
	CommitAuthor CommitAuthor
	// CommitMessage is the message of update commits.
	CommitMessage string
}

// RunConfig extends Config with the process-level settings handled by cmd.
type RunConfig struct {
	Config

	// Secret is the shared secret expected in the X-Secret header of trigger requests.
	Secret string
	// Prefix is the HTTP path the trigger is mounted on.
	Prefix string
	// APIHost is the host to bind the HTTP API to (empty binds all interfaces).
	APIHost string
	// APIPort is the port for the HTTP API server.
	APIPort string
	// EnableMetricsAPI exposes Prometheus metrics on /v1/metrics.
	EnableMetricsAPI bool
	// Schedule is an optional cron specification for periodic runs.
	Schedule string
	// RunOnce performs a single run and exits.
	RunOnce bool
	// NotificationURLs are shoutrrr service URLs receiving run reports.
	NotificationURLs []string
}
