package types

// Notifier defines the common interface for notification services.
type Notifier interface {
	Send(report Report, err error) // Send a run report and the run-level error, if any.
	GetNames() []string            // Service names.
	GetURLs() []string             // Service URLs.
	Close()                        // Stop and flush notifications.
}
