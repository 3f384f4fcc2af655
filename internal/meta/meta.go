// Package meta holds build metadata injected at link time.
package meta

var (
	// Version is the released version, set with -ldflags "-X .../internal/meta.Version=v1.2.3".
	Version = "v0.0.0-unknown"

	// UserAgent identifies the updater in registry requests.
	UserAgent string
)

func init() {
	UserAgent = "gitops-image-updater/" + Version
}
