package notifications

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Config configures run notifications.
type Config struct {
	URLs     []string // Shoutrrr service URLs.
	Template string   // Template text or common template name; empty uses the default.
	Hostname string   // Host shown in the title; empty uses the system hostname.
	TitleTag string   // Optional tag prefixed to the title.
	Stdout   bool     // Send Shoutrrr's own logs to stdout.
}

// NewNotifier creates a notifier for cfg.
//
// Returns nil if no URLs are configured or the Shoutrrr sender could not be created; the latter is
// logged as an error.
func NewNotifier(cfg Config) types.Notifier {
	if len(cfg.URLs) == 0 {
		return nil
	}

	data := GetTemplateData(cfg.Hostname, cfg.TitleTag)

	notifier, err := createNotifier(cfg.URLs, cfg.Template, data, cfg.Stdout)
	if err != nil {
		logrus.WithError(err).Error("Notifications disabled")

		return nil
	}

	logrus.WithFields(logrus.Fields{
		"services": notifier.GetNames(),
		"title":    data.Title,
	}).Debug("Created notifier")

	return notifier
}

// GetTitle formats the title based on the passed hostname and tag.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("Image updates")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data, defaulting to the system hostname.
func GetTemplateData(hostname, tag string) StaticData {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	return StaticData{
		Host:  hostname,
		Title: GetTitle(hostname, tag),
	}
}
