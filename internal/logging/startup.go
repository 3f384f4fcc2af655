// Package logging writes the startup summary of the image updater.
// It reports the version, the configured notification services, the schedule and the HTTP API address.
package logging

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/notifications"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Startup describes what the updater is about to do.
type Startup struct {
	Version      string
	Config       types.RunConfig
	APIAddr      string    // Listen address of the HTTP API.
	NextRun      time.Time // First scheduled run, zero without a schedule.
	Notifier     types.Notifier
	Suppressed   bool // Only log at debug level, as with --no-startup-message.
	MetricsPath  string
	TriggerRoute string
}

// WriteStartupMessage logs the startup summary.
func WriteStartupMessage(startup Startup) {
	log := SetupStartupLogger(startup.Suppressed)

	log.WithField("repository", startup.Config.RepositoryURL).
		Info("Image updater " + startup.Version + " tracking branch " + startup.Config.Branch)

	var notifierNames []string
	if startup.Notifier != nil {
		notifierNames = startup.Notifier.GetNames()
	}

	LogNotifierInfo(log, notifierNames)
	LogScheduleInfo(log, startup.Config.RunOnce, startup.NextRun)

	if !startup.Config.RunOnce {
		log.Info(fmt.Sprintf("The HTTP API is enabled at %s, triggering updates on %s.", startup.APIAddr, startup.TriggerRoute))

		if startup.Config.EnableMetricsAPI && startup.MetricsPath != "" {
			log.Info("Metrics are exposed on " + startup.MetricsPath)
		}
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// SetupStartupLogger returns the entry startup messages are written to.
//
// Suppressed startup messages only go to the local log, which is never forwarded to notifications.
func SetupStartupLogger(suppressed bool) *logrus.Entry {
	if suppressed {
		return notifications.LocalLog
	}

	return logrus.NewEntry(logrus.StandardLogger())
}

// LogNotifierInfo logs the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs when updates will run.
func LogScheduleInfo(log *logrus.Entry, runOnce bool, next time.Time) {
	switch {
	case runOnce:
		log.Info("Running a one time update.")
	case !next.IsZero():
		log.Info("Scheduling next run: " + next.Format("2006-01-02 15:04:05 -0700 MST"))
		log.Info("Note that the next update will be performed in " + FormatDuration(time.Until(next)))
	default:
		log.Info("Updates run only when triggered through the HTTP API.")
	}
}

// FormatDuration renders d as "1 hour, 2 minutes, 3 seconds", omitting zero units.
func FormatDuration(d time.Duration) string {
	units := []struct {
		value            int64
		singular, plural string
	}{
		{int64(d.Hours()), "hour", "hours"},
		{int64(math.Mod(d.Minutes(), 60)), "minute", "minutes"},
		{int64(math.Mod(d.Seconds(), 60)), "second", "seconds"},
	}

	parts := make([]string, 0, len(units))

	for _, unit := range units {
		switch {
		case unit.value == 1:
			parts = append(parts, "1 "+unit.singular)
		case unit.value > 1:
			parts = append(parts, fmt.Sprintf("%d %s", unit.value, unit.plural))
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}

	return strings.Join(parts, ", ")
}
