package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/notifications"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// RunUpdatesWithNotifications executes one run and sends its report to notifier.
//
// Parameters:
//   - ctx: Context bounding registry and git operations.
//   - updater: Updater executing the run.
//   - notifier: Notifier receiving the run report, or nil to disable notifications.
//
// Returns:
//   - *Result: The run result, never nil.
//   - error: The run-level error, if the run aborted.
func RunUpdatesWithNotifications(ctx context.Context, updater *Updater, notifier types.Notifier) (*Result, error) {
	result, err := updater.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Update run failed")
	}

	if notifier != nil {
		notifier.Send(result.Report, err)
	}

	metric := result.Metric(err)
	notifications.LocalLog.WithFields(logrus.Fields{
		"candidates": metric.Candidates,
		"updated":    metric.Updated,
		"fresh":      metric.Fresh,
		"failed":     metric.Failed,
		"pushed":     metric.Pushed,
		"duration":   result.Duration,
	}).Info("Update complete")

	return result, err
}
