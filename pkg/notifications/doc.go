// Package notifications sends update run summaries through Shoutrrr.
//
// Key components:
//   - Notifier Creation: Configures the notifier from service URLs (notifier.go).
//   - Shoutrrr Integration: Templates and delivers run reports (shoutrrr.go).
//   - JSON Marshaling: Formats notification data for the json.v1 template (json.go).
//
// Usage example:
//
//	notifier := notifications.NewNotifier(notifications.Config{URLs: urls})
//	notifier.Send(report, err)
//	notifier.Close()
//
// Only runs that updated an override, failed a candidate or aborted produce a message.
package notifications
