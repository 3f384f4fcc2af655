package notifications

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/notifications/templates"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// LocalLog is a logger tagged so that its entries are never mistaken for run output.
var LocalLog = logrus.WithField("notify", "no")

// messageQueueSize bounds the number of run summaries waiting to be delivered.
const messageQueueSize = 4

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// shoutrrrTypeNotifier implements types.Notifier on top of a Shoutrrr router.
type shoutrrrTypeNotifier struct {
	Urls     []string
	Router   router
	template *template.Template
	messages chan string
	done     chan bool
	params   *shoutrrrTypes.Params
	data     StaticData
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// GetNames returns the notification service names derived from URLs.
func (n *shoutrrrTypeNotifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// GetURLs returns the configured service URLs.
func (n *shoutrrrTypeNotifier) GetURLs() []string {
	return n.Urls
}

// createNotifier builds a notifier delivering through a Shoutrrr sender for urls.
//
// An invalid template falls back to the default one. Shoutrrr's own logs go to stdout when stdout
// is set, otherwise to logrus at trace level.
func createNotifier(urls []string, tplString string, data StaticData, stdout bool) (*shoutrrrTypeNotifier, error) {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		logrus.WithError(err).Error("Could not use configured notification template, using default template")

		tpl, _ = getShoutrrrTemplate("")
	}

	var logger shoutrrrTypes.StdLogger
	if stdout {
		logger = log.New(os.Stdout, ``, 0)
	} else {
		logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
	}

	router, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Shoutrrr notifications: %w", err)
	}

	return newShoutrrrNotifier(urls, router, tpl, data), nil
}

func newShoutrrrNotifier(urls []string, router router, tpl *template.Template, data StaticData) *shoutrrrTypeNotifier {
	params := &shoutrrrTypes.Params{}
	if data.Title != "" {
		params.SetTitle(data.Title)
	}

	notifier := &shoutrrrTypeNotifier{
		Urls:     urls,
		Router:   router,
		template: tpl,
		messages: make(chan string, messageQueueSize),
		done:     make(chan bool),
		params:   params,
		data:     data,
	}

	go sendNotifications(notifier)

	return notifier
}

// sendNotifications delivers queued messages until the queue is closed.
func sendNotifications(notifier *shoutrrrTypeNotifier) {
	for msg := range notifier.messages {
		errs := notifier.Router.Send(msg, notifier.params)

		for i, err := range errs {
			if err != nil {
				LocalLog.WithFields(logrus.Fields{
					"service": GetScheme(notifier.Urls[i]),
					"index":   i,
				}).WithError(err).Error("Failed to send shoutrrr notification")
			}
		}
	}

	notifier.done <- true
}

// ShouldNotify reports whether a run deserves a notification: it updated something, a candidate
// failed or the run aborted.
func ShouldNotify(report types.Report, err error) bool {
	if err != nil {
		return true
	}

	if report == nil {
		return false
	}

	return len(report.Updated()) > 0 || len(report.Failed()) > 0
}

// buildMessage renders the run summary with the configured template.
func (n *shoutrrrTypeNotifier) buildMessage(data Data) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}

// Send queues a summary of one run. Quiet runs and empty messages are skipped.
func (n *shoutrrrTypeNotifier) Send(report types.Report, err error) {
	if !ShouldNotify(report, err) {
		LocalLog.Debug("Nothing to report, skipping notification")

		return
	}

	data := Data{StaticData: n.data, Report: report}
	if err != nil {
		data.Error = err.Error()
	}

	msg, buildErr := n.buildMessage(data)
	if buildErr != nil {
		LocalLog.WithError(buildErr).Error("Notification template error")

		return
	}

	if strings.TrimSpace(msg) == "" {
		LocalLog.Info("Skipping notification due to empty message")

		return
	}

	n.messages <- msg
}

// Close stops accepting messages and waits until queued messages are sent.
func (n *shoutrrrTypeNotifier) Close() {
	close(n.messages)

	LocalLog.Info("Waiting for the notification goroutine to finish")

	<-n.done
}

// getShoutrrrTemplate parses tplString, or a common template of that name, or the default template
// when tplString is empty.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField(`template`, tplString).Debug(`Using common template`)
		tplString = builtin
	}

	if tplString == "" {
		return template.Must(tplBase.Parse(commonTemplates[`default`])), nil
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template string: %w", err)
	}

	return tpl, nil
}
