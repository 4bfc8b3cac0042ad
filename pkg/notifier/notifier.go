// Package notifier provides task outcome notifications
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/exustash/batect/pkg/logger"
)

// TaskNotifier sends desktop notifications when a run finishes.
type TaskNotifier struct {
	enabled bool
	logger  logger.Logger
}

// New creates a new task notifier
func New(enabled bool, log logger.Logger) *TaskNotifier {
	return &TaskNotifier{
		enabled: enabled,
		logger:  log,
	}
}

// NotifySuccess notifies that the requested task succeeded
func (n *TaskNotifier) NotifySuccess(task string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Task Succeeded"
	message := fmt.Sprintf("%s finished in %s", task, formatDuration(duration))

	n.send(title, message)
}

// NotifyFailure notifies that the requested task failed
func (n *TaskNotifier) NotifyFailure(task string, err error) {
	if !n.enabled {
		return
	}

	title := "❌ Task Failed"
	message := fmt.Sprintf("%s: %v", task, err)

	n.send(title, message)
}

func (n *TaskNotifier) send(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
