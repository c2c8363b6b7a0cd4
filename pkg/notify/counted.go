package notify

import (
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
)

// Counted forwards to Next and counts every message by level.
type Counted struct {
	Next    Notifier
	Metrics *metrics.Registry
}

func (c Counted) NotifyError(msg string) {
	c.count(LevelError)
	c.Next.NotifyError(msg)
}

func (c Counted) NotifySuccess(msg string) {
	c.count(LevelSuccess)
	c.Next.NotifySuccess(msg)
}

func (c Counted) count(level Level) {
	if c.Metrics != nil {
		c.Metrics.NotificationsTotal.WithLabelValues(string(level)).Inc()
	}
}
