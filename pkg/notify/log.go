package notify

import (
	"github.com/dd0wney/cluso-modeler/pkg/logging"
)

// LogNotifier writes notifications to a logger. Errors are logged at warn level.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(logging.Component("notify"))}
}

func (l *LogNotifier) NotifyError(msg string) {
	l.logger.Warn(msg, logging.String("level", string(LevelError)))
}

func (l *LogNotifier) NotifySuccess(msg string) {
	l.logger.Info(msg, logging.String("level", string(LevelSuccess)))
}
