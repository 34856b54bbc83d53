package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is re-exported so callers don't import logrus just for log fields.
type Fields = logrus.Fields

// NewLogger returns a JSON logger at the level named by LOG_LEVEL.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// NewLoggerWithService returns a logger that tags every entry with the
// service name.
func NewLoggerWithService(service string) *logrus.Logger {
	logger := NewLogger()
	logger.AddHook(serviceHook{service})
	return logger
}

type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = h.service
	return nil
}
