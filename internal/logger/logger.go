package logger

import (
	"github.com/sirupsen/logrus"
)

// L is the process-wide logger instance.
var L = logrus.New()

// Init configures the logger for the given environment.
func Init(env string) {
	if env == "production" {
		L.SetFormatter(&logrus.JSONFormatter{})
		L.SetLevel(logrus.InfoLevel)
		return
	}
	L.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	L.SetLevel(logrus.DebugLevel)
}
