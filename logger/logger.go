// file: logger/logger.go

package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init is called, but
// Init should run once at startup to apply the configured format and level.
var Log = logrus.New()

// Init configures the global logger with a JSON formatter at info level.
func Init() {
	InitWithLevel("info")
}

// InitWithLevel configures the global logger and sets its level. An unknown
// level falls back to info.
func InitWithLevel(level string) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		Log.WithField("level", level).Warn("Unknown log level, falling back to info")
	}
	Log.SetLevel(lvl)
}
