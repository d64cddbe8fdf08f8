// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger.
// level: "debug", "info", "warn", "error" (default "info"); format: "json" (default) or "text".
func Setup(level, format, service string) {
	setup(log.StandardLogger(), os.Stdout, level, format)
	if service != "" {
		log.AddHook(serviceHook(service))
	}
}

func setup(l *log.Logger, out io.Writer, level, format string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "text" {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: log.FieldMap{
				log.FieldKeyTime:  "timestamp",
				log.FieldKeyLevel: "level",
				log.FieldKeyMsg:   "message",
			},
		})
	}
	l.SetOutput(out)
}

type serviceHook string

func (h serviceHook) Levels() []log.Level { return log.AllLevels }

func (h serviceHook) Fire(e *log.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = string(h)
	}
	return nil
}

// Compliance logs a NOM-004 relevant event: denied edits, admin bypasses, expiring notes.
func Compliance(event, userID string, fields log.Fields) {
	entry := log.WithFields(log.Fields{
		"compliance": true,
		"event":      event,
		"user_id":    userID,
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("Compliance event")
}
