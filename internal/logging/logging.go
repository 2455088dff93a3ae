// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Configure sets the standard logger's level and formatter. format is "json" or "text".
// Unknown levels fall back to info. Output always goes to stderr so stdio transports stay clean.
func Configure(level, format string) {
	ConfigureLogger(logrus.StandardLogger(), level, format, os.Stderr)
}

// ConfigureLogger applies the same settings to an arbitrary logger.
func ConfigureLogger(logger *logrus.Logger, level, format string, out io.Writer) {
	logger.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}
