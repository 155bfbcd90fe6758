package logging

import (
	"os"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/config"
	log "github.com/sirupsen/logrus"
)

// New builds a logrus logger configured according to the provided logging
// config. The standard logger is configured the same way so packages that
// log through it agree on level and format.
func New(cfg config.LoggingConfig) *log.Logger {
	logger := log.New()
	configure(logger, cfg)
	configure(log.StandardLogger(), cfg)
	return logger
}

func configure(l *log.Logger, cfg config.LoggingConfig) {
	l.SetOutput(os.Stdout)
	l.SetLevel(parseLevel(cfg.Level))
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
