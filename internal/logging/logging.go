// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Supported formatter names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Configure sets the level, formatter and output of the standard logger.
// An empty level means info and an empty format means text.
func Configure(level, format string, out io.Writer) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	var formatter log.Formatter
	switch strings.ToLower(format) {
	case "", FormatText:
		formatter = &log.TextFormatter{FullTimestamp: true}
	case FormatJSON:
		formatter = &log.JSONFormatter{}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
