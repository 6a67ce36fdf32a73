// Package logging builds the zerolog loggers used by the jobpool command.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/jobpool/pkg/common/validation"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Levels accepted by New.
var Levels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// New returns a logger writing to w at the given level. The console format
// is meant for terminals; json is one object per line.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if err := validation.ValidateOneOf("logging", "level", level, Levels...); err != nil {
		return zerolog.Nop(), err
	}
	if err := validation.ValidateOneOf("logging", "format", format, FormatJSON, FormatConsole); err != nil {
		return zerolog.Nop(), err
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), err
	}

	if strings.EqualFold(format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
