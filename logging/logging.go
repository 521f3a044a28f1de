// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

const timeFormat = "2006-01-02 15:04:05.000Z07:00"

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w. Text output is colorized with tint
// unless noColor is set; error attributes are highlighted.
func New(w io.Writer, level slog.Level, format string, noColor bool) (*slog.Logger, error) {
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case FormatText, "":
		handler := tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: timeFormat,
			NoColor:    noColor,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
		return slog.New(handler), nil
	}
	return nil, fmt.Errorf("unsupported log format %q", format)
}

// Level returns debug when verbose is set and base otherwise.
func Level(base slog.Level, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return base
}
