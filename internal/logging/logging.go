// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format names accepted by New.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ValidateFormat checks that format is auto, text or json.
func ValidateFormat(format string) error {
	switch format {
	case FormatAuto, FormatText, FormatJSON, "":
		return nil
	default:
		return fmt.Errorf("invalid log format %q (want auto, text or json)", format)
	}
}

// New returns a logger writing to stderr. In auto format it uses text
// when stderr is a terminal and JSON otherwise.
func New(level, format string) (*slog.Logger, error) {
	return NewWithWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level, format)
}

// NewWithWriter is New with an explicit writer and terminal flag.
func NewWithWriter(w io.Writer, isTerminal bool, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	options := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch {
	case format == FormatText, (format == FormatAuto || format == "") && isTerminal:
		handler = slog.NewTextHandler(w, options)
	default:
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler), nil
}
