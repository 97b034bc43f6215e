// Package logging builds the slog loggers of the flatjson and unbundler
// commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log level flag shared by all commands.
const (
	Flag          = "log-level"
	FlagShorthand = "l"
	FlagUsage     = "log level: debug, info, warn, error, an offset like info+2, or a number"
)

// The worker reports progress at info. One-shot commands stay at warn so
// their output is only the table.
const (
	DefaultLevel    = "info"
	DefaultCLILevel = "warn"
)

// Format is a record encoding.
type Format int

const (
	JSONFormat Format = iota
	TextFormat
)

// Options selects where and how a logger writes.
type Options struct {
	Level  string
	Format Format
	// Out receives every record. Nil means os.Stderr.
	Out io.Writer
	// File, when set, receives a copy of every record. It is rotated at
	// 100 MB and two backups are kept for 14 days.
	File string
}

// New returns a logger for opts. An unrecognized level means info.
func New(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 2,
			MaxAge:     14,
		})
	}
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level, slog.LevelInfo)}
	if opts.Format == TextFormat {
		return slog.New(slog.NewTextHandler(out, ho))
	}
	return slog.New(slog.NewJSONHandler(out, ho))
}

// ParseLevel reads a level name as accepted by [slog.Level.UnmarshalText],
// "warning", or a plain number. Empty means info; anything else unreadable
// returns fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch {
	case s == "":
		return slog.LevelInfo
	case strings.EqualFold(s, "warning"):
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err == nil {
		return l
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n)
	}
	return fallback
}
