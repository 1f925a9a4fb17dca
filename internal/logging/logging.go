package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Options controls logger construction.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Writer io.Writer
}

// New builds a leveled logger. Text format writes through a console writer,
// json format writes one JSON object per line.
func New(opts Options) *log.Logger {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		level = log.ParseLevel(strings.ToLower(opts.Level))
	}

	var w log.Writer
	switch strings.ToLower(opts.Format) {
	case "json":
		w = &log.IOWriter{Writer: out}
	default:
		w = &log.ConsoleWriter{Writer: out, EndWithMessage: true}
	}

	return &log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
		Writer:     w,
	}
}

// Discard returns a logger that drops everything. Used by tests and library
// callers that do not care about progress output.
func Discard() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}
