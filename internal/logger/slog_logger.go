package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// NewSlogLogger returns a standalone text Logger writing to w. It bypasses the
// CentralLogger and is meant for tests and tools that do not load configuration.
// A nil writer means stdout.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = os.Stdout
	}
	if tz == nil {
		tz = time.Local
	}
	l := parseLogLevel(string(level))
	cl := &CentralLogger{
		config: &LoggingConfig{
			DefaultLevel: string(level),
			Console:      &ConsoleOutput{Enabled: true, Level: string(level)},
			FileOutput:   &FileOutput{},
		},
		timezone: tz,
		console:  w,
	}
	return &moduleLogger{
		logger:   slog.New(cl.newHandler(l, false)),
		level:    l,
		timezone: tz,
	}
}
