package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// configureLogging installs a console logger on w as the global and context default.
func configureLogging(level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(parseLevel(level))
	out := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.NoColor = true
		cw.TimeFormat = "15:04:05.999 |"
	})
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}
