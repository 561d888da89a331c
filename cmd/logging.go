package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logTimeFormat = "2006-01-02 15:04:05"

var logFile *os.File

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: logTimeFormat}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// setupLogging sends human-readable lines to stdout and, when path is set,
// appends the same lines (without colors) to path.
func setupLogging(path string, verbose bool) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := consoleWriter(os.Stdout, !stdoutIsTerminal())
	path = strings.TrimSpace(path)
	if path == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create log directory %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open log file %s", path)
	}
	closeLogFile()
	logFile = f

	writer := zerolog.MultiLevelWriter(console, consoleWriter(f, true))
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	log.Debug().Str("log_file", path).Msg("logging to file")
	return nil
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	_ = logFile.Close()
	logFile = nil
}
