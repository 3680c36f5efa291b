// pkg/logging/logging.go
package logging

import (
	"fmt"
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/sslprint/pkg/config"
)

// stdlogLayout is the prefix the standard logger writes with LstdFlags.
const stdlogLayout = "2006/01/02 15:04:05"

var logWriter io.Writer

// init keeps library logging quiet until the CLI configures it.
func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// Configure points the global logger at cfg.File (stderr when empty) in the
// requested format and level. The returned function closes the log file.
func Configure(cfg config.LogConfig) (func() error, error) {
	out, closeFn, err := openOutput(cfg.File)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		SetLogWriter(out)
	case "", "text":
		SetLogWriter(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.File != "",
		})
	default:
		_ = closeFn()
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	ConfigureGlobal(parseLogLevel(cfg.Level))
	return closeFn, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f.Close, nil
}

// ConfigureGlobal rebuilds log.Logger on the current writer. Debug and
// trace add caller information. Standard library log output is routed
// through it at debug level.
func ConfigureGlobal(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(logWriter).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(stdLog.LstdFlags)
	stdLog.SetOutput(stdlogBridge{logger: Component("stdlog")})
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// SetLogWriter replaces the destination used by the next ConfigureGlobal.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// parseLogLevel falls back to error for empty or unknown names.
func parseLogLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.ErrorLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		log.Error().Err(err).Str("level", name).Msg("invalid log level, using error")
		return zerolog.ErrorLevel
	}
	return level
}

// stdlogBridge re-emits standard library log lines as debug events, keeping
// the original timestamp when the line has one.
type stdlogBridge struct {
	logger zerolog.Logger
}

func (b stdlogBridge) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\r\n")

	ev := b.logger.Debug()
	if len(line) > len(stdlogLayout) {
		if ts, err := time.ParseInLocation(stdlogLayout, line[:len(stdlogLayout)], time.Local); err == nil {
			ev = ev.Time("logged_at", ts)
			line = strings.TrimLeft(line[len(stdlogLayout):], " ")
		}
	}
	ev.Msg(line)
	return len(p), nil
}
