// Package log is the package-level zerolog logger shared by the engines and
// the command line tool. It is silent until SetStd or Init is called.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	pkgLogger              = zerolog.Nop()
	mu                     sync.RWMutex // protects pkgLogger, dbWriterInstance and dbHandle
	zerologTimeFieldFormat = time.RFC3339Nano
)

func logger() *zerolog.Logger {
	mu.RLock()
	l := pkgLogger
	mu.RUnlock()
	return &l
}

func setLogger(l zerolog.Logger) {
	mu.Lock()
	pkgLogger = l
	mu.Unlock()
}

// SetStd writes human readable logs to stderr. Stdout is left to command
// output.
func SetStd() {
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// SetOutput writes JSON logs to w.
func SetOutput(w io.Writer) {
	setLogger(zerolog.New(w).With().Timestamp().Logger())
}

// SetLevel sets the global minimum level from its name ("debug", "info",
// "warn", "error", "disabled").
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func Debug() *zerolog.Event { return logger().Debug() }
func Info() *zerolog.Event  { return logger().Info() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Error() *zerolog.Event { return logger().Error() }
func Fatal() *zerolog.Event { return logger().Fatal() }

// Printf sends an info event with no extra field. Arguments are handled in
// the manner of fmt.Printf.
func Printf(format string, v ...any) {
	logger().Info().CallerSkipFrame(1).Msgf(format, v...)
}

func Fatalf(format string, v ...any) {
	logger().Fatal().Msgf(format, v...)
}
