// Package ldlog provides the leveled logging facade used throughout the
// SDK. Every background goroutine logs through this facade instead of the
// standard log package so host applications can redirect or silence SDK
// output.
package ldlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Loggers is the logging surface handed to every SDK component.
type Loggers interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type zerologLoggers struct {
	log zerolog.Logger
}

// NewDefault returns a zerolog-backed logger writing to stderr, matching
// the level goflagship's services use for request/lifecycle logging.
func NewDefault() Loggers {
	return New(os.Stderr, zerolog.InfoLevel)
}

// New returns a zerolog-backed logger at the given level.
func New(w io.Writer, level zerolog.Level) Loggers {
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologLoggers{log: logger}
}

func (l *zerologLoggers) Debug(msg string, kv ...any) { l.log.Debug().Fields(kvToMap(kv)).Msg(msg) }
func (l *zerologLoggers) Info(msg string, kv ...any)  { l.log.Info().Fields(kvToMap(kv)).Msg(msg) }
func (l *zerologLoggers) Warn(msg string, kv ...any)  { l.log.Warn().Fields(kvToMap(kv)).Msg(msg) }
func (l *zerologLoggers) Error(msg string, kv ...any) { l.log.Error().Fields(kvToMap(kv)).Msg(msg) }

func kvToMap(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}

// NoOp discards all log output. Used by tests and by hosts that don't want
// SDK-internal logging.
func NoOp() Loggers { return noopLoggers{} }

type noopLoggers struct{}

func (noopLoggers) Debug(string, ...any) {}
func (noopLoggers) Info(string, ...any)  {}
func (noopLoggers) Warn(string, ...any)  {}
func (noopLoggers) Error(string, ...any) {}
