// Package rtlog provides the runtime's logging surface. The corpus this
// module was learned from has no third-party logging dependency anywhere —
// every subsystem that logs uses the standard "log" package directly — so
// this wraps stdlib log behind a small interface instead of reaching for an
// external framework.
package rtlog

import (
	"io"
	"log"
	"os"
)

// Logger is the logging surface handed to the Manager and remote endpoints.
// Shaped after the teacher's ActorLogger interface (Debug/Info/Warn/Error).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StdLogger implements Logger over the standard library *log.Logger.
type StdLogger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// New creates a StdLogger writing to w with the given name prefix.
func New(w io.Writer, name string) *StdLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &StdLogger{
		debug: log.New(w, "["+name+"] DEBUG ", flags),
		info:  log.New(w, "["+name+"] INFO  ", flags),
		warn:  log.New(w, "["+name+"] WARN  ", flags),
		err:   log.New(w, "["+name+"] ERROR ", flags),
	}
}

// Default returns a logger writing to stderr, the teacher's own default
// destination for ad-hoc "log" package usage.
func Default(name string) *StdLogger { return New(os.Stderr, name) }

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.debug.Printf(msg, args...) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.info.Printf(msg, args...) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.warn.Printf(msg, args...) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.err.Printf(msg, args...) }

// Discard is a Logger that drops everything; handy for tests.
type discard struct{}

func (discard) Debug(string, ...interface{}) {}
func (discard) Info(string, ...interface{})  {}
func (discard) Warn(string, ...interface{})  {}
func (discard) Error(string, ...interface{}) {}

// Discard is the zero-overhead logger used where tests don't care about output.
var Discard Logger = discard{}
