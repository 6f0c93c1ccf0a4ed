// Package rlog is riftload's leveled logger: a thin wrapper over the
// standard library log package selecting verbosity from the config's
// log_level field. Kept deliberately dependency-free, matching the
// rest of this codebase's CLI surface, which prints straight to the
// terminal rather than through a logging framework.
package rlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level orders verbosity from quietest to loudest, matching spec.md
// §6's log_level enumeration exactly.
type Level int32

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

// ParseLevel maps a config string onto a Level; unknown strings fall
// back to Info rather than failing, since a log-level typo shouldn't
// be a fatal configuration error on its own.
func ParseLevel(s string) Level {
	switch s {
	case "Off", "off":
		return Off
	case "Error", "error":
		return Error
	case "Warn", "warn":
		return Warn
	case "Info", "info":
		return Info
	case "Debug", "debug":
		return Debug
	case "Trace", "trace":
		return Trace
	default:
		return Info
	}
}

var current atomic.Int32

func init() {
	current.Store(int32(Info))
}

// SetLevel sets the process-wide minimum level that will be printed.
func SetLevel(l Level) { current.Store(int32(l)) }

var std = log.New(os.Stderr, "", log.LstdFlags)

func enabled(l Level) bool { return l <= Level(current.Load()) && l != Off }

func printf(l Level, prefix, format string, args ...any) {
	if !enabled(l) {
		return
	}
	std.Printf("[%s] %s", prefix, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) { printf(Error, "ERROR", format, args...) }
func Warnf(format string, args ...any)  { printf(Warn, "WARN", format, args...) }
func Infof(format string, args ...any)  { printf(Info, "INFO", format, args...) }
func Debugf(format string, args ...any) { printf(Debug, "DEBUG", format, args...) }
func Tracef(format string, args ...any) { printf(Trace, "TRACE", format, args...) }
