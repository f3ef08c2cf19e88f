// Package logging wraps the standard library logger with leveled
// convenience methods. It follows the plain-text style cmd/api/main.go uses
// directly on log.Logger in the teacher repo, centralized so every package
// logs through one configurable sink instead of the global logger.
package logging

import (
	"io"
	"log"
	"os"
)

// Logger prefixes messages with a level tag; the underlying log.Logger
// handles timestamps.
type Logger struct {
	out *log.Logger
}

// New creates a Logger writing to w (os.Stderr if w is nil).
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: log.New(w, "", log.LstdFlags)}
}

var std = New(os.Stderr)

func Default() *Logger { return std }

func (l *Logger) Infof(format string, args ...interface{})  { l.out.Printf("INFO  "+format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.out.Printf("WARN  "+format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.out.Printf("ERROR "+format, args...) }

func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }
