package modbus

import (
	"fmt"
	"log"
	"os"
)

// LeveledLogger is the logging interface used throughout the package.
// Sessions always use the *log.Logger-backed implementation below;
// WithMasterLogger and WithSlaveLogger only choose the *log.Logger it writes to.
type LeveledLogger interface {
	Info(msg string)
	Infof(format string, args ...interface{})
	Warning(msg string)
	Warningf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
}

var _ LeveledLogger = (*logger)(nil)

// logger adapts a standard *log.Logger (defaulting to one writing to
// os.Stderr) into a LeveledLogger.
type logger struct {
	prefix string
	sink   *log.Logger
}

func newLogger(prefix string, customLogger *log.Logger) *logger {
	l := &logger{prefix: prefix, sink: customLogger}
	if l.sink == nil {
		l.sink = log.New(os.Stderr, "", log.LstdFlags)
	}
	return l
}

func (l *logger) Info(msg string) {
	l.sink.Printf("%s [info]: %s", l.prefix, msg)
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.sink.Printf("%s [info]: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *logger) Warning(msg string) {
	l.sink.Printf("%s [warn]: %s", l.prefix, msg)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	l.sink.Printf("%s [warn]: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *logger) Error(msg string) {
	l.sink.Printf("%s [error]: %s", l.prefix, msg)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.sink.Printf("%s [error]: %s", l.prefix, fmt.Sprintf(format, args...))
}
