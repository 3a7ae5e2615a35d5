// Package logger provides the prefixed, coloured leveled logger every
// component of the application writes through.
package logger

import (
	"errors"
	"io"
	"log"

	"github.com/beka-birhanu/vinom-arena/config"
)

var ErrNilWriter = errors.New("logger needs a writer")

// Logger tags every line with a coloured component prefix and a level.
// It implements game.Logger.
type Logger struct {
	prefix string
	color  string
	out    *log.Logger
}

// New creates a Logger writing to w. The prefix names the component, color is
// one of the config colour constants.
func New(prefix, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	return &Logger{
		prefix: prefix,
		color:  color,
		out:    log.New(w, "", log.LstdFlags),
	}, nil
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.print(config.LogInfoColor, "INFO", msg)
}

// Warning logs a recoverable problem.
func (l *Logger) Warning(msg string) {
	l.print(config.LogWarningColor, "WARNING", msg)
}

// Error logs a failure.
func (l *Logger) Error(msg string) {
	l.print(config.LogErrorColor, "ERROR", msg)
}

func (l *Logger) print(levelColor, level, msg string) {
	l.out.Printf("%s[%s]%s %s[%s]%s %s",
		l.color, l.prefix, config.ColorReset,
		levelColor, level, config.LogColorReset,
		msg)
}
