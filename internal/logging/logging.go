// Package logging builds the zerolog console logger used by the CLI and
// adapts it to bootloader.Logger.
package logging

import (
	"io"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
)

// New returns a console logger at the given level writing to colorable
// stdout. An empty level means info.
func New(level string, noColor bool) (zerolog.Logger, error) {
	return NewWithWriter(colorable.NewColorableStdout(), level, noColor)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(out io.Writer, level string, noColor bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(level); err != nil {
			return zerolog.Nop(), err
		}
	}

	w := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.TimeFormat = time.TimeOnly
		w.NoColor = noColor
	})
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Adapter implements bootloader.Logger on a zerolog.Logger.
type Adapter struct {
	log zerolog.Logger
}

// Adapt wraps log.
func Adapt(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.log.Info().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Warn(msg string, keysAndValues ...interface{}) {
	a.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.log.Error().Fields(keysAndValues).Msg(msg)
}
