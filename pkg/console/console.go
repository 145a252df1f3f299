// Package console prints the human-readable progress lines an operator
// watches in the terminal. They mirror what is sent to the log chat and are
// not meant to be parsed.
package console

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Console writes operator-facing lines through logrus.
type Console struct {
	log *logrus.Logger
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05",
		DisableLevelTruncation: true,
		PadLevelText:           true,
		DisableQuote:           true,
	})
	return &Console{log: log}
}

// Success prints a line prefixed with a check mark.
func (c *Console) Success(format string, args ...any) {
	c.log.Info("✓ " + plain(format, args...))
}

// Failure prints a line prefixed with a cross.
func (c *Console) Failure(format string, args ...any) {
	c.log.Error("✗ " + plain(format, args...))
}

// Warn prints a warning line.
func (c *Console) Warn(format string, args ...any) {
	c.log.Warn("⚠️  " + plain(format, args...))
}

// Info prints a line as is.
func (c *Console) Info(format string, args ...any) {
	c.log.Info(plain(format, args...))
}

func plain(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
