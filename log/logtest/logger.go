/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-rpcinvoker/log"
)

type entryWriter struct {
	sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

//nolint:gocritic
func (ew *entryWriter) WriteEntry(e logf.Entry) {
	ew.Lock()
	defer ew.Unlock()

	var buf logf.Buffer
	if err := ew.encoder.Encode(&buf, e); err != nil {
		_, _ = fmt.Fprint(ew.output, err)
		return
	}
	_, _ = ew.output.Write(buf.Data)
}

// tbWriter forwards every encoded entry to the test log.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// NewLogger returns a logger that writes JSON-encoded entries to the test log, so they are shown
// only for failed tests or with -v. It must not be used after the test completes.
func NewLogger(tb testing.TB) log.FieldLogger {
	return NewLoggerWithOpts(LoggerOpts{Output: tbWriter{tb}})
}

// LoggerOpts allows to set custom options for the test logger.
type LoggerOpts struct {
	// Output is the messages output target. Default is os.Stderr.
	Output io.Writer
	// Level is the minimal level of logged messages. Default is log.LevelDebug.
	Level log.Level
}

// NewLoggerWithOpts returns logger instance configured according to options provided.
func NewLoggerWithOpts(opts LoggerOpts) log.FieldLogger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	ew := &entryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			FieldKeyTime: "time",
		}),
		output: output,
	}
	logger := &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, ew)}
	if opts.Level != "" {
		return logger.WithLevel(opts.Level)
	}
	return logger
}
