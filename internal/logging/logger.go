package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// NewContextWithLogger installs a console logger writing to stderr into ctx.
// The returned func flushes and closes the non-blocking writer.
func NewContextWithLogger(ctx context.Context, debug bool) (context.Context, func()) {
	return NewContextWithWriter(ctx, os.Stderr, debug)
}

// NewContextWithWriter is NewContextWithLogger with a caller-supplied
// destination.
func NewContextWithWriter(ctx context.Context, w io.Writer, debug bool) (context.Context, func()) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	// Use a diode (ring buffer) for non-blocking logging
	wr := diode.NewWriter(w, 1000, 5*time.Millisecond, dropReporter(w))

	output := zerolog.ConsoleWriter{
		Out:        wr,
		NoColor:    true,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return logger.WithContext(ctx), func() {
		_ = wr.Close()
	}
}

// dropReporter reports diode overflow on the logger's own destination. The
// diode calls it from the goroutine that writes to w.
func dropReporter(w io.Writer) func(int) {
	return func(missed int) {
		fmt.Fprintf(w, "Logger Dropped %d messages\n", missed)
	}
}

// FromCtx returns the logger stored in ctx, or a disabled logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}
