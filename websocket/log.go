package websocket

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger suitable for a Config.Logger or
// Hub: JSON to w (stderr when w is nil) at level, or a human-readable
// console writer when pretty is set (for local development/cmd/wtxecho
// use - JSON is what a production deployment should collect).
func NewLogger(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
