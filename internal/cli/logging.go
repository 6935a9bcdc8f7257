package cli

import (
	"io"
	"log/slog"
)

// newLogger builds the text logger handed to the dynamics reader and writer.
// Diagnostics go to w (stderr in practice) so JSON output on stdout stays
// parseable. Info and above by default, Debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler)
}
