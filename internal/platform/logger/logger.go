package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log shippers never
// have to parse free text.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
