// Package observability builds the process logger and the Prometheus
// metrics recorder.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level    string    // debug|info|warn|error, default info
	GELFAddr string    // optional host:port of a GELF UDP input
	Service  string    // reported as _service in GELF messages
	Output   io.Writer // default os.Stderr
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// NewLogger returns a JSON slog logger. When GELFAddr is set every record is
// also shipped over UDP; the returned closer releases that socket.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if cfg.GELFAddr != "" {
		gw, err := NewGELFWriter(cfg.GELFAddr, cfg.Service)
		if err != nil {
			return nil, nil, fmt.Errorf("gelf writer: %w", err)
		}
		out = io.MultiWriter(out, gw)
		closer = gw
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
