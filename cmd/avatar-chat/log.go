package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// setupLog sends logs to a file, since the terminal belongs to the TUI.
func setupLog() (func() error, error) {
	path, err := gap.NewScope(gap.User, appName).LogPath(appName + ".log")
	if err != nil {
		return nil, fmt.Errorf("could not find log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	slog.SetDefault(slog.New(log.Default()))

	return f.Close, nil
}
