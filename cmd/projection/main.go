// Package main provides the projection CLI.
// projection runs species population predictions and trends from the command
// line against the same data files and model as the service.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
