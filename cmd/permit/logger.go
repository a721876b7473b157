// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"

	"github.com/bureau-foundation/permit/lib/config"
)

// newLogger builds the CLI's logger on w from the log section of the
// config. debug forces debug level regardless of the configured one.
func newLogger(settings config.LogConfig, w io.Writer, debug bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(settings.Level)); err != nil {
		level = slog.LevelWarn
	}
	if debug {
		level = slog.LevelDebug
	}

	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if settings.Format == "json" {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	return slog.New(handler)
}
