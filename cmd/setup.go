// Copyright (C) 2025 The University of Chicago
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	slogmulti "github.com/samber/slog-multi"

	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
)

// setupTool prepares the run context for one subcommand: a signal-aware
// context carrying a logger stamped with the tool name. Logs go to stderr so
// command output on stdout stays machine readable; --log-file adds a second
// destination. The returned func releases the signal handler.
func setupTool(toolName string) (context.Context, func(), error) {
	var opts *slog.HandlerOptions
	if os.Getenv("DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	handler := slog.Handler(slog.NewTextHandler(os.Stderr, opts))
	closeFile := func() {}
	if logFile != "" {
		fh, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", logFile, err)
		}
		handler = slogmulti.Fanout(handler, slog.NewTextHandler(fh, opts))
		closeFile = func() { _ = fh.Close() }
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logctx.WithLogger(ctx, slog.New(handler))
	ctx = logctx.With(ctx, slog.String("tool", toolName))
	slog.SetDefault(logctx.FromContext(ctx))
	return ctx, func() {
		cancel()
		closeFile()
	}, nil
}

// writeJSON marshals v to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
