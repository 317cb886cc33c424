// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/holomush/coresystem/internal/command"
)

// logOutputError logs a failed write to the executor's output. The command
// itself still counts as successful.
func logOutputError(ctx context.Context, cmd string, exec *command.CommandExecution, n int, err error) {
	slog.WarnContext(ctx, "failed to write command output",
		"command", cmd,
		"actor_id", exec.ActorID.String(),
		"bytes_written", n,
		"error", err,
	)
	command.RecordOutputFailure(cmd)
}

func writeOutput(ctx context.Context, exec *command.CommandExecution, cmd, msg string) {
	if exec.Output == nil {
		return
	}
	if n, err := fmt.Fprintln(exec.Output, msg); err != nil {
		logOutputError(ctx, cmd, exec, n, err)
	}
}

func writeOutputf(ctx context.Context, exec *command.CommandExecution, cmd, format string, args ...any) {
	writeOutput(ctx, exec, cmd, fmt.Sprintf(format, args...))
}

// num formats a stat to one decimal without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
