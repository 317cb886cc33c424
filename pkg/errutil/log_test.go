// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("CORE_NOT_ACTIVE").
		With("actor_id", "01J").
		Errorf("no active core")

	errutil.LogError(logger, "place failed", err)

	logEntry := decode(t, &buf)
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "place failed", logEntry["msg"])
	assert.Equal(t, "CORE_NOT_ACTIVE", logEntry["code"])
	assert.Equal(t, map[string]any{"actor_id": "01J"}, logEntry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "save failed", errors.New("disk full"))

	logEntry := decode(t, &buf)
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "disk full")
	assert.NotContains(t, logEntry, "code")
}

func TestLogWarnContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogWarnContext(context.Background(), logger, "rejected", oops.Code("ON_COOLDOWN").Errorf("wait"))

	logEntry := decode(t, &buf)
	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "ON_COOLDOWN", logEntry["code"])
}

func TestAttrs_UncodedOops(t *testing.T) {
	attrs := errutil.Attrs(oops.Errorf("plain"))
	assert.Equal(t, []any{"error", "plain"}, attrs)
}
