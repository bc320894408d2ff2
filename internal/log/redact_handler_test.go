package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// newTestLogger returns a debug-level logger with redaction and the buffer
// it writes to.
func newTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewLogger(&buf, true), &buf
}

// TestRedactHandlerMasksIdentityKeys tests masking by attribute key.
func TestRedactHandlerMasksIdentityKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "contributor uuid", key: "contributor_uuid", value: "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"},
		{name: "email", key: "email", value: "someone@example.com"},
		{name: "password", key: "password", value: "hunter2"},
		{name: "api key", key: "api_key", value: "abc123"},
		{name: "keyword substring", key: "upstream_token", value: "abc123"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := newTestLogger(t)
			logger.Info("test", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("output leaks value %q: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("output does not contain mask: %s", out)
			}
		})
	}
}

// TestRedactHandlerMasksIdentityValues tests masking by value pattern.
func TestRedactHandlerMasksIdentityValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bare uuid value", key: "id", value: "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"},
		{name: "email value", key: "sender", value: "someone@example.com"},
		{name: "bearer token", key: "header", value: "Bearer abc.def.ghi"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := newTestLogger(t)
			logger.Info("test", tt.key, tt.value)

			if out := buf.String(); strings.Contains(out, tt.value) {
				t.Errorf("output leaks value %q: %s", tt.value, out)
			}
		})
	}
}

// TestRedactHandlerKeepsTaskUUIDs verifies that task identifiers stay
// readable: they are the correlation key for run logs and are not PII.
func TestRedactHandlerKeepsTaskUUIDs(t *testing.T) {
	t.Parallel()

	const taskUUID = "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"

	logger, buf := newTestLogger(t)
	logger.Info("processing", "task_uuid", taskUUID)

	if out := buf.String(); !strings.Contains(out, taskUUID) {
		t.Errorf("task uuid was masked: %s", out)
	}
}

// TestRedactHandlerKeepsOrdinaryValues tests that normal attributes pass
// through unchanged.
func TestRedactHandlerKeepsOrdinaryValues(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(t)
	logger.Info("processing", "topic", "T1", "rows", 4)

	out := buf.String()
	if !strings.Contains(out, "topic=T1") {
		t.Errorf("topic attribute missing or altered: %s", out)
	}
	if strings.Contains(out, MaskValue) {
		t.Errorf("ordinary attributes were masked: %s", out)
	}
}

// TestRedactHandlerGroups tests recursion into attribute groups.
func TestRedactHandlerGroups(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(t)
	logger.Info("test", slog.Group("request",
		slog.String("contributor_uuid", "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"),
		slog.String("topic", "T1"),
	))

	out := buf.String()
	if strings.Contains(out, "4fa1c7de") {
		t.Errorf("group attribute leaked: %s", out)
	}
	if !strings.Contains(out, "T1") {
		t.Errorf("harmless group attribute lost: %s", out)
	}
}

// TestRedactHandlerWithAttrs tests masking of pre-bound attributes.
func TestRedactHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true).With("contributor_uuid", "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23")
	logger.Info("test")

	out := buf.String()
	if strings.Contains(out, "4fa1c7de") {
		t.Errorf("bound attribute leaked: %s", out)
	}
	if !strings.Contains(out, MaskValue) {
		t.Errorf("bound attribute not masked: %s", out)
	}
}

// TestNewLoggerLevels tests verbosity control.
func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	t.Run("quiet logger drops info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)
		logger.Info("should not appear")
		logger.Warn("should appear")

		out := buf.String()
		if strings.Contains(out, "should not appear") {
			t.Errorf("info record logged at warn level: %s", out)
		}
		if !strings.Contains(out, "should appear") {
			t.Errorf("warn record missing: %s", out)
		}
	})

	t.Run("verbose logger keeps debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)
		logger.Debug("debug detail")

		if !strings.Contains(buf.String(), "debug detail") {
			t.Errorf("debug record missing: %s", buf.String())
		}
	})
}
