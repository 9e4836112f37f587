package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, r *Redactor) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r))
}

func TestRedactingHandler_Message(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf, NewRedactor()).Info("key is pplx-abcdefghijklmnopqrstuvwxyz")

	out := buf.String()
	if strings.Contains(out, "pplx-abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("secret in output: %s", out)
	}
	if !strings.Contains(out, RedactPlaceholder) {
		t.Errorf("placeholder missing: %s", out)
	}
}

func TestRedactingHandler_Attributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf, NewRedactor("the-api-key"))

	logger.Info("request",
		"auth", "the-api-key",
		"safe", "visible",
		"error", errors.New("upstream echoed the-api-key"),
		slog.Group("req", slog.String("header", "Bearer the-api-key")),
	)

	out := buf.String()
	if strings.Contains(out, "the-api-key") {
		t.Errorf("secret in output: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("safe value missing: %s", out)
	}
}

func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf, NewRedactor("persistent-secret")).
		With("key", "persistent-secret").
		WithGroup("stream")

	logger.Debug("chunk", "raw", "persistent-secret")

	out := buf.String()
	if strings.Contains(out, "persistent-secret") {
		t.Errorf("secret in output: %s", out)
	}
	if !strings.Contains(out, "stream.raw=") {
		t.Errorf("group prefix missing: %s", out)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewRedactingHandler(inner, NewRedactor()))

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level: %s", buf.String())
	}
}
