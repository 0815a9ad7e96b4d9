package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/roomshare/roomshare-api/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestRedactingHandler(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		shouldRedact bool
	}{
		{"access_token is redacted", "access_token", "eyJhbGciOi", true},
		{"refresh_token is redacted", "refresh_token", "eyJzdWIiOi", true},
		{"password is redacted", "password", "hunter22", true},
		{"authorization is redacted", "Authorization", "Bearer xyz", true},
		{"set_cookie is redacted", "set_cookie", "refresh_token=abc", true},
		{"access_secret is redacted", "access_secret", "s3cr3t", true},
		{"user_id not redacted", "user_id", "user123", false},
		{"email not redacted", "email", "alice@example.com", false},
		{"status not redacted", "status", "403", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(observability.NewRedactingHandler(&buf, nil))

			logger.Info("test", tt.key, tt.value)
			output := buf.String()

			if tt.shouldRedact {
				assert.Contains(t, output, "[REDACTED]")
				assert.NotContains(t, output, tt.value)
			} else {
				assert.Contains(t, output, tt.value)
				assert.NotContains(t, output, "[REDACTED]")
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("adds service context and redacts", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "roomshare-api",
			Environment: "test",
			Output:      &buf,
		})

		logger.Info("signin", "user_id", "u1", "refresh_token", "tok")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "roomshare-api", entry["service"])
		assert.Equal(t, "test", entry["environment"])
		assert.Equal(t, "u1", entry["user_id"])
		assert.Equal(t, "[REDACTED]", entry["refresh_token"])
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{Level: "error", Output: &buf})

		logger.Info("dropped")
		assert.Empty(t, buf.String())

		logger.Error("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{Format: "text", Output: &buf})

		logger.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, observability.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, observability.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel("verbose"))
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		assert.NotNil(t, observability.LoggerFromContext(context.Background()))
	})

	t.Run("returns stored logger with trace id", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		ctx = observability.ContextWithLogger(ctx, logger)
		observability.LoggerFromContext(ctx).Info("hello")

		assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
	})
}
