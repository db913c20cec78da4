package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"DB_URL", "GRPC_ADDR", "HTTP_ADDR", "CORS_ORIGINS", "MAX_UPLOAD_BYTES", "WORKERS", "LOG_LEVEL", "OCR_SCAN_FALLBACK", "OCR_PREPROCESS"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "file:invoices.db", cfg.Database.DSN)
	assert.False(t, cfg.Database.IsPostgres())
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.OCR.Preprocess)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Queue.ProcessTimeout)
	assert.Equal(t, "eng", cfg.OCR.Lang)
	assert.True(t, cfg.OCR.ScanFallback)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/invoices")
	t.Setenv("WORKERS", "9")
	t.Setenv("DB_DIAL_TIMEOUT", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OCR_SCAN_FALLBACK", "false")
	t.Setenv("QUEUE_SIZE", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := LoadConfig()

	assert.True(t, cfg.Database.IsPostgres())
	assert.Equal(t, 9, cfg.Queue.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.DialTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.OCR.ScanFallback)
	assert.Equal(t, 256, cfg.Queue.QueueSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_HTTPOff(t *testing.T) {
	t.Setenv("HTTP_ADDR", "off")

	cfg := LoadConfig()

	assert.Empty(t, cfg.Server.HTTPAddr)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Queue.Workers = 0

	err := cfg.Validate()

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("get document: %w", ErrNotFound), codes.NotFound},
		{NewAppError("BAD", "bad path", ErrUnsupported), codes.InvalidArgument},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	err := WrapError(ErrDatabase, "save document")
	assert.EqualError(t, err, "save document: database error")
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	RequestLogger(context.Background(), base).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")

	ctx := WithRequestID(context.Background(), "req-7")
	assert.Equal(t, "req-7", RequestIDFromContext(ctx))
	RequestLogger(ctx, base).Info("tagged")
	assert.Contains(t, buf.String(), "request_id=req-7")
}
