package common

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATE_LOCALES", "pt-PT, en-GB")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 70*time.Second, cfg.Upload.Budget)
	assert.Equal(t, 10*time.Second, cfg.Upload.Margin)
	assert.Equal(t, 24*time.Hour, cfg.Batch.TTL)
	assert.Equal(t, time.Hour, cfg.Batch.SweepInterval)
	assert.Equal(t, 15*time.Second, cfg.Decoder.Timeout)
	assert.Equal(t, "PT", cfg.Layouts.DefaultName)
	assert.Equal(t, []string{"pt-PT", "en-GB"}, cfg.Layouts.DateLocales)
	assert.Equal(t, 300, cfg.OCR.DPI)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("DB_URL", "")
	cfg := LoadConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	t.Setenv("DB_URL", "postgres://localhost/intake")
	t.Setenv("UPLOAD_TIMEOUT", "5s")
	t.Setenv("UPLOAD_TIMEOUT_MARGIN", "10s")
	assert.Error(t, LoadConfig().Validate())
}

func TestNewLoggerPlainDropsTimeAndLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, true, "info").Info("batch.sweep", "removed", 2)
	out := buf.String()
	assert.NotContains(t, out, "time=")
	assert.NotContains(t, out, "level=")
	assert.Contains(t, out, "msg=batch.sweep removed=2")

	buf.Reset()
	NewLogger(&buf, false, "warn").Info("hidden")
	assert.Empty(t, buf.String())
}
