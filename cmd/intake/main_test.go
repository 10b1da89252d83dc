package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeIsInclusive(t *testing.T) {
	f, err := parseRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), f.To)

	_, err = parseRange("01/01/2024", "")
	assert.Error(t, err)
}

func TestMigrateAndSweepOnSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("VIES_ENABLED", "false")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "schema at version")

	out.Reset()
	rootCmd.SetArgs([]string{"sweep"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "removed 0 expired batches")
}
