package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestSubmitRequiresURL(t *testing.T) {
	_, err := execute(t, "submit")
	require.Error(t, err)
}

func TestMigrateThenSubmit(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("NEWS_INGESTOR_CONFIG", "")

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	out, err = execute(t, "submit", "https://example.com/story", "--title", "Story")
	require.NoError(t, err)
	assert.Contains(t, out, "queued")

	out, err = execute(t, "submit", "https://example.com/story")
	require.NoError(t, err)
	assert.Contains(t, out, "already pending")

	_, err = execute(t, "submit", "ftp://example.com/file")
	require.Error(t, err)
}
