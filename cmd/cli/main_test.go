package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/cache"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStatsWithoutSplits(t *testing.T) {
	cfg := writeConfig(t, "cache:\n  dir: "+t.TempDir()+"\n")
	root := newRootCmd()
	root.SetArgs([]string{"--config", cfg, "stats", "train"})
	root.SetErr(new(nopWriter))

	err := root.Execute()
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestImportRequiresFile(t *testing.T) {
	cfg := writeConfig(t, "")
	root := newRootCmd()
	root.SetArgs([]string{"--config", cfg, "import"})
	root.SetErr(new(nopWriter))
	assert.Error(t, root.Execute())
}

func TestRunnerOptionsFromConfig(t *testing.T) {
	cfg := writeConfig(t, "pipeline:\n  undersample_band: \"50+\"\n  undersample_n: 3\n")
	a := &app{cfgFile: cfg}
	require.NoError(t, a.setup())

	assert.Equal(t, "50+", a.cfg.Pipeline.UndersampleBand)
	assert.NotNil(t, a.runner())
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "hnprep", root.Use)
	assert.True(t, root.SilenceUsage)
	assert.NotEmpty(t, root.Short)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"prepare", "tokenize", "ingest", "import", "export", "stats"} {
		assert.Contains(t, names, want)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	cfg := writeConfig(t, "pipeline:\n  undersample_band: \"9000+\"\n")
	a := &app{cfgFile: cfg}
	assert.Error(t, a.setup())
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
