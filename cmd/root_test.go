package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/buildinfo"
	"github.com/tphakala/skyarchive/internal/errors"
)

// Commands bind their flags to the global viper instance, so these tests do
// not run in parallel.

func execute(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	a := app.NewContext(buildinfo.NewContext("test", ""))
	t.Cleanup(func() { _ = a.Close() })

	root := RootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", path}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	return "archive:\n  sqlite:\n    path: " + filepath.Join(t.TempDir(), "archive.db") +
		"\nlogging:\n  console:\n    enabled: false\n"
}

func TestConfigShowDoesNotOpenArchive(t *testing.T) {
	out, err := execute(t, `
archive:
  type: mysql
  mysql:
    host: unreachable.invalid
    username: pipeline
    password: hunter2
logging:
  console:
    enabled: false
`, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable.invalid")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "********")
}

func TestFrameDropsOnEmptyArchive(t *testing.T) {
	out, err := execute(t, sqliteConfig(t), "framedrops", "--utc-min", "0", "--utc-max", "now")
	require.NoError(t, err)
	assert.Contains(t, out, "framedrop run")
	assert.Contains(t, out, "0 items")
}

func TestIdentifySubcommands(t *testing.T) {
	out, err := execute(t, sqliteConfig(t), "identify", "shower", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "shower run")

	out, err = execute(t, sqliteConfig(t), "identify", "satellite")
	require.NoError(t, err)
	assert.Contains(t, out, "satellite run")
}

func TestBadWindowIsConfigurationError(t *testing.T) {
	_, err := execute(t, sqliteConfig(t), "triangulate", "--utc-min", "last tuesday")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestCatalogueImportsObservatories(t *testing.T) {
	out, err := execute(t, sqliteConfig(t), "catalogue", "observatories",
		"--file", "../internal/refdata/testdata/known_observatories.xml")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 observatories")
}

func TestUnsupportedArchiveFails(t *testing.T) {
	_, err := execute(t, "archive:\n  type: oracle\n", "framedrops")
	require.Error(t, err)
}
