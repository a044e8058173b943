package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5, c.DefaultRefresh)
	require.Equal(t, ":8080", c.RESTAddress)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "dem-server.yaml")
	require.NoError(t, os.WriteFile(p, []byte("default_refresh: 15\nstore_path: /tmp/dem.json\n"), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 15, c.DefaultRefresh)
	require.Equal(t, "/tmp/dem.json", c.StorePath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	require.Error(t, err)
}
