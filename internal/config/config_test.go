package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 30, s.CompactOlderThanDays)
	assert.False(t, s.AutoStartDaemon)
}

func TestLoadReadsConfigYAML(t *testing.T) {
	dir := t.TempDir()
	content := "auto_start_daemon: true\ncompact_older_than_days: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, s.AutoStartDaemon)
	assert.Equal(t, 7, s.CompactOlderThanDays)
}

func TestResolveDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("ENGRAM_DIR", "/tmp/custom-dir")
	assert.Equal(t, "/tmp/custom-dir", ResolveDir("/anything"))
}

func TestResolveDirDefaultsUnderWorkDir(t *testing.T) {
	os.Unsetenv("ENGRAM_DIR")
	assert.Equal(t, filepath.Join("/work", StoreDirName), ResolveDir("/work"))
}
