package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupConfig_NoFile_ReturnsEmpty(t *testing.T) {
	// Given: no config file
	path := filepath.Join(t.TempDir(), ".symdex.yaml")

	// When: backing up
	backup, err := BackupConfig(path)

	// Then: nothing to do, no error
	require.NoError(t, err)
	assert.Empty(t, backup)
}

func TestBackupConfig_CopiesContent(t *testing.T) {
	// Given: an existing config file
	dir := t.TempDir()
	path := filepath.Join(dir, ".symdex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	// When: backing up
	backup, err := BackupConfig(path)

	// Then: the backup holds the original content
	require.NoError(t, err)
	require.NotEmpty(t, backup)
	assert.Contains(t, backup, BackupSuffix)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestListBackups_NewestFirst(t *testing.T) {
	// Given: two backups with distinct modification times
	dir := t.TempDir()
	path := filepath.Join(dir, ".symdex.yaml")

	older := path + BackupSuffix + ".20240101-000000"
	newer := path + BackupSuffix + ".20240201-000000"
	require.NoError(t, os.WriteFile(older, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	// When: listing
	backups, err := ListBackups(path)

	// Then: newest first
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, newer, backups[0])
	assert.Equal(t, older, backups[1])
}

func TestBackupConfig_PrunesBeyondMaxBackups(t *testing.T) {
	// Given: a config that already has more than MaxBackups backups
	dir := t.TempDir()
	path := filepath.Join(dir, ".symdex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	for i := 0; i < MaxBackups+2; i++ {
		stale := fmt.Sprintf("%s%s.2024010%d-000000", path, BackupSuffix, i)
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
		at := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(stale, at, at))
	}

	// When: the next backup runs
	backup, err := BackupConfig(path)
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	// Then: only the newest MaxBackups survive, the fresh one included
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, backup, backups[0])
}

func TestListBackups_MissingDirectory_NoError(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "absent", ".symdex.yaml"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}
