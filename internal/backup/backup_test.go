package backup

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gameDir = "/games/FEZ"

func writeGameFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(gameDir, name), []byte(content), 0o644))
}

func readGameFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, filepath.Join(gameDir, name))
	require.NoError(t, err)
	return string(data)
}

func TestBackupThenUninstallRestoresOriginals(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "FEZ.exe", "pristine exe")
	writeGameFile(t, fs, "Common.dll", "pristine common")

	m := New(fs, gameDir)
	for _, name := range []string{"FEZ.exe", "Common.dll"} {
		ok, err := m.Backup(name, nil)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	writeGameFile(t, fs, "FEZ.exe", "patched exe, a lot longer than before")
	writeGameFile(t, fs, "Common.dll", "patched")

	reloaded := false
	n, err := New(fs, gameDir).Uninstall(nil, func() error {
		reloaded = true
		assert.Equal(t, "pristine exe", readGameFile(t, fs, "FEZ.exe"), "hook runs after restore")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, reloaded)

	assert.Equal(t, "pristine exe", readGameFile(t, fs, "FEZ.exe"))
	assert.Equal(t, "pristine common", readGameFile(t, fs, "Common.dll"))

	exists, err := afero.DirExists(fs, filepath.Join(gameDir, DirName))
	require.NoError(t, err)
	assert.False(t, exists, "no stale backup copies remain")
}

func TestBackupMissingFileIsNotAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, gameDir)

	ok, err := m.Backup("FNA.dll", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, m.Exists())
}

func TestBackupOncePerRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "FezEngine.dll", "v1")
	m := New(fs, gameDir)

	ok, err := m.Backup("FezEngine.dll", nil)
	require.NoError(t, err)
	require.True(t, ok)

	writeGameFile(t, fs, "FezEngine.dll", "v2")
	ok, err = m.Backup("FezEngine.dll", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := afero.ReadFile(fs, filepath.Join(gameDir, DirName, "FezEngine.dll"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestBackupKeepsCopyFromEarlierRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "FEZ.exe", "pristine")
	_, err := New(fs, gameDir).Backup("FEZ.exe", nil)
	require.NoError(t, err)

	writeGameFile(t, fs, "FEZ.exe", "patched")
	ok, err := New(fs, gameDir).Backup("FEZ.exe", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := New(fs, gameDir).Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "FEZ.exe", records[0].FileName)
	assert.True(t, records[0].ExistedBeforeBackup)

	data, err := afero.ReadFile(fs, records[0].BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "pristine", string(data))
}

func TestUninstallWithoutBackupIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "FEZ.exe", "untouched")

	called := false
	n, err := New(fs, gameDir).Uninstall(nil, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, called)
	assert.Equal(t, "untouched", readGameFile(t, fs, "FEZ.exe"))
}

func TestUninstallRestoresWhenPatchedCopyIsGone(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "EasyStorage.dll", "original")
	m := New(fs, gameDir)
	_, err := m.Backup("EasyStorage.dll", nil)
	require.NoError(t, err)
	require.NoError(t, fs.Remove(filepath.Join(gameDir, "EasyStorage.dll")))

	_, err = m.Uninstall(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "original", readGameFile(t, fs, "EasyStorage.dll"))
}

func TestUninstallHookErrorPropagates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeGameFile(t, fs, "FEZ.exe", "original")
	m := New(fs, gameDir)
	_, err := m.Backup("FEZ.exe", nil)
	require.NoError(t, err)

	boom := errors.New("reload failed")
	_, err = m.Uninstall(nil, func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "original", readGameFile(t, fs, "FEZ.exe"))
}
