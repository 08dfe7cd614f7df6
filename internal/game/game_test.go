package game

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedis/fezmod-installer/internal/config"
)

const dir = "/games/FEZ"

func newGame(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, f), []byte(f), 0o644))
	}
	return fs
}

func TestLocate(t *testing.T) {
	fs := newGame(t, ExeName, "Common.dll")

	got, err := Locate(fs, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = Locate(fs, filepath.Join(dir, ExeName))
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = Locate(fs, filepath.Join(dir, "Common.dll"))
	assert.Error(t, err)

	_, err = Locate(fs, "/nowhere")
	assert.Error(t, err)

	_, err = Locate(newGame(t, "Common.dll"), dir)
	assert.ErrorContains(t, err, "FEZ.exe not found")
}

func TestDetectEngine(t *testing.T) {
	v, err := DetectEngine(newGame(t, ExeName), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "1.11.0", v.String())

	v, err = DetectEngine(newGame(t, ExeName, FNAName), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "1.12.0", v.String())

	v, err = DetectEngine(newGame(t, ExeName), dir, "1.12.1")
	require.NoError(t, err)
	assert.Equal(t, "1.12.1", v.String())

	_, err = DetectEngine(newGame(t, ExeName), dir, "twelve")
	assert.Error(t, err)
}

func TestOpenReadsState(t *testing.T) {
	fs := newGame(t, ExeName, FNAName)
	require.NoError(t, (&config.InstallState{Label: "0.3.1"}).Save(fs, dir))

	g, err := Open(fs, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", g.ModVersion())
	assert.Equal(t, config.StatusInstalled, g.State.Status)

	g, err = Open(newGame(t, ExeName), dir, "")
	require.NoError(t, err)
	assert.Nil(t, g.State)
	assert.Equal(t, "", g.ModVersion())
}
