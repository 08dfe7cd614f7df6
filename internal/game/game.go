// Package game finds a FEZ installation and works out which engine build it
// is.
package game

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/archive"
	"github.com/caedis/fezmod-installer/internal/config"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/semver"
)

const (
	ExeName = "FEZ.exe"
	FNAName = "FNA.dll"
)

// LegacyEngine is reported for MonoGame builds, which carry no FNA.dll.
var LegacyEngine = semver.Version{Major: 1, Minor: 11}

// Game is a located FEZ installation.
type Game struct {
	Dir    string
	Engine semver.Version
	// State is the recorded FEZMod install, or nil.
	State *config.InstallState
}

// Locate returns the game directory for path, which may name FEZ.exe or the
// directory holding it.
func Locate(fsys afero.Fs, path string) (string, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "." || path == "" {
		return "", fmt.Errorf("no game directory given")
	}

	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s does not exist", path)
		}
		return "", fmt.Errorf("checking %s: %w", path, err)
	}

	dir := path
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Base(path), ExeName) {
			return "", fmt.Errorf("%s is not %s", path, ExeName)
		}
		dir = filepath.Dir(path)
	}

	exists, err := afero.Exists(fsys, filepath.Join(dir, ExeName))
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", ExeName, err)
	}
	if !exists {
		return "", fmt.Errorf("%s not found in %s", ExeName, dir)
	}
	return dir, nil
}

// DetectEngine returns the FEZ version of the installation in dir. A
// non-empty override wins; otherwise FNA.dll marks the FNA builds.
func DetectEngine(fsys afero.Fs, dir, override string) (semver.Version, error) {
	if strings.TrimSpace(override) != "" {
		v, err := semver.Parse(override)
		if err != nil {
			return semver.Version{}, fmt.Errorf("engine version override: %w", err)
		}
		return v, nil
	}

	hasFNA, err := afero.Exists(fsys, filepath.Join(dir, FNAName))
	if err != nil {
		return semver.Version{}, fmt.Errorf("checking %s: %w", FNAName, err)
	}
	if hasFNA {
		return archive.FNAEngine, nil
	}
	return LegacyEngine, nil
}

// Open locates and inspects the installation at path.
func Open(fsys afero.Fs, path, engineOverride string) (*Game, error) {
	dir, err := Locate(fsys, path)
	if err != nil {
		return nil, err
	}
	engine, err := DetectEngine(fsys, dir, engineOverride)
	if err != nil {
		return nil, err
	}

	g := &Game{Dir: dir, Engine: engine}
	state, err := config.Load(fsys, dir)
	switch {
	case err == nil:
		g.State = state
	case errors.Is(err, config.ErrNotInstalled):
	default:
		logging.Warnf("ignoring unreadable install state: %v\n", err)
	}
	logging.Debugf("Verbose: game dir=%s engine=%s\n", dir, engine)
	return g, nil
}

// ModVersion returns the label of the recorded FEZMod install, or "".
func (g *Game) ModVersion() string {
	if g.State == nil {
		return ""
	}
	return g.State.Label
}
