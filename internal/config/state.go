package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const StateFile = ".fezmod-installer.json"

// Status labels shown next to the game directory.
const (
	StatusInstalled   = "just installed"
	StatusUninstalled = "just uninstalled"
)

// ErrNotInstalled is returned by Load when the game directory has no state file.
var ErrNotInstalled = errors.New("no FEZMod installation recorded")

type InstallState struct {
	Label            string    `json:"label"`
	Source           string    `json:"source"`
	Channel          string    `json:"channel,omitempty"`
	URL              string    `json:"url,omitempty"`
	EngineVersion    string    `json:"engine_version"`
	InstallerVersion string    `json:"installer_version"`
	InstalledAt      time.Time `json:"installed_at"`
	Status           string    `json:"status,omitempty"`
	Blacklisted      []string  `json:"blacklisted,omitempty"`
}

// Load reads the install state from the game directory.
func Load(fsys afero.Fs, gameDir string) (*InstallState, error) {
	path := filepath.Join(gameDir, StateFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInstalled
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var state InstallState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if state.Status == "" {
		state.Status = StatusInstalled
	}
	return &state, nil
}

// Save writes the install state to the game directory.
func (s *InstallState) Save(fsys afero.Fs, gameDir string) error {
	path := filepath.Join(gameDir, StateFile)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := afero.WriteFile(fsys, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Remove deletes the install state. A missing file is not an error.
func Remove(fsys afero.Fs, gameDir string) error {
	err := fsys.Remove(filepath.Join(gameDir, StateFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing state: %w", err)
	}
	return nil
}
