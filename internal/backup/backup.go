// Package backup keeps pristine copies of the game files that an install is
// about to patch and puts them back on uninstall.
package backup

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/report"
)

// DirName is the backup directory inside the game directory.
const DirName = "FEZModBackup"

// Record describes one backed-up file.
type Record struct {
	FileName            string
	BackupPath          string
	ExistedBeforeBackup bool
}

// Manager backs up and restores files in a single game directory.
type Manager struct {
	fs      afero.Fs
	gameDir string
	dir     string

	// files backed up by this manager; one manager per install run
	done map[string]bool
}

// New returns a manager for gameDir.
func New(fs afero.Fs, gameDir string) *Manager {
	return &Manager{
		fs:      fs,
		gameDir: gameDir,
		dir:     filepath.Join(gameDir, DirName),
		done:    make(map[string]bool),
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Exists reports whether a backup directory is present.
func (m *Manager) Exists() bool {
	info, err := m.fs.Stat(m.dir)
	return err == nil && info.IsDir()
}

// Backup copies file from the game directory into the backup area. It
// returns false without error when there is nothing to back up: the original
// does not exist, this manager already backed it up, or a copy from an
// earlier, not yet uninstalled run is still present.
func (m *Manager) Backup(file string, r report.Reporter) (bool, error) {
	if r == nil {
		r = report.Discard
	}
	if m.done[file] {
		return false, nil
	}

	src := filepath.Join(m.gameDir, file)
	info, err := m.fs.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debugf("Verbose: nothing to back up for %s\n", file)
			return false, nil
		}
		return false, failure.Wrap(failure.Filesystem, "checking "+file, err)
	}
	if info.IsDir() {
		return false, nil
	}

	dst := filepath.Join(m.dir, file)
	if _, err := m.fs.Stat(dst); err == nil {
		logging.Debugf("Verbose: keeping existing backup of %s\n", file)
		m.done[file] = true
		return false, nil
	}

	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return false, failure.Wrap(failure.Filesystem, "creating backup dir", err)
	}

	r.Logf("Backing up: %s", file)
	if err := copyFile(m.fs, src, dst, info.Mode().Perm()); err != nil {
		return false, failure.Wrap(failure.Filesystem, "backing up "+file, err)
	}
	m.done[file] = true
	return true, nil
}

// Records lists the files currently held in the backup area.
func (m *Manager) Records() ([]Record, error) {
	infos, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, failure.Wrap(failure.Filesystem, "listing backups", err)
	}
	var records []Record
	for _, info := range infos {
		if info.IsDir() || strings.HasSuffix(info.Name(), ".tmp") {
			continue
		}
		records = append(records, Record{
			FileName:            info.Name(),
			BackupPath:          filepath.Join(m.dir, info.Name()),
			ExistedBeforeBackup: true,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].FileName < records[j].FileName })
	return records, nil
}

// Uninstall restores every backed-up file over its (possibly patched) copy in
// the game directory and removes the backup area. afterRestore, if non-nil,
// runs once all files are back in place; callers use it to drop anything they
// loaded from the patched files. A missing backup directory is a no-op and
// returns 0.
func (m *Manager) Uninstall(r report.Reporter, afterRestore func() error) (int, error) {
	if r == nil {
		r = report.Discard
	}
	if !m.Exists() {
		return 0, nil
	}

	records, err := m.Records()
	if err != nil {
		return 0, err
	}

	r.InitProgress("Uninstalling FEZMod", len(records)+1)
	for i, rec := range records {
		r.Logf("Reverting: %s", rec.FileName)
		r.SetProgress("Reverting: "+rec.FileName, i)

		orig := filepath.Join(m.gameDir, rec.FileName)
		if err := m.fs.Remove(orig); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return i, failure.Wrap(failure.Filesystem, "removing patched "+rec.FileName, err)
		}
		if err := m.fs.Rename(rec.BackupPath, orig); err != nil {
			return i, failure.Wrap(failure.Filesystem, "restoring "+rec.FileName, err)
		}
		delete(m.done, rec.FileName)
	}

	if afterRestore != nil {
		r.SetProgress("Reloading FEZ.exe", len(records))
		if err := afterRestore(); err != nil {
			return len(records), err
		}
	}

	if err := m.fs.RemoveAll(m.dir); err != nil {
		return len(records), failure.Wrap(failure.Filesystem, "removing backup dir", err)
	}
	r.EndProgress("Uninstalling complete.")
	return len(records), nil
}

func copyFile(fsys afero.Fs, src, dst string, perm fs.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fsys.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		fsys.Remove(tmp)
		return err
	}
	return fsys.Rename(tmp, dst)
}
