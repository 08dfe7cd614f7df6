// Package archive unpacks FEZMod release zips into a game directory.
//
// A release carries its payload under FEZMOD/ (MonoGame builds of FEZ) or
// FEZMOD-FNA/ (FEZ 1.12 and later). Native libraries live under
// <prefix>/LIBS/<platform tag>/ and are flattened into the game directory for
// the current platform only. An optional InstallerVersion.txt at the archive
// root names the oldest installer allowed to install the release.
package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/report"
	"github.com/caedis/fezmod-installer/internal/semver"
)

const (
	SentinelName = "InstallerVersion.txt"
	BasePrefix   = "FEZMOD/"
	FNAPrefix    = "FEZMOD-FNA/"
	LibsDir      = "LIBS/"

	// ObsoleteSpeedrun is blacklisted by releases that require installer
	// 16.5.10 or newer.
	ObsoleteSpeedrun = "FEZ.Speedrun.mm.dll"
)

var (
	// FNAEngine is the first FEZ version built on FNA instead of MonoGame.
	FNAEngine = semver.Version{Major: 1, Minor: 12}
	// MigrationInstaller is the minimum-installer requirement at which
	// ObsoleteSpeedrun gets blacklisted.
	MigrationInstaller = semver.Version{Major: 16, Minor: 5, Patch: 10}
)

// Bucket is the classification of one archive entry against a prefix.
type Bucket int

const (
	Unrecognized Bucket = iota
	Versioned
	Fallback
)

// Extractor installs release archives into Dir.
type Extractor struct {
	Fs               afero.Fs
	Dir              string
	InstallerVersion semver.Version
	EngineVersion    semver.Version
	Platform         string
}

// Result describes a finished extraction.
type Result struct {
	// Prefix is the archive prefix that was extracted; empty for a flat archive.
	Prefix string
	// MinInstaller is the requirement read from InstallerVersion.txt, if any.
	MinInstaller *semver.Version
	// Blacklist holds file names the archive asks to have removed.
	Blacklist []string
	// Files and Dirs are the paths written, relative to Dir.
	Files []string
	Dirs  []string
}

// Prefix returns the payload prefix for a FEZ engine version.
func Prefix(engine semver.Version) string {
	if engine.AtLeast(FNAEngine) {
		return FNAPrefix
	}
	return BasePrefix
}

// Classify sorts an entry name into the bucket for prefix. When prefix is the
// base prefix itself, every FEZMOD/ entry is Versioned.
func Classify(name, prefix string) Bucket {
	switch {
	case strings.HasPrefix(name, prefix):
		return Versioned
	case strings.HasPrefix(name, BasePrefix):
		return Fallback
	default:
		return Unrecognized
	}
}

// ErrFallbackOnly reports an archive that only carries the legacy payload
// while the engine needs the versioned one.
var ErrFallbackOnly = errors.New("archive has no payload for this FEZ version")

// Select picks the prefix to extract from the non-sentinel entry names.
// Versioned entries win; an archive with only fallback entries fails with
// ErrFallbackOnly; an archive with neither is extracted flat and Select
// returns the empty prefix.
func Select(names []string, prefix string) (string, error) {
	var versioned, fallback int
	for _, name := range names {
		switch Classify(name, prefix) {
		case Versioned:
			versioned++
		case Fallback:
			fallback++
		}
	}
	switch {
	case versioned > 0:
		return prefix, nil
	case fallback > 0:
		return "", ErrFallbackOnly
	default:
		return "", nil
	}
}

// MapEntry returns the slash-separated path, relative to the game directory,
// that the entry name extracts to. It returns false for entries that are not
// under prefix, that name the prefix itself, or that are native libraries for
// another platform. LIBS/<platform>/ is stripped from matching libraries.
func MapEntry(name, prefix, platform string) (string, bool) {
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	if strings.HasPrefix(rest, LibsDir) {
		rest = rest[len(LibsDir):]
		if platform == "" || !strings.HasPrefix(rest, platform+"/") {
			return "", false
		}
		rest = rest[len(platform)+1:]
	}
	if rest == "" || rest == "/" {
		return "", false
	}
	return rest, true
}

// Install validates data as a release archive and extracts the payload for
// the extractor's engine version and platform. Version-gate and layout
// failures are reported before anything is written.
func (e *Extractor) Install(data []byte, r report.Reporter) (Result, error) {
	if r == nil {
		r = report.Discard
	}
	var res Result

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, failure.Wrap(failure.ArchiveFormat, "reading zip", err)
	}

	prefix := Prefix(e.EngineVersion)
	if prefix == FNAPrefix {
		r.Logf("FEZ 1.12 has switched from MonoGame to FNA.")
		r.Logf("Make sure the version you've picked is supported!")
	}
	r.Logf("Checking for %s...", prefix)

	r.InitProgress("Scanning ZIP", len(zr.File))
	var names []string
	for i, f := range zr.File {
		r.SetProgress("Scanning ZIP", i)
		r.Logf("Entry: %s: %d bytes", f.Name, f.UncompressedSize64)

		if f.Name != SentinelName {
			names = append(names, f.Name)
			continue
		}

		r.Logf("Found version file.")
		minv, err := readSentinel(f)
		if err != nil {
			return res, err
		}
		res.MinInstaller = &minv
		if e.InstallerVersion.Less(minv) {
			r.Logf("There's a new FEZMod Installer version!")
			r.Logf("(Minimum installer version for this FEZMod version: %s)", minv)
			return res, failure.New(failure.ArchiveFormat, "installer too old: need %s, have %s", minv, e.InstallerVersion)
		}
		if minv.AtLeast(MigrationInstaller) {
			r.Logf("Blacklisting FEZMod.Speedrun as it's obsolete and causes upgrading issues")
			res.Blacklist = append(res.Blacklist, ObsoleteSpeedrun)
		}
	}

	chosen, err := Select(names, prefix)
	if err != nil {
		r.Logf("Didn't find %s - HALT THE GEARS!", prefix)
		r.EndProgress("Halted.")
		return res, failure.Wrap(failure.ArchiveFormat, "selecting "+prefix, err)
	}
	if chosen == "" {
		r.Logf("Is this even a FEZMod ZIP? uh...")
	} else {
		r.Logf("%s found.", chosen)
	}
	res.Prefix = chosen

	r.InitProgress("Extracting ZIP", len(names))
	extracted := 0
	for _, f := range zr.File {
		if f.Name == SentinelName {
			continue
		}
		rel, ok := MapEntry(f.Name, chosen, e.Platform)
		if !ok {
			continue
		}
		extracted++
		r.SetProgress("Extracting ZIP", extracted)

		dest, ok := e.target(rel)
		if !ok {
			logging.Warnf("skipping %s: path escapes %s\n", f.Name, e.Dir)
			continue
		}
		r.Logf("Extracting: %s -> %s", f.Name, dest)

		if f.UncompressedSize64 == 0 && f.CompressedSize64 == 0 {
			if err := e.Fs.MkdirAll(dest, 0o755); err != nil {
				return res, failure.Wrap(failure.Filesystem, "creating "+rel, err)
			}
			res.Dirs = append(res.Dirs, strings.TrimSuffix(rel, "/"))
			continue
		}
		if err := e.writeEntry(f, dest); err != nil {
			return res, failure.Wrap(failure.Filesystem, "extracting "+f.Name, err)
		}
		res.Files = append(res.Files, rel)
	}
	r.EndProgress("Extracted ZIP.")
	logging.Debugf("Verbose: extracted %d files, %d dirs from prefix %q\n", len(res.Files), len(res.Dirs), chosen)
	return res, nil
}

// CopyFolder installs an unpacked release from a local folder: every file
// directly in src whose name contains ".mm." is copied into Dir.
func (e *Extractor) CopyFolder(src string, r report.Reporter) ([]string, error) {
	if r == nil {
		r = report.Discard
	}
	infos, err := afero.ReadDir(e.Fs, src)
	if err != nil {
		return nil, failure.Wrap(failure.Filesystem, "reading "+src, err)
	}

	var copied []string
	r.InitProgress("Copying FEZMod", len(infos))
	for i, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.Contains(name, ".mm.") {
			r.SetProgress("Skipping: "+name, i)
			continue
		}
		r.Logf("Copying: %s", name)
		r.SetProgress("Copying: "+name, i)
		if err := e.copyLocal(filepath.Join(src, name), filepath.Join(e.Dir, name)); err != nil {
			return copied, failure.Wrap(failure.Filesystem, "copying "+name, err)
		}
		copied = append(copied, name)
	}
	r.EndProgress("Copying FEZMod complete.")
	return copied, nil
}

func (e *Extractor) target(rel string) (string, bool) {
	dest := filepath.Join(e.Dir, filepath.FromSlash(rel))
	cleanDir := filepath.Clean(e.Dir)
	cleanDest := filepath.Clean(dest)
	if cleanDest == cleanDir || !strings.HasPrefix(cleanDest, cleanDir+string(os.PathSeparator)) {
		return "", false
	}
	return dest, true
}

func (e *Extractor) writeEntry(f *zip.File, dest string) error {
	if err := e.Fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := e.Fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (e *Extractor) copyLocal(src, dst string) error {
	in, err := e.Fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.Fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readSentinel(f *zip.File) (semver.Version, error) {
	rc, err := f.Open()
	if err != nil {
		return semver.Version{}, failure.Wrap(failure.ArchiveFormat, "opening "+SentinelName, err)
	}
	defer rc.Close()

	line, err := bufio.NewReader(io.LimitReader(rc, 256)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return semver.Version{}, failure.Wrap(failure.ArchiveFormat, "reading "+SentinelName, err)
	}
	v, err := semver.Parse(line)
	if err != nil {
		return semver.Version{}, failure.Wrap(failure.ArchiveFormat, fmt.Sprintf("parsing %s %q", SentinelName, strings.TrimSpace(line)), err)
	}
	return v, nil
}
