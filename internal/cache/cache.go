// Package cache keeps downloaded mod archives in the game directory so that
// reinstalling the same release does not hit the network again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/report"
)

// DirName is the cache directory inside the game directory.
const DirName = "FEZModCache"

// Fetcher downloads a URL into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string, r report.Reporter) ([]byte, error)
}

// Entry is one cached artifact.
type Entry struct {
	Key  string
	Path string
	Size int64
}

// Store maps cache keys to files in one directory. A key holds exactly one
// artifact; writing a key replaces it.
type Store struct {
	fs      afero.Fs
	dir     string
	fetcher Fetcher
}

// New creates a store rooted at dir on fs.
func New(fs afero.Fs, dir string, fetcher Fetcher) *Store {
	return &Store{fs: fs, dir: dir, fetcher: fetcher}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// GetOrFetch returns the cached artifact for key, or downloads url and caches
// it under key when there is none.
func (s *Store) GetOrFetch(ctx context.Context, key, url string, r report.Reporter) ([]byte, bool, error) {
	if r == nil {
		r = report.Discard
	}
	data, err := s.Read(key, r)
	if err != nil {
		return nil, false, err
	}
	if data != nil {
		return data, true, nil
	}
	logging.Debugf("Verbose: cache miss key=%s\n", key)

	if s.fetcher == nil {
		return nil, false, failure.New(failure.Network, "no downloader configured for %s", url)
	}
	data, err = s.fetcher.Fetch(ctx, url, r)
	if err != nil {
		return nil, false, err
	}

	if err := s.Write(key, data, r); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

// Read returns the cached bytes for key, or nil if the key is not cached.
func (s *Store) Read(key string, r report.Reporter) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, failure.Wrap(failure.Filesystem, "checking cache for "+key, err)
	}
	if info.IsDir() {
		return nil, nil
	}

	r.Logf("Reading from cache: %s", key)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, failure.Wrap(failure.Filesystem, "reading cache entry "+key, err)
	}
	logging.Debugf("Verbose: cache hit key=%s bytes=%d\n", key, len(data))
	return data, nil
}

// Write stores data under key, replacing any previous artifact.
func (s *Store) Write(key string, data []byte, r report.Reporter) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return failure.Wrap(failure.Filesystem, "creating cache dir", err)
	}

	r.Logf("Writing to cache: %s", key)
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		_ = s.fs.Remove(tmpPath)
		return failure.Wrap(failure.Filesystem, "writing cache entry "+key, err)
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = s.fs.Remove(tmpPath)
		return failure.Wrap(failure.Filesystem, "replacing cache entry "+key, err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return failure.Wrap(failure.Filesystem, "finalizing cache entry "+key, err)
	}
	return nil
}

// List returns the cached entries.
func (s *Store) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, failure.Wrap(failure.Filesystem, "listing cache", err)
	}
	var entries []Entry
	for _, info := range infos {
		if info.IsDir() || strings.HasSuffix(info.Name(), ".tmp") {
			continue
		}
		entries = append(entries, Entry{
			Key:  info.Name(),
			Path: filepath.Join(s.dir, info.Name()),
			Size: info.Size(),
		})
	}
	return entries, nil
}

// Clear deletes every file in the cache directory. A missing directory is
// not an error.
func (s *Store) Clear(r report.Reporter) error {
	if r == nil {
		r = report.Discard
	}
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return failure.Wrap(failure.Filesystem, "listing cache", err)
	}

	r.Logf("Clearing FEZMod cache...")
	r.InitProgress("Clearing FEZMod cache", len(infos)+1)
	for i, info := range infos {
		if info.IsDir() {
			continue
		}
		r.Logf("Removing: %s", info.Name())
		r.SetProgress("Removing: "+info.Name(), i)
		if err := s.fs.Remove(filepath.Join(s.dir, info.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return failure.Wrap(failure.Filesystem, "removing cache entry "+info.Name(), err)
		}
	}
	r.EndProgress("Clearing cache complete.")
	return nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", failure.New(failure.Filesystem, "invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%d bytes)", e.Key, e.Size)
}
