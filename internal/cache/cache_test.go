package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/report"
)

type countingFetcher struct {
	calls int
	data  []byte
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, _ string, _ report.Reporter) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

const gameDir = "/games/FEZ"

func newStore(t *testing.T, f Fetcher) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(fs, filepath.Join(gameDir, DirName), f), fs
}

func TestGetOrFetchSecondCallUsesCache(t *testing.T) {
	f := &countingFetcher{data: []byte("zip bytes")}
	store, fs := newStore(t, f)

	data, hit, err := store.GetOrFetch(context.Background(), "stable0.9.zip", "https://example.test/a.zip", nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("zip bytes"), data)

	data, hit, err = store.GetOrFetch(context.Background(), "stable0.9.zip", "https://example.test/a.zip", nil)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("zip bytes"), data)
	assert.Equal(t, 1, f.calls, "second call must not hit the network")

	onDisk, err := afero.ReadFile(fs, filepath.Join(gameDir, DirName, "stable0.9.zip"))
	require.NoError(t, err)
	assert.Equal(t, []byte("zip bytes"), onDisk)
}

func TestGetOrFetchFailureCachesNothing(t *testing.T) {
	f := &countingFetcher{err: failure.Wrap(failure.Network, "downloading", errors.New("reset"))}
	store, _ := newStore(t, f)

	_, _, err := store.GetOrFetch(context.Background(), "devbuild42.zip", "https://example.test/b.zip", nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Network))

	entries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteReplacesExistingEntry(t *testing.T) {
	store, _ := newStore(t, nil)
	require.NoError(t, store.Write("stable1.zip", []byte("old and longer"), report.Discard))
	require.NoError(t, store.Write("stable1.zip", []byte("new"), report.Discard))

	data, err := store.Read("stable1.zip", report.Discard)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stable1.zip", entries[0].Key)
	assert.Equal(t, int64(3), entries[0].Size)
}

func TestReadMissingKeyReturnsNil(t *testing.T) {
	store, _ := newStore(t, nil)
	data, err := store.Read("nope.zip", report.Discard)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestClear(t *testing.T) {
	store, fs := newStore(t, nil)
	require.NoError(t, store.Clear(nil), "missing cache dir is a no-op")

	require.NoError(t, store.Write("a.zip", []byte("a"), report.Discard))
	require.NoError(t, store.Write("b.zip", []byte("b"), report.Discard))
	require.NoError(t, store.Clear(nil))

	infos, err := afero.ReadDir(fs, store.Dir())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestInvalidKeyRejected(t *testing.T) {
	store, _ := newStore(t, nil)
	err := store.Write("../escape.zip", []byte("x"), report.Discard)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Filesystem))
}
