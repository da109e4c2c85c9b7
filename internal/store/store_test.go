package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/bt-inspector/internal/protocol"
)

func testStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		s := open(t)
		files, err := s.List()
		require.NoError(t, err)
		require.Empty(t, files)
		_, err = s.Load("missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save load list", func(t *testing.T) {
		t.Parallel()
		s := open(t)
		require.NoError(t, s.Save("b", "beta", []byte("two")))
		require.NoError(t, s.Save("a", "alpha", []byte("one")))

		data, err := s.Load("a")
		require.NoError(t, err)
		require.Equal(t, protocol.FileData("one"), data)

		files, err := s.List()
		require.NoError(t, err)
		require.Equal(t, []protocol.FileEntry{{ID: "a", Name: "alpha"}, {ID: "b", Name: "beta"}}, files)

		// Overwrite and rename.
		require.NoError(t, s.Save("a", "zeta", []byte("uno")))
		data, err = s.Load("a")
		require.NoError(t, err)
		require.Equal(t, protocol.FileData("uno"), data)
		files, err = s.List()
		require.NoError(t, err)
		require.Equal(t, []protocol.FileEntry{{ID: "b", Name: "beta"}, {ID: "a", Name: "zeta"}}, files)
	})

	t.Run("invalid entries", func(t *testing.T) {
		t.Parallel()
		s := open(t)
		for _, id := range []protocol.FileID{"", "../escape", "a/b", `a\b`, ".hidden", "a|b"} {
			require.ErrorIs(t, s.Save(id, "name", nil), ErrInvalidEntry, id)
		}
		require.ErrorIs(t, s.Save("ok", "", nil), ErrInvalidEntry)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		s := open(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		_, err := s.List()
		require.ErrorIs(t, err, ErrClosed)
		require.ErrorIs(t, s.Save("a", "alpha", nil), ErrClosed)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	testStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestFileSystemStore(t *testing.T) {
	t.Parallel()
	testStoreContract(t, func(t *testing.T) Store {
		s, err := OpenFileSystemStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileSystemStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "store")
	s, err := OpenFileSystemStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("f1", "first", []byte("data: 1\n")))
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, "f1.bt.yaml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "index.yaml"))
	require.NoError(t, err)

	s, err = OpenFileSystemStore(dir)
	require.NoError(t, err)
	defer s.Close()
	files, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []protocol.FileEntry{{ID: "f1", Name: "first"}}, files)
	data, err := s.Load("f1")
	require.NoError(t, err)
	require.Equal(t, "data: 1\n", string(data))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestFileSystemStore_ExclusiveLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenFileSystemStore(dir)
	require.NoError(t, err)

	_, err = OpenFileSystemStore(dir)
	require.ErrorIs(t, err, ErrWouldBlock)

	require.NoError(t, s.Close())
	s2, err := OpenFileSystemStore(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestFileSystemStore_MissingDataFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenFileSystemStore(dir)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save("gone", "gone", []byte("x")))
	require.NoError(t, os.Remove(filepath.Join(dir, "gone.bt.yaml")))

	_, err = s.Load("gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemStore_BadIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.yaml"), []byte("files: {"), 0o644))
	_, err := OpenFileSystemStore(dir)
	require.Error(t, err)

	// The lock was released on failure.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.yaml"), []byte("files:\n  - id: ../x\n    name: bad\n  - id: ok\n    name: good\n"), 0o644))
	s, err := OpenFileSystemStore(dir)
	require.NoError(t, err)
	defer s.Close()
	files, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []protocol.FileEntry{{ID: "ok", Name: "good"}}, files)
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateName("alpha"))
	require.NoError(t, ValidateName(protocol.FileName(strings.Repeat("n", 256))))
	require.ErrorIs(t, ValidateName(""), ErrInvalidEntry)
	err := ValidateName(protocol.FileName(strings.Repeat("n", 257)))
	require.ErrorIs(t, err, ErrInvalidEntry)
	require.ErrorContains(t, err, "failed max")
}
