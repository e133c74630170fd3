package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	lfs := LocalFS{}
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, ".tmp-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "blob")
	require.NoError(t, lfs.Rename(f.Name(), target))

	data, err := lfs.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := lfs.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, lfs.Remove(target))
	_, err = lfs.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	custom := errors.New("disk full")

	tests := []struct {
		name  string
		fault Fault
		run   func(t *testing.T, ffs *FaultyFS, dir string) error
		want  error
	}{
		{
			name:  "write limit",
			fault: Fault{FailAfterBytes: 3, Err: custom},
			run: func(t *testing.T, ffs *FaultyFS, dir string) error {
				f, err := ffs.CreateTemp(dir, ".tmp-*")
				require.NoError(t, err)
				defer f.Close()
				_, err = f.Write([]byte("ab"))
				require.NoError(t, err)
				_, err = f.Write([]byte("cd"))
				return err
			},
			want: custom,
		},
		{
			name:  "sync",
			fault: Fault{FailAfterBytes: -1, FailOnSync: true},
			run: func(t *testing.T, ffs *FaultyFS, dir string) error {
				f, err := ffs.CreateTemp(dir, ".tmp-*")
				require.NoError(t, err)
				defer f.Close()
				return f.Sync()
			},
			want: ErrInjected,
		},
		{
			name:  "close",
			fault: Fault{FailAfterBytes: -1, FailOnClose: true},
			run: func(t *testing.T, ffs *FaultyFS, dir string) error {
				f, err := ffs.CreateTemp(dir, ".tmp-*")
				require.NoError(t, err)
				return f.Close()
			},
			want: ErrInjected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ffs := NewFaultyFS(nil)
			ffs.AddRule(".tmp-", tt.fault)
			err := tt.run(t, ffs, t.TempDir())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFaultyFSRename(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("locked", Fault{FailOnRename: true})

	f, err := ffs.CreateTemp(dir, ".tmp-*")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.ErrorIs(t, ffs.Rename(f.Name(), filepath.Join(dir, "locked")), ErrInjected)
	assert.NoError(t, ffs.Rename(f.Name(), filepath.Join(dir, "open")))
}
