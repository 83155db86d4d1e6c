package intake

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireArtifact_UniqueNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	a, err := AcquireArtifact(dir)
	require.NoError(t, err)
	b, err := AcquireArtifact(dir)
	require.NoError(t, err)
	require.NotEqual(t, a.Path(), b.Path())
	require.Equal(t, dir, filepath.Dir(a.Path()))

	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
}

func TestArtifact_WriteOpenRelease(t *testing.T) {
	a, err := AcquireArtifact(t.TempDir())
	require.NoError(t, err)

	_, err = a.Write([]byte("leaf"))
	require.NoError(t, err)
	require.Equal(t, int64(4), a.Size())

	f, err := a.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, "leaf", string(data))

	require.NoError(t, a.Release())
	_, err = os.Stat(a.Path())
	require.True(t, os.IsNotExist(err))

	// releasing twice is fine
	require.NoError(t, a.Release())
}
