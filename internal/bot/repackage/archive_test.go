package repackage

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpack_RejectsEscapingMembers(t *testing.T) {
	for _, name := range []string{"../evil.txt", "a/../../evil.txt", "/abs.txt"} {
		t.Run(name, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "slip.zip")
			writeZip(t, src, map[string][]byte{name: []byte("x")})

			dst := t.TempDir()
			err := Unpack(src, dst)
			require.ErrorIs(t, err, ErrUnsafePath)
			assert.NoFileExists(t, filepath.Join(filepath.Dir(dst), "evil.txt"))
		})
	}
}

func TestUnpack_NestedDirectories(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ok.zip")
	writeZip(t, src, map[string][]byte{"a/b/c.txt": []byte("c"), "top.txt": []byte("t")})

	dst := t.TempDir()
	require.NoError(t, Unpack(src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c", string(b))
}

func TestPack_SortedDeflatedForwardSlashes(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"z.txt", "Metadata/b.config", "3D/model.model", "Metadata/a.png"} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("content of "+p), 0o644))
	}

	dst := filepath.Join(t.TempDir(), "out.3mf")
	require.NoError(t, Pack(dir, dst, packTime))

	zr, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
		assert.True(t, f.Modified.Equal(packTime), "modified %v", f.Modified)
	}
	assert.Equal(t, []string{"3D/model.model", "Metadata/a.png", "Metadata/b.config", "z.txt"}, names)

	members := readZip(t, dst)
	assert.Equal(t, "content of Metadata/b.config", members["Metadata/b.config"])
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "x", "y.bin"), []byte{0, 1, 2, 3}, 0o644))

	archive := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, Pack(src, archive, packTime))

	dst := t.TempDir()
	require.NoError(t, Unpack(archive, dst))
	b, err := os.ReadFile(filepath.Join(dst, "x", "y.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, b)
}
