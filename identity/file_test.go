package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/attrgen/errors"
)

func TestLoadFile_Formats(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		ids, err := LoadFile("testdata/identities.yaml")
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.Equal(t, "1", ids[0].ID, "sorted by id")
		assert.Equal(t, "Jane", ids[0].Attributes["first"])
		assert.Equal(t, "jane.doe", ids[0].AccountOn("src-1")["login"])
	})

	t.Run("toml", func(t *testing.T) {
		ids, err := LoadFile("testdata/identities.toml")
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.EqualValues(t, 42, ids[0].Attributes["employee"])
	})

	t.Run("json", func(t *testing.T) {
		ids, err := LoadFile("testdata/identities.json")
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.Equal(t, "a", ids[0].ID)
		assert.Equal(t, "Béa", ids[1].Attributes["first"])
	})
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	csv := filepath.Join(dir, "ids.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id\n1\n"), 0o644))
	_, err = LoadFile(csv)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), ".toml")

	noID := filepath.Join(dir, "ids.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"identities":[{"name":"x"}]}`), 0o644))
	_, err = LoadFile(noID)
	assert.ErrorContains(t, err, "has no id")
}

func TestFileSource(t *testing.T) {
	src, err := NewFileSource("testdata/identities.yaml")
	require.NoError(t, err)
	ctx := context.Background()

	all, err := src.Search(ctx, "*")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := src.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "john.smith", one.Name)

	_, err = src.Get(ctx, "nope")
	assert.True(t, errors.IsNotFoundError(err))

	assert.NoError(t, src.Ping(ctx))
	assert.NoError(t, NewStaticSource().Ping(ctx))
}
