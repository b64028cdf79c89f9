package cache

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fc := NewFileCache(t.TempDir())

	_, err := fc.Get(ctx, "product/ct/P1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fc.Put(ctx, "product/ct/P1", `{"a":1}`, PutOptions{}))

	rc, err := fc.Get(ctx, "product/ct/P1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestFileCacheConditionalPut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fc := NewFileCache(t.TempDir())

	cond := PutOptions{Condition: PutIfNoneMatch}
	require.NoError(t, fc.Put(ctx, "site/ct", "first", cond))
	assert.ErrorIs(t, fc.Put(ctx, "site/ct", "second", cond), ErrAlreadyExists)

	// Unconditional put still overwrites.
	require.NoError(t, fc.Put(ctx, "site/ct", "third", PutOptions{}))
	rc, err := fc.Get(ctx, "site/ct")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "third", string(data))
}

func TestFileCacheList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fc := NewFileCache(t.TempDir())

	for _, key := range []string{"category/ct/B", "category/ct/A", "category/other/C", "site/ct"} {
		require.NoError(t, fc.Put(ctx, key, "{}", PutOptions{}))
	}

	keys, err := fc.List(ctx, "category/ct/")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, keys)

	empty, err := fc.List(ctx, "nothing/")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
