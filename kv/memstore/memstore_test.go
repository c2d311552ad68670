package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsentinel/meetsentinel/kv"
	"github.com/meetsentinel/meetsentinel/kv/memstore"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", []byte("v1")))

		val, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), val)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", []byte("v2")))

		val, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), val)
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		val, err := s.Get(ctx, "k")
		require.NoError(t, err)

		val[0] = 'x'

		again, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), again)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("remove missing is not an error", func(t *testing.T) {
		assert.NoError(t, s.Remove(ctx, "never-there"))
	})
}
