package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedStoreBehavesLikeAStore(t *testing.T) {
	exerciseStore(t, NewCachedStore(NewMemoryStore(), CacheConfig{}))
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	origin := NewMemoryStore()
	require.NoError(t, origin.Put(ctx, "r1", "a.txt", []byte("hello")))

	s := NewCachedStore(origin, DefaultCacheConfig())
	for i := 0; i < 3; i++ {
		got, err := s.Get(ctx, "r1", "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	}
	_, err := s.List(ctx, "r1")
	require.NoError(t, err)
	_, err = s.List(ctx, "r1")
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.BlobMisses)
	assert.Equal(t, uint64(2), st.BlobHits)
	assert.Equal(t, uint64(1), st.ListMisses)
	assert.Equal(t, uint64(1), st.ListHits)

	// A write invalidates the cached listing.
	require.NoError(t, s.Put(ctx, "r1", "b.txt", []byte("b")))
	list, err := s.List(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, list)
	assert.Equal(t, uint64(2), s.Stats().ListMisses)

	got, err := s.Get(ctx, "r1", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
	assert.Equal(t, uint64(3), s.Stats().BlobHits)
}

func TestCachedStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewCachedStore(NewMemoryStore(), CacheConfig{})
	require.NoError(t, s.Put(ctx, "r1", "a.txt", []byte("abc")))
	got, err := s.Get(ctx, "r1", "a.txt")
	require.NoError(t, err)
	got[0] = 'X'
	again, err := s.Get(ctx, "r1", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
