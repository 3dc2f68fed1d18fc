package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u, err := s.Upload(ctx, "/projects/p1/f1/a.md", []byte("hello"), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "mem://projects/p1/f1/a.md", u)

	got, err := s.Fetch(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, s.Delete(ctx, "projects/p1/f1/a.md"))
	_, err = s.Fetch(ctx, u)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDiskStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	u, err := s.Upload(ctx, "projects/p1/f1/docs/a.md", []byte("disk"), "text/markdown")
	require.NoError(t, err)
	assert.Contains(t, u, "file://")

	got, err := s.Fetch(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []byte("disk"), got)

	require.NoError(t, s.Delete(ctx, "projects/p1/f1/docs/a.md"))
	require.NoError(t, s.Delete(ctx, "projects/p1/f1/docs/a.md"))
	_, err = s.Fetch(ctx, u)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDiskStoreRejectsEscapes(t *testing.T) {
	ctx := context.Background()
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Upload(ctx, "../outside.md", []byte("x"), "")
	assert.Error(t, err)
	_, err = s.Fetch(ctx, "file:///etc/passwd")
	assert.Error(t, err)
	_, err = s.Fetch(ctx, "mem://a")
	assert.Error(t, err)
}

func TestCleanKey(t *testing.T) {
	key, err := cleanKey("  //a/b.md ")
	require.NoError(t, err)
	assert.Equal(t, "a/b.md", key)

	_, err = cleanKey("")
	assert.Error(t, err)
	_, err = cleanKey("a/../b")
	assert.Error(t, err)
}

func TestS3ConfigComplete(t *testing.T) {
	assert.False(t, S3Config{Endpoint: "localhost:9000"}.Complete())
	assert.True(t, S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "c"}.Complete())
}

func TestS3StoreURLMapping(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "wizard"})
	require.NoError(t, err)

	u := s.objectURL("projects/p1/f1/a.md")
	assert.Equal(t, "http://localhost:9000/wizard/projects/p1/f1/a.md", u)

	key, err := s.keyFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/f1/a.md", key)

	_, err = s.keyFromURL("http://localhost:9000/other/a.md")
	assert.Error(t, err)
}
