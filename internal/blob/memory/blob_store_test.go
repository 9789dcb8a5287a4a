package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectReturnsURI(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	uri, err := s.PutObject(context.Background(), "pages/a/abc.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "memory://pages/a/abc.html", uri)

	data, ok := s.GetObject("pages/a/abc.html")
	require.True(t, ok)
	require.Equal(t, []byte("<html/>"), data)
}

func TestPutObjectCopiesData(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	payload := []byte("original")
	_, err := s.PutObject(context.Background(), "p", "text/html", payload)
	require.NoError(t, err)

	payload[0] = 'X'
	data, ok := s.GetObject("p")
	require.True(t, ok)
	require.Equal(t, []byte("original"), data)
}
