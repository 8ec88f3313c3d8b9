package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDocumentStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalDocumentStore(dir, "/uploads/")
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	url, err := s.Save(ctx, "Aadhaar.PNG", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored := filepath.Join(dir, filepath.Base(url))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	// already gone and foreign URLs are ignored
	assert.NoError(t, s.Delete(ctx, url))
	assert.NoError(t, s.Delete(ctx, "https://example.com/x.png"))
}
