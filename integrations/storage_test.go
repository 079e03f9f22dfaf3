package integrations

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads/")

	url, err := store.Save(context.Background(), "jobs/j1/p1.jpg", strings.NewReader("jpeg bytes"), 10, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/jobs/j1/p1.jpg", url)

	raw, err := os.ReadFile(filepath.Join(dir, "jobs", "j1", "p1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(raw))
}

func TestLocalStoreStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads")

	url, err := store.Save(context.Background(), "../../escape.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.png", url)
	assert.FileExists(t, filepath.Join(dir, "escape.png"))
}
