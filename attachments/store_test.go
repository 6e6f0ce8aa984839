package attachments

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accepted(t *testing.T, body []byte) *Accepted {
	t.Helper()
	a, err := NewValidator(0).Validate(upload("cat.png", body))
	require.NoError(t, err)
	return a
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads/", 0)
	data := pngBytes(t)

	stored, err := store.Save(context.Background(), "Ab3dE", accepted(t, data))
	require.NoError(t, err)
	assert.Equal(t, "uploads/Ab3dE.png", stored)

	onDisk, err := os.ReadFile(filepath.Join(dir, "Ab3dE.png"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
}

func TestLocalStoreNameCollision(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "uploads", 0)
	data := pngBytes(t)

	first, err := store.Save(context.Background(), "Ab3dE", accepted(t, data))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "Ab3dE", accepted(t, data))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "uploads/Ab3dE-"))
	assert.True(t, strings.HasSuffix(second, ".png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLocalStoreRejectsOversizeStream(t *testing.T) {
	dir := t.TempDir()
	data := append(pngBytes(t), bytes.Repeat([]byte{0}, 4096)...)
	store := NewLocalStore(dir, "uploads", int64(len(data)-1))

	_, err := store.Save(context.Background(), "big", accepted(t, data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must be removed")
}

func TestLocalStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "uploads", 0)

	stored, err := store.Save(context.Background(), "gone", accepted(t, pngBytes(t)))
	require.NoError(t, err)

	require.NoError(t, store.Remove(stored))
	_, err = os.Stat(filepath.Join(dir, "gone.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(stored), "removing twice is not an error")
}

func TestLocalStoreHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalStore(t.TempDir(), "uploads", 0).Save(ctx, "x", accepted(t, pngBytes(t)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeBase(t *testing.T) {
	assert.Equal(t, "etcpasswd", safeBase("../../etc/passwd"))
	assert.Equal(t, "Ab_3-x", safeBase("Ab_3-x"))
	assert.NotEmpty(t, safeBase("../"))
}

func TestLocalStoreStale(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "uploads", 0)

	stale, err := NewLocalStore(filepath.Join(dir, "missing"), "uploads", 0).Stale(time.Now())
	require.NoError(t, err)
	assert.Empty(t, stale)

	stored, err := store.Save(context.Background(), "old", accepted(t, pngBytes(t)))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	stale, err = store.Stale(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)

	stale, err = store.Stale(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{stored}, stale)
}
