package fs_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tack/pkg/core"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImages(t *testing.T) {
	ctx := context.Background()

	t.Run("Put Is Content Addressed", func(t *testing.T) {
		store, dir := setupStore(t)
		images := store.Images()
		data := pngBytes(t, 40, 20, color.RGBA{R: 200, A: 255})

		first, err := images.Put(ctx, data)
		require.NoError(t, err)
		second, err := images.Put(ctx, data)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.Created, "first put writes the file")
		assert.False(t, second.Created, "second put finds it stored")
		assert.Len(t, first.ID, 64)
		assert.Equal(t, 40, first.Width)
		assert.Equal(t, 20, first.Height)
		assert.Equal(t, "png", first.Format)
		assert.NotEmpty(t, first.Placeholder)

		entries, err := os.ReadDir(filepath.Join(dir, "images"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "identical bytes must be stored once")
	})

	t.Run("Different Bytes Get Different IDs", func(t *testing.T) {
		store, _ := setupStore(t)
		a, err := store.Images().Put(ctx, pngBytes(t, 8, 8, color.White))
		require.NoError(t, err)
		b, err := store.Images().Put(ctx, pngBytes(t, 8, 8, color.Black))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		ids, err := store.Images().List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	})

	t.Run("Rejects Non Images", func(t *testing.T) {
		store, _ := setupStore(t)
		for name, data := range map[string][]byte{
			"Empty": nil,
			"Text":  []byte("definitely not a picture"),
		} {
			t.Run(name, func(t *testing.T) {
				_, err := store.Images().Put(ctx, data)
				if !errors.Is(err, core.ErrInvalidImage) {
					t.Fatalf("expected ErrInvalidImage, got %v", err)
				}
			})
		}
	})

	t.Run("Get Returns Stored Bytes", func(t *testing.T) {
		store, _ := setupStore(t)
		data := pngBytes(t, 3, 3, color.White)
		info, err := store.Images().Put(ctx, data)
		require.NoError(t, err)

		got, err := store.Images().Get(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		stat, err := store.Images().Stat(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, info, stat)
	})

	t.Run("Unknown ID", func(t *testing.T) {
		store, _ := setupStore(t)
		_, err := store.Images().Get(ctx, "abc123")
		assert.ErrorIs(t, err, core.ErrNotFound)

		ok, err := store.Images().Exists(ctx, "abc123")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Rejects Path Traversal", func(t *testing.T) {
		store, dir := setupStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("x"), 0644))

		for _, id := range []string{"../secret", "a/b", "", ".."} {
			_, err := store.Images().Get(ctx, id)
			assert.ErrorIs(t, err, core.ErrInvalidID, "id %q", id)

			ok, err := store.Images().Exists(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok)
		}
		_, err := store.Images().Delete(ctx, "../secret")
		assert.ErrorIs(t, err, core.ErrInvalidID)
		_, err = os.Stat(filepath.Join(dir, "secret"))
		assert.NoError(t, err)
	})

	t.Run("Delete If Unreferenced", func(t *testing.T) {
		store, _ := setupStore(t)
		info, err := store.Images().Put(ctx, pngBytes(t, 5, 5, color.White))
		require.NoError(t, err)

		held := core.ReferenceFunc(func(id string) bool { return id == info.ID })
		removed, err := store.Images().DeleteIfUnreferenced(ctx, info.ID, held)
		require.NoError(t, err)
		assert.False(t, removed)

		free := core.ReferenceFunc(func(string) bool { return false })
		removed, err = store.Images().DeleteIfUnreferenced(ctx, info.ID, free)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Images().DeleteIfUnreferenced(ctx, info.ID, free)
		require.NoError(t, err)
		assert.False(t, removed, "second delete finds nothing")
	})

	t.Run("List Skips Foreign Files", func(t *testing.T) {
		store, dir := setupStore(t)
		root := filepath.Join(dir, "images")
		require.NoError(t, os.WriteFile(filepath.Join(root, "tack-tmp-123"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "weird name.png"), []byte("x"), 0644))

		ids, err := store.Images().List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Orphans", func(t *testing.T) {
		store, _ := setupStore(t)
		kept, err := store.Images().Put(ctx, pngBytes(t, 3, 3, color.White))
		require.NoError(t, err)
		lost, err := store.Images().Put(ctx, pngBytes(t, 3, 3, color.Black))
		require.NoError(t, err)

		refs := core.ReferenceFunc(func(id string) bool { return id == kept.ID })
		orphans, err := store.Images().Orphans(ctx, refs)
		require.NoError(t, err)
		assert.Equal(t, []string{lost.ID}, orphans)
	})
}
