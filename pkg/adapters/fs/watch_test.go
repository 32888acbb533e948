package fs_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tack/pkg/adapters/fs"
	"github.com/aretw0/tack/pkg/core"
)

func nextEvent(t *testing.T, events <-chan core.Event, timeout time.Duration) (core.Event, bool) {
	t.Helper()
	select {
	case e, ok := <-events:
		return e, ok
	case <-time.After(timeout):
		return core.Event{}, false
	}
}

func TestWatch(t *testing.T) {
	t.Run("Reports External Edits Only", func(t *testing.T) {
		store, dir := setupStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := store.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, store.SaveSession(ctx, []string{"mine"}))
		if e, ok := nextEvent(t, events, 300*time.Millisecond); ok {
			t.Fatalf("own write reported: %v", e)
		}

		external := `{"open_note_ids": ["theirs"]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(external), 0644))

		e, ok := nextEvent(t, events, 2*time.Second)
		require.True(t, ok, "expected an event for the external edit")
		assert.Equal(t, core.EventModify, e.Type)
		assert.Equal(t, core.ResourceSession, e.Resource)
	})

	t.Run("Reports Deletes And Images", func(t *testing.T) {
		store, dir := setupStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, store.SaveGeometry(ctx, map[string]core.Geometry{}))
		events, err := store.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(dir, "positions.json")))
		e, ok := nextEvent(t, events, 2*time.Second)
		require.True(t, ok)
		assert.Equal(t, core.EventDelete, e.Type)
		assert.Equal(t, core.ResourceGeometry, e.Resource)

		data := pngBytes(t, 2, 2, color.White)
		other := setupOther(t, dir)
		info, err := other.Images().Put(ctx, data)
		require.NoError(t, err)

		e, ok = nextEvent(t, events, 2*time.Second)
		require.True(t, ok)
		assert.Equal(t, core.ResourceImages, e.Resource)
		assert.Equal(t, info.ID, e.ID)
	})

	t.Run("Closes On Cancel", func(t *testing.T) {
		store, _ := setupStore(t)
		ctx, cancel := context.WithCancel(context.Background())

		events, err := store.Watch(ctx)
		require.NoError(t, err)
		cancel()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("event channel not closed after cancel")
			}
		}
	})
}

// setupOther opens a second store on dir, standing in for another process.
func setupOther(t *testing.T, dir string) *fs.Store {
	t.Helper()
	return fs.NewStore(fs.Config{Path: dir})
}
