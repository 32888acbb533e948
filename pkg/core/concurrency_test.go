package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tack/pkg/core"
)

func TestService_InsertImageCleanupKeepsPastedImage(t *testing.T) {
	svc, _, images := setupService(t)
	ctx := context.Background()

	n, err := svc.CreateNote(ctx, "a", "")
	require.NoError(t, err)

	t.Run("Pasted Before", func(t *testing.T) {
		pasted, err := svc.PasteImage(ctx, []byte("clipboard"))
		require.NoError(t, err)

		_, err = svc.InsertImage(ctx, n.ID, 99, []byte("clipboard"))
		require.Error(t, err)

		ok, err := images.Exists(ctx, pasted.ID)
		require.NoError(t, err)
		assert.True(t, ok, "another caller's paste survives the failed insert")
	})

	t.Run("Written By The Failed Insert", func(t *testing.T) {
		_, err := svc.InsertImage(ctx, n.ID, 99, []byte("fresh"))
		require.Error(t, err)

		ids, err := images.List(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 1, "the image written for the failed insert is removed")
	})
}

// runWithin fails the test when fn does not return before timeout.
func runWithin(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("operations did not finish within %v", timeout)
	}
}

func TestService_ConcurrentCrossNoteOperations(t *testing.T) {
	svc, storage, _ := setupService(t)
	ctx := context.Background()

	album, err := svc.CreateNote(ctx, "album", "")
	require.NoError(t, err)
	journal, err := svc.CreateNote(ctx, "journal", "")
	require.NoError(t, err)

	const rounds = 200
	var (
		mu        sync.Mutex
		lastTitle string
		inserted  int
	)

	runWithin(t, 20*time.Second, func() {
		var wg sync.WaitGroup
		wg.Add(4)

		// Images go into one note while notes sharing an image come and go.
		go func() {
			defer wg.Done()
			for i := range rounds {
				if _, err := svc.InsertImage(ctx, album.ID, 0, fmt.Appendf(nil, "photo-%d", i)); err != nil {
					t.Errorf("insert image: %v", err)
					return
				}
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for i := range rounds {
				scrap, err := svc.CreateNote(ctx, "scrap", "")
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if _, err := svc.InsertImage(ctx, scrap.ID, 0, fmt.Appendf(nil, "scrap-%d", i%5)); err != nil {
					t.Errorf("insert scrap image: %v", err)
					return
				}
				if err := svc.DeleteNote(ctx, scrap.ID); err != nil {
					t.Errorf("delete: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := range rounds {
				title := fmt.Sprintf("entry %d", i)
				if _, err := svc.UpdateNote(ctx, journal.ID, func(n *core.Note) error {
					n.Title = title
					return nil
				}); err != nil {
					t.Errorf("update: %v", err)
					return
				}
				mu.Lock()
				lastTitle = title
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for range rounds {
				err := svc.HandleEvent(ctx, core.Event{Type: core.EventModify, Resource: core.ResourceNotes})
				if err != nil && !errors.Is(err, context.Canceled) {
					t.Errorf("reload: %v", err)
					return
				}
			}
		}()
		wg.Wait()
	})
	require.NoError(t, svc.Close(ctx))

	reopened := core.NewService(core.Config{Storage: storage, Images: NewMockImages()})
	require.NoError(t, reopened.Open(ctx))

	got, err := reopened.GetNote(ctx, journal.ID)
	require.NoError(t, err)
	assert.Equal(t, lastTitle, got.Title, "acknowledged edit survived reloads")

	got, err = reopened.GetNote(ctx, album.ID)
	require.NoError(t, err)
	assert.Len(t, got.Document.ImageIDs(), inserted)

	notes, err := reopened.ListNotes(ctx, core.SortCreatedAsc)
	require.NoError(t, err)
	assert.Len(t, notes, 2, "every scrap note was deleted")
}
