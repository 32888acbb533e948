package platform_test

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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tack/internal/platform"
	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
)

func openApp(t *testing.T, dir string, opts ...platform.Option) *platform.App {
	t.Helper()
	app, err := platform.Open(context.Background(), dir, opts...)
	if err != nil {
		t.Fatalf("Failed to open data dir: %v", err)
	}
	return app
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(3, 3, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGroceriesSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")

	app := openApp(t, dir, platform.WithDebounce(time.Hour), platform.WithMaxDelay(time.Hour))
	n, err := app.CreateNote(ctx, "Groceries", "")
	require.NoError(t, err)

	_, err = app.UpdateNote(ctx, n.ID, func(n *core.Note) error {
		doc, err := n.Document.InsertText(0, "Milk\nEggs")
		if err != nil {
			return err
		}
		doc, err = doc.Apply(document.Range{Start: 0, End: 4}, document.SetBold(true))
		if err != nil {
			return err
		}
		n.Document = doc
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, app.MarkOpen(ctx, n.ID))
	require.NoError(t, app.Close(ctx), "Close must flush pending autosaves")

	reopened := openApp(t, dir)
	defer reopened.Close(ctx)

	open, err := reopened.OpenSession(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	got := open[0]
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "Milk\nEggs", got.Document.PlainText())
	assert.True(t, got.Document.FormatAt(0).Bold, "first line is bold")
	assert.True(t, got.Document.FormatAt(3).Bold)
	assert.False(t, got.Document.FormatAt(5).Bold, "second line is not")

	geom, err := reopened.GetGeometry(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultWidth, geom.Width)
}

func TestSharedImageIsStoredOnce(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")
	app := openApp(t, dir, platform.WithAutosave(false))
	defer app.Close(ctx)

	data := pngBytes(t)
	a, err := app.CreateNote(ctx, "A", "Blue")
	require.NoError(t, err)
	b, err := app.CreateNote(ctx, "B", "")
	require.NoError(t, err)

	a, err = app.InsertImage(ctx, a.ID, 0, data)
	require.NoError(t, err)
	b, err = app.InsertImage(ctx, b.ID, 0, data)
	require.NoError(t, err)

	require.Len(t, a.Document.ImageIDs(), 1)
	assert.Equal(t, a.Document.ImageIDs(), b.Document.ImageIDs())
	assert.Equal(t, core.Color("#99CCFF"), a.Color)

	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	imageID := a.Document.ImageIDs()[0]
	require.NoError(t, app.DeleteNote(ctx, a.ID))
	_, err = app.Image(ctx, imageID)
	require.NoError(t, err, "image still used by B")

	require.NoError(t, app.DeleteNote(ctx, b.ID))
	_, err = app.Image(ctx, imageID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWriteFailureStaysDirtyUntilRetry(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")
	app := openApp(t, dir,
		platform.WithDebounce(time.Hour),
		platform.WithMaxDelay(time.Hour),
		platform.WithRetryDelay(time.Hour),
	)
	defer app.Close(ctx)

	// A directory where notes.json should go makes the rename fail even
	// for privileged users.
	blocker := filepath.Join(dir, "notes.json")
	require.NoError(t, os.Mkdir(blocker, 0755))

	_, err := app.CreateNote(ctx, "Draft", "")
	require.NoError(t, err)

	err = app.Flush(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrWriteFailure), "got %v", err)
	assert.Equal(t, core.KindWriteFailure, core.KindOf(err))

	state := app.State().(core.ServiceState)
	assert.True(t, state.Dirty[core.ResourceNotes])

	require.NoError(t, os.Remove(blocker))
	require.NoError(t, app.Flush(ctx))

	state = app.State().(core.ServiceState)
	assert.False(t, state.Dirty[core.ResourceNotes])

	_, err = os.Stat(blocker)
	assert.NoError(t, err, "notes.json written after retry")
}

func TestCorruptNotesFile(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{not json"), 0644))

	_, err := platform.Open(ctx, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCorruptStore)

	app := openApp(t, dir, platform.WithRecoverCorrupt(true))
	defer app.Close(ctx)

	notes, err := app.ListNotes(ctx, core.SortCreatedDesc)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Contains(t, app.Quarantined(), core.ResourceNotes)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")

	app := openApp(t, dir, platform.WithAutosave(false))
	_, err := app.CreateNote(ctx, "Keep", "")
	require.NoError(t, err)
	require.NoError(t, app.Close(ctx))

	ro := openApp(t, dir, platform.WithReadOnly(true))
	defer ro.Close(ctx)

	notes, err := ro.ListNotes(ctx, core.SortCreatedDesc)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = ro.CreateNote(ctx, "Nope", "")
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestWatchReloadsExternalEdits(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tack")

	writer := openApp(t, dir, platform.WithAutosave(false))
	defer writer.Close(ctx)

	changes := make(chan core.Event, 16)
	watcher := openApp(t, dir,
		platform.WithAutosave(false),
		platform.WithWatch(true),
		platform.WithChangeHandler(func(e core.Event) {
			select {
			case changes <- e:
			default:
			}
		}),
	)
	defer watcher.Close(ctx)

	n, err := writer.CreateNote(ctx, "From elsewhere", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := watcher.GetNote(ctx, n.ID)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	select {
	case e := <-changes:
		assert.Equal(t, core.ResourceNotes, e.Resource)
	case <-time.After(time.Second):
		t.Fatal("change handler not called")
	}
}
