package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNotes []Note

func (s staticNotes) LoadNotes(context.Context) ([]Note, error) { return s, nil }
func (s staticNotes) SaveNotes(context.Context, []Note) error   { return nil }

func TestNoteRepository_IDCollisionRetries(t *testing.T) {
	repo := NewNoteRepository(staticNotes(nil), nil)
	queue := []string{"note-a", "note-a", "note-b"}
	repo.newID = func() (string, error) {
		id := queue[0]
		queue = queue[1:]
		return id, nil
	}

	a, err := repo.Create("a", "")
	require.NoError(t, err)
	b, err := repo.Create("b", "")
	require.NoError(t, err)

	assert.Equal(t, "note-a", a.ID)
	assert.Equal(t, "note-b", b.ID)
}

func TestNoteRepository_LoadRejectsDuplicates(t *testing.T) {
	n := Note{ID: "x", Title: "x", Color: DefaultColor, Opacity: 1}
	repo := NewNoteRepository(staticNotes{n, n}, nil)

	err := repo.Load(context.Background())
	assert.True(t, errors.Is(err, ErrCorruptStore))
	assert.Equal(t, 0, repo.Len())
}

func TestNoteRepository_SearchKeepsListOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := NewNoteRepository(staticNotes(nil), nil)
	for i, title := range []string{"Shopping list", "Work", "shopping ideas"} {
		_, err := repo.Insert(Note{ID: title, Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	got := repo.Search("SHOPPING", SortCreatedDesc)
	require.Len(t, got, 2)
	assert.Equal(t, "shopping ideas", got[0].ID)
	assert.Equal(t, "Shopping list", got[1].ID)

	byTitle := repo.List(SortTitle)
	assert.Equal(t, "shopping ideas", byTitle[0].ID)

	_, err := repo.Insert(Note{ID: "Work"})
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortCreatedDesc, o)

	_, err = ParseSortOrder("random")
	assert.True(t, errors.Is(err, ErrInvalidNote))
}

func TestNoteRepository_CommitRejectsStaleCopy(t *testing.T) {
	repo := NewNoteRepository(staticNotes(nil), nil)
	n, err := repo.Create("draft", "")
	require.NoError(t, err)

	_, next, version, err := repo.Prepare(n.ID, func(n *Note) error {
		n.Title = "from window one"
		return nil
	})
	require.NoError(t, err)

	_, err = repo.Update(n.ID, func(n *Note) error {
		n.Title = "from window two"
		return nil
	})
	require.NoError(t, err)

	_, err = repo.Commit(n.ID, next, version)
	assert.ErrorIs(t, err, errStale)
	got, err := repo.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "from window two", got.Title)

	_, next, version, err = repo.Prepare(n.ID, func(n *Note) error {
		n.Title = "retried"
		return nil
	})
	require.NoError(t, err)
	_, err = repo.Delete(n.ID)
	require.NoError(t, err)
	_, err = repo.Commit(n.ID, next, version)
	assert.ErrorIs(t, err, ErrNotFound)
}

// gatedNotes blocks LoadNotes until release is closed.
type gatedNotes struct {
	notes   []Note
	entered chan struct{}
	release chan struct{}
}

func (g *gatedNotes) LoadNotes(context.Context) ([]Note, error) {
	close(g.entered)
	<-g.release
	return g.notes, nil
}

func (g *gatedNotes) SaveNotes(context.Context, []Note) error { return nil }

func TestNoteRepository_ReloadKeepsConcurrentEdit(t *testing.T) {
	stored := Note{ID: "n1", Title: "on disk", Color: DefaultColor, Opacity: 1}
	storage := &gatedNotes{
		notes:   []Note{stored},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo := NewNoteRepository(storage, nil)
	_, err := repo.Insert(Note{ID: "n1", Title: "in memory"})
	require.NoError(t, err)
	require.NoError(t, repo.Flush(context.Background()))

	type result struct {
		loaded bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		loaded, err := repo.Reload(context.Background())
		done <- result{loaded, err}
	}()

	<-storage.entered
	_, err = repo.Update("n1", func(n *Note) error {
		n.Title = "typed while reading"
		return nil
	})
	require.NoError(t, err)
	close(storage.release)

	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.loaded)
	got, err := repo.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "typed while reading", got.Title)
}

func TestNoteRepository_ReloadWithoutEditsReplaces(t *testing.T) {
	repo := NewNoteRepository(staticNotes{{ID: "n1", Title: "on disk", Color: DefaultColor, Opacity: 1}}, nil)
	_, err := repo.Insert(Note{ID: "n2", Title: "gone"})
	require.NoError(t, err)
	require.NoError(t, repo.Flush(context.Background()))

	loaded, err := repo.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.False(t, repo.Has("n2"))
	assert.True(t, repo.Has("n1"))
}

func TestNoteRepository_ReloadKeepsUnsavedEdit(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(staticNotes{{ID: "n1", Title: "on disk", Color: DefaultColor, Opacity: 1}}, nil)
	require.NoError(t, repo.Load(ctx))

	_, err := repo.Update("n1", func(n *Note) error {
		n.Title = "not written yet"
		return nil
	})
	require.NoError(t, err)

	loaded, err := repo.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, loaded, "memory ahead of the file is kept")
	got, err := repo.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "not written yet", got.Title)

	require.NoError(t, repo.Flush(ctx))
	loaded, err = repo.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func TestNoteRepository_LoadNormalizesTitle(t *testing.T) {
	repo := NewNoteRepository(staticNotes{
		{ID: "blank", Title: "", Color: DefaultColor, Opacity: 1},
		{ID: "padded", Title: "  Groceries  ", Color: DefaultColor, Opacity: 1},
	}, nil)
	require.NoError(t, repo.Load(context.Background()))

	blank, err := repo.Get("blank")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, blank.Title)
	padded, err := repo.Get("padded")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", padded.Title)
}

// gatedGeometry blocks LoadGeometry until release is closed.
type gatedGeometry struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGeometry) LoadGeometry(context.Context) (map[string]Geometry, error) {
	close(g.entered)
	<-g.release
	return map[string]Geometry{}, nil
}

func (g *gatedGeometry) SaveGeometry(context.Context, map[string]Geometry) error { return nil }

func TestGeometryStore_ReloadKeepsConcurrentEdit(t *testing.T) {
	storage := &gatedGeometry{entered: make(chan struct{}), release: make(chan struct{})}
	geo := NewGeometryStore(storage, DefaultScreen)

	done := make(chan bool, 1)
	go func() {
		loaded, _ := geo.Reload(context.Background())
		done <- loaded
	}()
	<-storage.entered
	require.NoError(t, geo.Set("n1", Geometry{X: 5, Y: 5, Width: 200, Height: 200}))
	close(storage.release)

	assert.False(t, <-done)
	_, ok := geo.Lookup("n1")
	assert.True(t, ok)
}

// gatedSession blocks LoadSession until release is closed.
type gatedSession struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSession) LoadSession(context.Context) ([]string, error) {
	close(g.entered)
	<-g.release
	return nil, nil
}

func (g *gatedSession) SaveSession(context.Context, []string) error { return nil }

func TestSessionManager_ReloadKeepsConcurrentEdit(t *testing.T) {
	storage := &gatedSession{entered: make(chan struct{}), release: make(chan struct{})}
	session := NewSessionManager(storage)

	done := make(chan bool, 1)
	go func() {
		loaded, _ := session.Reload(context.Background())
		done <- loaded
	}()
	<-storage.entered
	assert.True(t, session.MarkOpen("n1"))
	close(storage.release)

	assert.False(t, <-done)
	assert.Equal(t, []string{"n1"}, session.IDs())
}
