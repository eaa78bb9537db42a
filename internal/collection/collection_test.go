package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x")
	_, err = New(file)
	assert.Error(t, err)
}

func TestDecks(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.CreateDeck("spanish"))
	require.NoError(t, c.CreateDeck("geography"))
	require.NoError(t, os.Mkdir(filepath.Join(c.Root(), ".git"), 0o755))
	writeFile(t, filepath.Join(c.Root(), "README.md"), "not a deck")

	decks, err := c.Decks()
	require.NoError(t, err)
	assert.Equal(t, []string{"geography", "spanish"}, decks)
}

func TestCreateDeck(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.CreateDeck("geo"))

	assert.ErrorIs(t, c.CreateDeck("geo"), ErrDeckExists)
	for _, name := range []string{"", ".", "..", ".hidden", "a/b", `a\b`} {
		assert.ErrorIs(t, c.CreateDeck(name), ErrInvalidName, "name %q", name)
	}
}

func TestNotes(t *testing.T) {
	c := newTestCollection(t)
	deck := filepath.Join(c.Root(), "geo")
	writeFile(t, filepath.Join(deck, "a1_basic.md"), "# Front\nQ\n")
	writeFile(t, filepath.Join(deck, "b2.md"), "# Front\nQ\n")
	writeFile(t, filepath.Join(deck, "c3_cloze_deletion.md"), "# Front\nQ\n")
	writeFile(t, filepath.Join(deck, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(deck, "_orphan.md"), "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(deck, "sub.md"), 0o755))

	notes, err := c.Notes("geo")
	require.NoError(t, err)
	assert.Equal(t, []domain.Note{
		{NoteID: "a1", DeckID: "geo", Template: "basic", File: "a1_basic.md"},
		{NoteID: "b2", DeckID: "geo", Template: domain.DefaultTemplate, File: "b2.md"},
		{NoteID: "c3", DeckID: "geo", Template: "cloze_deletion", File: "c3_cloze_deletion.md"},
	}, notes)

	_, err = c.Notes("missing")
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestCards(t *testing.T) {
	c := newTestCollection(t)
	writeFile(t, filepath.Join(c.Root(), "geo", "a1_basic.md"), "# Front\nQ\n")

	cards, err := c.Cards("geo")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "geo/a1/1", cards[0].Key())
	assert.Equal(t, "basic", cards[0].Template)
}

func TestCreateAndReadNote(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.CreateDeck("geo"))

	fields := domain.Fields{"Front": "Capital of France?", "Back": "Paris"}
	note, err := c.CreateNote("geo", "", fields)
	require.NoError(t, err)
	assert.NotEmpty(t, note.NoteID)
	assert.Equal(t, domain.DefaultTemplate, note.Template)
	assert.FileExists(t, filepath.Join(c.Root(), "geo", note.NoteID+"_basic.md"))

	found, err := c.FindNote("geo", note.NoteID)
	require.NoError(t, err)
	assert.Equal(t, note, found)

	got, err := c.ReadNote(found)
	require.NoError(t, err)
	assert.Equal(t, fields, got)

	other, err := c.CreateNote("geo", "basic", fields)
	require.NoError(t, err)
	assert.NotEqual(t, note.NoteID, other.NoteID)

	_, err = c.CreateNote("missing", "", fields)
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestNoteWithoutTemplateInFilename(t *testing.T) {
	c := newTestCollection(t)
	path := filepath.Join(c.Root(), "geo", "b2.md")
	writeFile(t, path, "# Front\nQ\n\n# Back\nA\n")

	note, err := c.FindNote("geo", "b2")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTemplate, note.Template)
	assert.Equal(t, path, c.NotePath(note))

	got, err := c.ReadNote(note)
	require.NoError(t, err)
	assert.Equal(t, domain.Fields{"Front": "Q", "Back": "A"}, got)

	updated := domain.Fields{"Front": "Q", "Back": "B"}
	require.NoError(t, c.UpdateNote(note, updated))
	got, err = c.ReadNote(note)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.NoFileExists(t, filepath.Join(c.Root(), "geo", "b2_basic.md"))
}

func TestUpdateNote(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.CreateDeck("geo"))
	note, err := c.CreateNote("geo", "", domain.Fields{"Front": "Q", "Back": "A"})
	require.NoError(t, err)

	updated := domain.Fields{"Front": "Q", "Back": "B"}
	require.NoError(t, c.UpdateNote(note, updated))

	got, err := c.ReadNote(note)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	missing := domain.Note{NoteID: "nope", DeckID: "geo", Template: "basic"}
	assert.ErrorIs(t, c.UpdateNote(missing, updated), ErrNoteNotFound)
}

func TestFindNoteNotFound(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.CreateDeck("geo"))

	_, err := c.FindNote("geo", "nope")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	_, err = c.ReadNote(domain.Note{NoteID: "nope", DeckID: "geo", Template: "basic"})
	assert.ErrorIs(t, err, ErrNoteNotFound)
}
