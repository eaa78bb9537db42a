// Package collection manages decks and notes on disk.
//
// A collection is a directory; each deck is a sub-directory and each note is
// a markdown file named <note_id>_<template>.md inside its deck. A file named
// <note_id>.md is a note with the default template.
package collection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/parser"
)

var (
	ErrInvalidName  = errors.New("invalid name")
	ErrDeckNotFound = errors.New("deck not found")
	ErrDeckExists   = errors.New("deck already exists")
	ErrNoteNotFound = errors.New("note not found")
)

const noteExt = ".md"

var noteFilename = regexp.MustCompile(`^([^_]*)_?(.*)\.md$`)

// Collection is a directory of decks.
type Collection struct {
	root string
}

// New returns a Collection rooted at dir. The directory must already exist.
func New(dir string) (*Collection, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: collection path is empty", ErrInvalidName)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open collection %s: not a directory", dir)
	}
	return &Collection{root: dir}, nil
}

// Root returns the collection directory.
func (c *Collection) Root() string {
	return c.root
}

// Decks lists the deck names in the collection, sorted. Hidden directories
// such as .git are skipped.
func (c *Collection) Decks() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks in %s: %w", c.root, err)
	}

	var decks []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			decks = append(decks, e.Name())
		}
	}
	sort.Strings(decks)
	return decks, nil
}

// CreateDeck creates an empty deck.
func (c *Collection) CreateDeck(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Mkdir(c.deckPath(name), 0o755)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDeckExists, name)
	}
	if err != nil {
		return fmt.Errorf("failed to create deck %s: %w", name, err)
	}
	return nil
}

// Notes lists the notes of a deck, ordered by file name.
func (c *Collection) Notes(deck string) ([]domain.Note, error) {
	if err := c.checkDeck(deck); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(c.deckPath(deck))
	if err != nil {
		return nil, fmt.Errorf("failed to list notes in deck %s: %w", deck, err)
	}

	var notes []domain.Note
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if note, ok := noteFromFilename(deck, e.Name()); ok {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

// Cards lists the cards of a deck, one per note.
func (c *Collection) Cards(deck string) ([]domain.Card, error) {
	notes, err := c.Notes(deck)
	if err != nil {
		return nil, err
	}
	cards := make([]domain.Card, 0, len(notes))
	for _, n := range notes {
		cards = append(cards, domain.CardFor(n))
	}
	return cards, nil
}

// FindNote resolves a note id within a deck to its note, including the
// template encoded in the file name.
func (c *Collection) FindNote(deck, noteID string) (domain.Note, error) {
	notes, err := c.Notes(deck)
	if err != nil {
		return domain.Note{}, err
	}
	for _, n := range notes {
		if n.NoteID == noteID {
			return n, nil
		}
	}
	return domain.Note{}, fmt.Errorf("%w: %s/%s", ErrNoteNotFound, deck, noteID)
}

// ReadNote returns the fields of a note.
func (c *Collection) ReadNote(note domain.Note) (domain.Fields, error) {
	fields, err := parser.ParseFile(c.NotePath(note))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoteNotFound, note.DeckID, note.NoteID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note %s/%s: %w", note.DeckID, note.NoteID, err)
	}
	return fields, nil
}

// CreateNote writes a new note with a freshly generated id and returns it.
func (c *Collection) CreateNote(deck, template string, fields domain.Fields) (domain.Note, error) {
	if err := c.checkDeck(deck); err != nil {
		return domain.Note{}, err
	}
	if template == "" {
		template = domain.DefaultTemplate
	}
	if err := validateName(template); err != nil {
		return domain.Note{}, err
	}

	id := uuid.NewString()
	note := domain.Note{
		NoteID:   id,
		DeckID:   deck,
		Template: template,
		File:     id + "_" + template + noteExt,
	}
	if err := c.writeNote(note, fields, os.O_CREATE|os.O_EXCL|os.O_WRONLY); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// UpdateNote replaces the fields of an existing note.
func (c *Collection) UpdateNote(note domain.Note, fields domain.Fields) error {
	if _, err := os.Stat(c.NotePath(note)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", ErrNoteNotFound, note.DeckID, note.NoteID)
	}
	return c.writeNote(note, fields, os.O_TRUNC|os.O_WRONLY)
}

// NotePath returns the file backing a note. Notes listed from disk keep the
// file they were found in; otherwise the name is built from id and template.
func (c *Collection) NotePath(note domain.Note) string {
	if note.File != "" {
		return filepath.Join(c.deckPath(note.DeckID), note.File)
	}
	name := note.NoteID
	if note.Template != "" {
		name += "_" + note.Template
	}
	return filepath.Join(c.deckPath(note.DeckID), name+noteExt)
}

func (c *Collection) writeNote(note domain.Note, fields domain.Fields, flag int) error {
	f, err := os.OpenFile(c.NotePath(note), flag, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open note %s/%s: %w", note.DeckID, note.NoteID, err)
	}
	if _, err := f.WriteString(parser.Format(fields)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write note %s/%s: %w", note.DeckID, note.NoteID, err)
	}
	return f.Close()
}

func (c *Collection) deckPath(deck string) string {
	return filepath.Join(c.root, deck)
}

func (c *Collection) checkDeck(deck string) error {
	if err := validateName(deck); err != nil {
		return err
	}
	info, err := os.Stat(c.deckPath(deck))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, deck)
	}
	if err != nil {
		return fmt.Errorf("failed to open deck %s: %w", deck, err)
	}
	return nil
}

func noteFromFilename(deck, filename string) (domain.Note, bool) {
	m := noteFilename.FindStringSubmatch(filename)
	if m == nil || m[1] == "" {
		return domain.Note{}, false
	}
	template := m[2]
	if template == "" {
		template = domain.DefaultTemplate
	}
	return domain.Note{NoteID: m[1], DeckID: deck, Template: template, File: filename}, true
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
