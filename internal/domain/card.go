package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/knoldeck/internal/sm2"
)

// DefaultTemplate is used for notes whose file name carries no template.
const DefaultTemplate = "basic"

// Fields holds a note's named markdown sections, e.g. "Front" and "Back".
type Fields map[string]string

// Note is a markdown file inside a deck, stored as <NoteID>_<Template>.md.
// A file named <NoteID>.md is a note with DefaultTemplate.
type Note struct {
	NoteID   string `json:"note_id"`
	DeckID   string `json:"deck_id"`
	Template string `json:"template"`
	// File is the name of the backing file when the note was read from disk.
	File string `json:"-"`
}

// Card is a single reviewable item derived from a note.
// Every note currently produces exactly one card, numbered 1.
type Card struct {
	Note
	CardNum int `json:"card_num"`
}

// CardFor returns the card derived from a note.
func CardFor(n Note) Card {
	return Card{Note: n, CardNum: 1}
}

// Key identifies the card in the review log: deck/note/num.
func (c Card) Key() string {
	return fmt.Sprintf("%s/%s/%d", c.DeckID, c.NoteID, c.CardNum)
}

// ParseKey splits a key produced by Card.Key. The template is not part of
// the key and is left empty.
func ParseKey(key string) (Card, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Card{}, fmt.Errorf("malformed card key %q", key)
	}
	num, err := strconv.Atoi(parts[2])
	if err != nil || num < 1 {
		return Card{}, fmt.Errorf("malformed card number in key %q", key)
	}
	return Card{Note: Note{DeckID: parts[0], NoteID: parts[1]}, CardNum: num}, nil
}

// ReviewLog records a single review event for a card together with the
// schedule it produced. Entries are immutable once written.
type ReviewLog struct {
	ID          int64        `json:"id"`
	CardKey     string       `json:"card_key"`
	Score       sm2.Score    `json:"score"`
	ReviewedAt  time.Time    `json:"reviewed_at"`
	ContentHash string       `json:"content_hash,omitempty"` // hash of the note fields at review time
	Schedule    sm2.Schedule `json:"schedule"`
}

// DueCard pairs a card with the schedule that made it due.
type DueCard struct {
	Card     Card         `json:"card"`
	Schedule sm2.Schedule `json:"schedule"`
	Reviewed bool         `json:"reviewed"` // false for cards never scored
}
