package sm2

import (
	"encoding"
	"fmt"
	"strconv"
	"strings"
)

// Score is the user's judgement of how well a card was recalled.
type Score int

const (
	Again Score = iota + 1 // Failed to recall.
	Hard                   // Recalled with significant difficulty.
	Good                   // Recalled with some effort.
	Easy                   // Recalled effortlessly.
)

// Scores lists every valid score, worst to best.
var Scores = []Score{Again, Hard, Good, Easy}

var scoreNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

var (
	_ fmt.Stringer             = Score(0)
	_ encoding.TextMarshaler   = Score(0)
	_ encoding.TextUnmarshaler = (*Score)(nil)
)

// IsValid reports whether s is one of Again, Hard, Good or Easy.
func (s Score) IsValid() bool {
	return s >= Again && s <= Easy
}

func (s Score) String() string {
	if s.IsValid() {
		return scoreNames[s]
	}
	return fmt.Sprintf("Score(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Score) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScore, int(s))
	}
	return []byte(scoreNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Score) UnmarshalText(text []byte) error {
	v, err := ParseScore(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseScore accepts a score name in any case ("good", "Good") or its
// ordinal ("1" for Again through "4" for Easy).
func ParseScore(text string) (Score, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if s := Score(n); s.IsValid() {
			return s, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, text)
	}
	for _, s := range Scores {
		if strings.EqualFold(text, scoreNames[s]) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidScore, text)
}
