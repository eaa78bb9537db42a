package sm2

import (
	"encoding"
	"fmt"
	"math"
	"strings"
	"time"
)

// State is the learning stage of a card.
type State int

const (
	New        State = iota + 1 // Working through the initial learning steps.
	Learned                     // Graduated; reviewed on a growing interval.
	Relearning                  // Lapsed after being learned.
)

var stateNames = [...]string{New: "New", Learned: "Learned", Relearning: "Relearning"}

var (
	_ encoding.TextMarshaler   = State(0)
	_ encoding.TextUnmarshaler = (*State)(nil)
)

func (s State) IsValid() bool {
	return s >= New && s <= Relearning
}

func (s State) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: state %d", ErrInvalidSchedule, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseState parses a state name, ignoring case.
func ParseState(text string) (State, error) {
	for s := New; s <= Relearning; s++ {
		if strings.EqualFold(strings.TrimSpace(text), stateNames[s]) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: state %q", ErrInvalidSchedule, text)
}

// Schedule is the scheduling state of a single card.
type Schedule struct {
	Interval float64    `json:"interval"` // days; meaningful once the card has left New
	Ease     float64    `json:"ease"`
	State    State      `json:"state"`
	Steps    uint       `json:"steps"`
	Due      *time.Time `json:"due,omitempty"` // nil until the card is first scored
}

// NewSchedule returns the schedule of a card that has never been reviewed.
func NewSchedule(p Params) Schedule {
	return Schedule{
		Interval: 1.0,
		Ease:     p.DefaultEase,
		State:    New,
		Steps:    0,
	}
}

// IsDue reports whether the card should be surfaced at now. A card that was
// never scored is always due.
func (s Schedule) IsDue(now time.Time) bool {
	return s.Due == nil || !now.Before(*s.Due)
}

func (s Schedule) clone() Schedule {
	out := s
	if s.Due != nil {
		due := *s.Due
		out.Due = &due
	}
	return out
}

func (s Schedule) validate() error {
	if !s.State.IsValid() {
		return fmt.Errorf("%w: state %d", ErrInvalidSchedule, int(s.State))
	}
	if math.IsNaN(s.Interval) || math.IsInf(s.Interval, 0) || s.Interval <= 0 {
		return fmt.Errorf("%w: interval %v", ErrInvalidSchedule, s.Interval)
	}
	if math.IsNaN(s.Ease) || math.IsInf(s.Ease, 0) || s.Ease <= 0 {
		return fmt.Errorf("%w: ease %v", ErrInvalidSchedule, s.Ease)
	}
	return nil
}
