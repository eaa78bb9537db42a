// Package sm2 implements an SM-2 family spaced-repetition scheduler.
//
// The scheduler is a pure function of its inputs: given a card's current
// Schedule, a Score and the review instant it returns the next Schedule.
// It performs no I/O and keeps no state between calls, so callers are
// responsible for reading the latest schedule, supplying the clock and
// persisting the result.
package sm2

import (
	"fmt"
	"math"
	"time"
)

const secondsPerDay = 86400

const (
	// unixToInternal is the offset between the Unix epoch and year 1, the
	// zero of time.Time's internal seconds counter.
	unixToInternal = 62135596800

	// maxUnix is the latest Unix second a time.Time can hold.
	maxUnix = math.MaxInt64 - unixToInternal

	// twoTo63 bounds the float64 offsets that convert to int64 exactly.
	twoTo63 = float64(1 << 63)
)

// Review is a single scored review, as recorded in a review log.
type Review struct {
	Score Score
	At    time.Time
}

// Scheduler advances card schedules using a fixed set of Params.
// A Scheduler is immutable and safe for concurrent use.
type Scheduler struct {
	params Params
}

// NewScheduler creates a Scheduler, rejecting parameters that fail validation.
func NewScheduler(params Params) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: params.clone()}, nil
}

// Default returns a Scheduler using DefaultParams.
func Default() *Scheduler {
	return &Scheduler{params: DefaultParams()}
}

// Params returns a copy of the scheduler's parameters.
func (s *Scheduler) Params() Params {
	return s.params.clone()
}

// NewSchedule returns the initial schedule for a card that was never reviewed.
func (s *Scheduler) NewSchedule() Schedule {
	return NewSchedule(s.params)
}

// Advance computes the schedule that follows scoring a card at now. The input
// schedule is not modified. If the next due instant cannot be represented,
// Advance returns ErrDueDateOverflow and a zero Schedule.
func (s *Scheduler) Advance(schedule Schedule, score Score, now time.Time) (Schedule, error) {
	if !score.IsValid() {
		return Schedule{}, fmt.Errorf("%w: %d", ErrInvalidScore, int(score))
	}
	if err := schedule.validate(); err != nil {
		return Schedule{}, err
	}

	next := schedule.clone()

	var (
		due time.Time
		err error
	)
	switch next.State {
	case New:
		due, err = s.advanceNew(&next, score, now)
	case Learned:
		due, err = s.advanceLearned(&next, score, now)
	case Relearning:
		due, err = s.advanceRelearning(&next, score, now)
	}
	if err != nil {
		return Schedule{}, err
	}

	next.Ease = max(next.Ease, s.params.MinimumEase)
	next.Due = &due
	return next, nil
}

// Preview returns the schedule each score would produce at now.
func (s *Scheduler) Preview(schedule Schedule, now time.Time) (map[Score]Schedule, error) {
	out := make(map[Score]Schedule, len(Scores))
	for _, score := range Scores {
		next, err := s.Advance(schedule, score, now)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", score, err)
		}
		out[score] = next
	}
	return out, nil
}

// Replay folds reviews, in order, through Advance starting from initial.
func (s *Scheduler) Replay(initial Schedule, reviews []Review) (Schedule, error) {
	current := initial
	for i, r := range reviews {
		next, err := s.Advance(current, r.Score, r.At)
		if err != nil {
			return Schedule{}, fmt.Errorf("replay review %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

func (s *Scheduler) advanceNew(next *Schedule, score Score, now time.Time) (time.Time, error) {
	p := &s.params
	// A step count past the configured steps would index beyond NewSteps.
	if last := uint(len(p.NewSteps)) - 1; next.Steps > last {
		next.Steps = last
	}
	switch score {
	case Easy:
		// The interval and the first due offset deliberately use different
		// constants: 4 days of interval, but the card is seen again tomorrow.
		next.State = Learned
		next.Interval = p.EasyInterval
		next.Steps = 0
		return addDays(now, p.GraduationInterval)
	case Again:
		next.Steps = 0
		return addStep(now, p.NewSteps[0])
	case Hard:
		return addStep(now, p.HardStep)
	default:
		next.Steps++
		if next.Steps >= uint(len(p.NewSteps)) {
			next.State = Learned
			next.Steps = 0
			return addDays(now, p.GraduationInterval)
		}
		return addStep(now, p.NewSteps[next.Steps])
	}
}

func (s *Scheduler) advanceLearned(next *Schedule, score Score, now time.Time) (time.Time, error) {
	p := &s.params
	switch score {
	case Again:
		next.State = Relearning
		next.Steps = 0
		next.Interval = max(next.Interval*p.LapseMultiplier, p.MinimumInterval)
		next.Ease = max(next.Ease-p.LapseEasePenalty, p.MinimumEase)
		return addStep(now, p.RelearningSteps[0])
	case Hard:
		next.Interval *= p.HardMultiplier
		next.Ease = max(next.Ease-p.HardEasePenalty, p.MinimumEase)
	case Good:
		next.Interval *= next.Ease
	case Easy:
		next.Interval *= next.Ease * p.EasyBonus
		next.Ease += p.EasyEaseBonus
	}
	if p.MaximumInterval > 0 {
		next.Interval = min(next.Interval, p.MaximumInterval)
	}
	return addDays(now, next.Interval)
}

func (s *Scheduler) advanceRelearning(next *Schedule, score Score, now time.Time) (time.Time, error) {
	switch score {
	case Good, Easy:
		next.State = Learned
		return addDays(now, next.Interval)
	default:
		next.Steps = 0
		return addStep(now, s.params.RelearningSteps[0])
	}
}

func addDays(now time.Time, days float64) (time.Time, error) {
	return addSeconds(now, days*secondsPerDay)
}

func addStep(now time.Time, step time.Duration) (time.Time, error) {
	return addSeconds(now, step.Seconds())
}

// addSeconds rounds secs half away from zero and adds it to now. The sum is
// computed on Unix seconds so offsets far beyond the time.Duration range still
// succeed; only an instant time.Time cannot hold is an overflow.
func addSeconds(now time.Time, secs float64) (time.Time, error) {
	secs = math.Round(secs)
	if math.IsNaN(secs) || secs >= twoTo63 || secs < -twoTo63 {
		return time.Time{}, overflow(now, secs)
	}
	offset := int64(secs)
	base := now.Unix()
	if (offset > 0 && base > maxUnix-offset) || (offset < 0 && base < math.MinInt64-offset) {
		return time.Time{}, overflow(now, secs)
	}
	return time.Unix(base+offset, int64(now.Nanosecond())).In(now.Location()), nil
}

func overflow(now time.Time, secs float64) error {
	return fmt.Errorf("%w: %g seconds after %s", ErrDueDateOverflow, secs, now.Format(time.RFC3339))
}
