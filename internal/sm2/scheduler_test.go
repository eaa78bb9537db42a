package sm2

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func schedule(state State, interval, ease float64, steps uint) Schedule {
	return Schedule{State: state, Interval: interval, Ease: ease, Steps: steps}
}

func TestAdvanceScenarios(t *testing.T) {
	testCases := []struct {
		name         string
		in           Schedule
		score        Score
		wantState    State
		wantInterval float64
		wantEase     float64
		wantSteps    uint
		wantOffset   time.Duration
	}{
		{
			name:         "New scored Easy graduates with the easy interval but is due tomorrow",
			in:           schedule(New, 1.0, 2.5, 0),
			score:        Easy,
			wantState:    Learned,
			wantInterval: 4.0,
			wantEase:     2.5,
			wantSteps:    0,
			wantOffset:   day,
		},
		{
			name:         "New scored Again restarts the first step",
			in:           schedule(New, 1.0, 2.5, 0),
			score:        Again,
			wantState:    New,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantSteps:    0,
			wantOffset:   time.Minute,
		},
		{
			name:         "New scored Again from the second step resets steps",
			in:           schedule(New, 1.0, 2.5, 1),
			score:        Again,
			wantState:    New,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantSteps:    0,
			wantOffset:   time.Minute,
		},
		{
			name:         "New scored Hard repeats in a minute without moving steps",
			in:           schedule(New, 1.0, 2.5, 1),
			score:        Hard,
			wantState:    New,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantSteps:    1,
			wantOffset:   time.Minute,
		},
		{
			name:         "New scored Good moves to the next step",
			in:           schedule(New, 1.0, 2.5, 0),
			score:        Good,
			wantState:    New,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantSteps:    1,
			wantOffset:   10 * time.Minute,
		},
		{
			name:         "New scored Good on the last step graduates",
			in:           schedule(New, 1.0, 2.5, 1),
			score:        Good,
			wantState:    Learned,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantSteps:    0,
			wantOffset:   day,
		},
		{
			name:         "Learned scored Good multiplies by ease",
			in:           schedule(Learned, 1.0, 2.5, 0),
			score:        Good,
			wantState:    Learned,
			wantInterval: 2.5,
			wantEase:     2.5,
			wantOffset:   60 * time.Hour,
		},
		{
			name:         "Learned scored Easy applies the easy bonus and raises ease",
			in:           schedule(Learned, 1.0, 2.5, 0),
			score:        Easy,
			wantState:    Learned,
			wantInterval: 3.25,
			wantEase:     2.65,
			wantOffset:   78 * time.Hour,
		},
		{
			name:         "Learned scored Hard grows slowly and lowers ease",
			in:           schedule(Learned, 10.0, 2.5, 0),
			score:        Hard,
			wantState:    Learned,
			wantInterval: 12.0,
			wantEase:     2.35,
			wantOffset:   12 * day,
		},
		{
			name:         "Learned scored Again lapses into Relearning",
			in:           schedule(Learned, 2.0, 2.5, 0),
			score:        Again,
			wantState:    Relearning,
			wantInterval: 1.4,
			wantEase:     2.3,
			wantOffset:   10 * time.Minute,
		},
		{
			name:         "Lapse keeps ease at its floor",
			in:           schedule(Learned, 2.0, 1.3, 0),
			score:        Again,
			wantState:    Relearning,
			wantInterval: 1.4,
			wantEase:     1.3,
			wantOffset:   10 * time.Minute,
		},
		{
			name:         "Lapse keeps interval at its floor",
			in:           schedule(Learned, 1.0, 2.5, 0),
			score:        Again,
			wantState:    Relearning,
			wantInterval: 1.0,
			wantEase:     2.3,
			wantOffset:   10 * time.Minute,
		},
		{
			name:         "Relearning scored Good returns to Learned on the carried interval",
			in:           schedule(Relearning, 1.0, 2.5, 0),
			score:        Good,
			wantState:    Learned,
			wantInterval: 1.0,
			wantEase:     2.5,
			wantOffset:   day,
		},
		{
			name:         "Relearning scored Easy gets no ease bonus",
			in:           schedule(Relearning, 1.4, 2.3, 0),
			score:        Easy,
			wantState:    Learned,
			wantInterval: 1.4,
			wantEase:     2.3,
			wantOffset:   time.Duration(math.Round(1.4*secondsPerDay)) * time.Second,
		},
		{
			name:         "Relearning scored Hard stays on the relearning step",
			in:           schedule(Relearning, 1.4, 2.3, 0),
			score:        Hard,
			wantState:    Relearning,
			wantInterval: 1.4,
			wantEase:     2.3,
			wantOffset:   10 * time.Minute,
		},
		{
			name:         "Relearning scored Again stays on the relearning step",
			in:           schedule(Relearning, 1.4, 2.3, 0),
			score:        Again,
			wantState:    Relearning,
			wantInterval: 1.4,
			wantEase:     2.3,
			wantOffset:   10 * time.Minute,
		},
	}

	s := Default()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Advance(tc.in, tc.score, t0)
			require.NoError(t, err)

			assert.Equal(t, tc.wantState, got.State)
			assert.InDelta(t, tc.wantInterval, got.Interval, 1e-9)
			assert.InDelta(t, tc.wantEase, got.Ease, 1e-9)
			assert.Equal(t, tc.wantSteps, got.Steps)
			require.NotNil(t, got.Due)
			assert.Equal(t, t0.Add(tc.wantOffset), *got.Due)
		})
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	due := t0.Add(-day)
	in := Schedule{State: Learned, Interval: 3, Ease: 2.5, Due: &due}

	out, err := Default().Advance(in, Again, t0)
	require.NoError(t, err)

	assert.Equal(t, Learned, in.State)
	assert.Equal(t, 3.0, in.Interval)
	assert.Equal(t, t0.Add(-day), *in.Due)
	assert.NotSame(t, in.Due, out.Due)
}

func TestAdvanceDueDerivesFromNow(t *testing.T) {
	// A stored due far in the future must not influence the next due.
	future := t0.Add(365 * day)
	in := Schedule{State: Learned, Interval: 1, Ease: 2.5, Due: &future}

	out, err := Default().Advance(in, Good, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(60*time.Hour), *out.Due)
}

func TestAdvanceRoundsToNearestSecond(t *testing.T) {
	testCases := []struct {
		interval float64
		want     time.Duration
	}{
		// 1.00001 days = 86400.864s
		{interval: 1.00001, want: 86401 * time.Second},
		// 1.000005 days = 86400.432s
		{interval: 1.000005, want: 86400 * time.Second},
	}
	for _, tc := range testCases {
		in := Schedule{State: Relearning, Interval: tc.interval, Ease: 2.5}
		out, err := Default().Advance(in, Good, t0)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(tc.want), *out.Due, "interval %v", tc.interval)
	}
}

func TestAdvanceIsDeterministic(t *testing.T) {
	s := Default()
	in := schedule(Learned, 7.3, 2.1, 0)
	for _, score := range Scores {
		a, errA := s.Advance(in, score, t0)
		b, errB := s.Advance(in, score, t0)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b, "score %s", score)
		assert.Equal(t, math.Float64bits(a.Interval), math.Float64bits(b.Interval))
		assert.Equal(t, math.Float64bits(a.Ease), math.Float64bits(b.Ease))
	}
}

func TestAdvanceOverflow(t *testing.T) {
	s := Default()

	t.Run("interval too large for the due arithmetic", func(t *testing.T) {
		in := schedule(Learned, 1e300, 2.5, 0)
		_, err := s.Advance(in, Good, t0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDueDateOverflow))
	})

	t.Run("interval just past the representable range", func(t *testing.T) {
		// 1.32e14 days is about 1.1e19 seconds, past any int64 Unix second.
		_, err := s.Advance(schedule(Learned, 1.1e14, 1.3, 0), Hard, t0)
		assert.ErrorIs(t, err, ErrDueDateOverflow)
	})

	t.Run("intervals beyond the time.Duration range still schedule", func(t *testing.T) {
		out, err := s.Advance(schedule(Learned, 100_000, 2.5, 0), Good, t0)
		require.NoError(t, err)
		assert.Equal(t, 250_000.0, out.Interval)
		assert.Equal(t, t0.AddDate(0, 0, 250_000), *out.Due)
	})

	t.Run("a long run of Good reviews stays schedulable", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		current, err := s.Advance(s.NewSchedule(), Easy, now)
		require.NoError(t, err)
		for i := 0; i < 12; i++ {
			now = *current.Due
			current, err = s.Advance(current, Good, now)
			require.NoError(t, err, "review %d", i)
		}
		assert.Greater(t, current.Due.Year(), 2600)

		_, err = s.Preview(current, *current.Due)
		require.NoError(t, err)
	})

	t.Run("lapse of a huge interval still schedules the relearning step", func(t *testing.T) {
		in := schedule(Learned, 1e300, 2.5, 0)
		out, err := s.Advance(in, Again, t0)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(10*time.Minute), *out.Due)
	})

	t.Run("maximum interval keeps the card schedulable", func(t *testing.T) {
		p := DefaultParams()
		p.MaximumInterval = 36500
		capped, err := NewScheduler(p)
		require.NoError(t, err)

		out, err := capped.Advance(schedule(Learned, 100_000, 2.5, 0), Good, t0)
		require.NoError(t, err)
		assert.Equal(t, 36500.0, out.Interval)
		assert.Equal(t, t0.Add(36500*day), *out.Due)
	})
}

func TestAdvanceRejectsInvalidInput(t *testing.T) {
	s := Default()

	_, err := s.Advance(s.NewSchedule(), Score(0), t0)
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = s.Advance(s.NewSchedule(), Score(5), t0)
	assert.ErrorIs(t, err, ErrInvalidScore)

	invalid := []Schedule{
		{State: State(0), Interval: 1, Ease: 2.5},
		{State: Learned, Interval: 0, Ease: 2.5},
		{State: Learned, Interval: math.NaN(), Ease: 2.5},
		{State: Learned, Interval: math.Inf(1), Ease: 2.5},
		{State: Learned, Interval: 1, Ease: -1},
	}
	for _, in := range invalid {
		_, err := s.Advance(in, Good, t0)
		assert.ErrorIs(t, err, ErrInvalidSchedule, "%+v", in)
	}
}

func TestAdvanceClampsStepsBeyondNewSteps(t *testing.T) {
	p := DefaultParams()
	p.NewSteps = []time.Duration{time.Minute}
	s, err := NewScheduler(p)
	require.NoError(t, err)

	// A log written under longer NewSteps can leave a step count the
	// current parameters no longer have.
	stale := schedule(New, 1.0, 2.5, 1)

	out, err := s.Advance(stale, Hard, t0)
	require.NoError(t, err)
	assert.Equal(t, New, out.State)
	assert.Equal(t, uint(0), out.Steps)
	assert.Equal(t, t0.Add(time.Minute), *out.Due)

	out, err = s.Advance(schedule(New, 1.0, 2.5, 5), Good, t0)
	require.NoError(t, err)
	assert.Equal(t, Learned, out.State)
	assert.Equal(t, uint(0), out.Steps)

	preview, err := s.Preview(stale, t0)
	require.NoError(t, err)
	for score, next := range preview {
		if next.State == New {
			assert.Less(t, next.Steps, uint(len(p.NewSteps)), "score %s", score)
		}
	}
}

func TestNewSchedule(t *testing.T) {
	got := Default().NewSchedule()
	assert.Equal(t, Schedule{State: New, Interval: 1.0, Ease: 2.5}, got)
	assert.True(t, got.IsDue(t0))
}

func TestIsDue(t *testing.T) {
	due := t0
	s := Schedule{Due: &due}
	assert.True(t, s.IsDue(t0))
	assert.True(t, s.IsDue(t0.Add(time.Second)))
	assert.False(t, s.IsDue(t0.Add(-time.Second)))
}

// TestRandomWalkInvariants drives many cards through random scores and checks
// the invariants that must hold after every transition.
func TestRandomWalkInvariants(t *testing.T) {
	s := Default()
	p := s.Params()
	rng := rand.New(rand.NewSource(7))

	for card := 0; card < 400; card++ {
		current := s.NewSchedule()
		now := t0
		for review := 0; review < 25; review++ {
			score := Scores[rng.Intn(len(Scores))]
			prevState := current.State

			next, err := s.Advance(current, score, now)
			require.NoError(t, err, "card %d review %d: %+v scored %s", card, review, current, score)

			assert.GreaterOrEqual(t, next.Ease, p.MinimumEase)
			if next.State != New {
				assert.Greater(t, next.Interval, 0.0)
			} else {
				assert.Less(t, next.Steps, uint(len(p.NewSteps)))
			}
			if prevState == New && next.State == Learned {
				assert.Contains(t, []Score{Good, Easy}, score)
			}
			require.NotNil(t, next.Due)
			assert.False(t, next.Due.Before(now))

			current = next
			now = *next.Due
		}
	}
}

func TestPreview(t *testing.T) {
	s := Default()
	preview, err := s.Preview(s.NewSchedule(), t0)
	require.NoError(t, err)
	require.Len(t, preview, 4)

	assert.Equal(t, Learned, preview[Easy].State)
	assert.Equal(t, New, preview[Good].State)
	assert.Equal(t, uint(1), preview[Good].Steps)
	assert.Equal(t, t0.Add(time.Minute), *preview[Again].Due)
}

func TestReplay(t *testing.T) {
	s := Default()
	reviews := []Review{
		{Score: Good, At: t0},
		{Score: Good, At: t0.Add(10 * time.Minute)},
		{Score: Good, At: t0.Add(day)},
		{Score: Again, At: t0.Add(4 * day)},
		{Score: Good, At: t0.Add(4*day + 10*time.Minute)},
	}

	got, err := s.Replay(s.NewSchedule(), reviews)
	require.NoError(t, err)

	assert.Equal(t, Learned, got.State)
	assert.InDelta(t, 1.75, got.Interval, 1e-9)
	assert.InDelta(t, 2.3, got.Ease, 1e-9)

	current := s.NewSchedule()
	for _, r := range reviews {
		current, err = s.Advance(current, r.Score, r.At)
		require.NoError(t, err)
	}
	assert.Equal(t, current, got)
}
