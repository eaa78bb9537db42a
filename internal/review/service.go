// Package review runs review sessions: it looks up cards in the collection,
// advances their schedules and records every review in the log.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/collection"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/sm2"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// ErrHistoryMismatch is returned by Verify when replaying a card's reviews
// does not reproduce the schedule stored with its latest review.
var ErrHistoryMismatch = errors.New("review history does not replay to stored schedule")

// maxConcurrentDecks bounds the fan-out of DueAll.
const maxConcurrentDecks = 4

// Service is safe for concurrent use.
type Service struct {
	scheduler  *sm2.Scheduler
	db         *storage.DB
	collection *collection.Collection
	clock      clock.Clock
	log        *slog.Logger
}

func NewService(scheduler *sm2.Scheduler, db *storage.DB, coll *collection.Collection, clk clock.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		scheduler:  scheduler,
		db:         db,
		collection: coll,
		clock:      clk,
		log:        log,
	}
}

// Card resolves a deck and note id to the note's card.
func (s *Service) Card(deck, noteID string) (domain.Card, error) {
	note, err := s.collection.FindNote(deck, noteID)
	if err != nil {
		return domain.Card{}, err
	}
	return domain.CardFor(note), nil
}

// Schedule returns the current schedule of a card. Cards that were never
// reviewed get a fresh schedule and reviewed is false.
func (s *Service) Schedule(ctx context.Context, card domain.Card) (schedule sm2.Schedule, reviewed bool, err error) {
	latest, err := s.db.Latest(ctx, card.Key())
	if err != nil {
		return sm2.Schedule{}, false, err
	}
	if latest == nil {
		return s.scheduler.NewSchedule(), false, nil
	}
	return latest.Schedule, true, nil
}

// Review scores a card and appends the resulting schedule to the log.
func (s *Service) Review(ctx context.Context, deck, noteID string, score sm2.Score) (domain.ReviewLog, error) {
	note, err := s.collection.FindNote(deck, noteID)
	if err != nil {
		return domain.ReviewLog{}, err
	}
	fields, err := s.collection.ReadNote(note)
	if err != nil {
		return domain.ReviewLog{}, err
	}
	card := domain.CardFor(note)
	hash := knol.Hash(fields)

	entry, err := s.db.Apply(ctx, card.Key(), func(latest *domain.ReviewLog) (domain.ReviewLog, error) {
		current := s.scheduler.NewSchedule()
		if latest != nil {
			current = latest.Schedule
		}
		now := s.clock.Now().UTC()
		next, err := s.scheduler.Advance(current, score, now)
		if err != nil {
			return domain.ReviewLog{}, fmt.Errorf("failed to advance card %s: %w", card.Key(), err)
		}
		return domain.ReviewLog{
			Score:       score,
			ReviewedAt:  now,
			ContentHash: hash,
			Schedule:    next,
		}, nil
	})
	if err != nil {
		return domain.ReviewLog{}, err
	}

	s.log.Info("card reviewed",
		"card", card.Key(),
		"score", score,
		"state", entry.Schedule.State,
		"interval", entry.Schedule.Interval,
		"due", entry.Schedule.Due,
	)
	return entry, nil
}

// Due lists the cards of a deck that are due now: never-reviewed cards and
// cards whose due time has passed. Reviewed cards come first, earliest due
// first, followed by new cards in collection order.
func (s *Service) Due(ctx context.Context, deck string) ([]domain.DueCard, error) {
	cards, err := s.collection.Cards(deck)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var due []domain.DueCard
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		schedule, reviewed, err := s.Schedule(ctx, card)
		if err != nil {
			return nil, err
		}
		if schedule.IsDue(now) {
			due = append(due, domain.DueCard{Card: card, Schedule: schedule, Reviewed: reviewed})
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].Schedule.Due, due[j].Schedule.Due
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return due, nil
}

// DueAll lists the due cards of every deck, keyed by deck name.
func (s *Service) DueAll(ctx context.Context) (map[string][]domain.DueCard, error) {
	decks, err := s.collection.Decks()
	if err != nil {
		return nil, err
	}

	results := make([][]domain.DueCard, len(decks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDecks)
	for i, deck := range decks {
		g.Go(func() error {
			due, err := s.Due(ctx, deck)
			if err != nil {
				return fmt.Errorf("failed to list due cards in deck %s: %w", deck, err)
			}
			results[i] = due
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[string][]domain.DueCard, len(decks))
	for i, deck := range decks {
		all[deck] = results[i]
	}
	return all, nil
}

// Preview returns the schedule each score would produce for a card right now.
func (s *Service) Preview(ctx context.Context, deck, noteID string) (map[sm2.Score]sm2.Schedule, error) {
	card, err := s.Card(deck, noteID)
	if err != nil {
		return nil, err
	}
	schedule, _, err := s.Schedule(ctx, card)
	if err != nil {
		return nil, err
	}
	return s.scheduler.Preview(schedule, s.clock.Now().UTC())
}

// History returns the review log of a card, oldest first.
func (s *Service) History(ctx context.Context, deck, noteID string) ([]domain.ReviewLog, error) {
	card, err := s.Card(deck, noteID)
	if err != nil {
		return nil, err
	}
	return s.db.History(ctx, card.Key())
}

// Verify replays a card's review log from a fresh schedule and checks that it
// reproduces the stored schedule. It fails after the scheduler parameters
// change underneath an existing log.
func (s *Service) Verify(ctx context.Context, deck, noteID string) error {
	history, err := s.History(ctx, deck, noteID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	reviews := make([]sm2.Review, len(history))
	for i, entry := range history {
		reviews[i] = sm2.Review{Score: entry.Score, At: entry.ReviewedAt}
	}
	replayed, err := s.scheduler.Replay(s.scheduler.NewSchedule(), reviews)
	if err != nil {
		return err
	}

	stored := history[len(history)-1].Schedule
	if !sameSchedule(replayed, stored) {
		return fmt.Errorf("%w: card %s/%s", ErrHistoryMismatch, deck, noteID)
	}
	return nil
}

func sameSchedule(a, b sm2.Schedule) bool {
	if a.State != b.State || a.Interval != b.Interval || a.Ease != b.Ease || a.Steps != b.Steps {
		return false
	}
	if a.Due == nil || b.Due == nil {
		return a.Due == b.Due
	}
	return a.Due.Equal(*b.Due)
}
