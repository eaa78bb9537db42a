// Package sync reconciles the review log with the collection on disk,
// optionally pulling the collection from a git remote first.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/conorfennell/knoldeck/internal/collection"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// Options configures a sync run.
type Options struct {
	// Dir is the collection directory. With a Remote it is the clone target.
	Dir string
	// Remote is an optional git URL the collection is pulled from.
	Remote string
}

// Report summarizes a sync run.
type Report struct {
	Pulled   bool     `json:"pulled"`
	Cards    int      `json:"cards"`
	Orphaned []string `json:"orphaned"`
	Changed  []string `json:"changed"`
}

// Run pulls the collection if a remote is configured, then removes the review
// history of cards whose notes no longer exist. Cards whose content changed
// since their latest review are reported but keep their schedule.
func Run(ctx context.Context, db *storage.DB, opts Options, log *slog.Logger) (Report, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("starting sync", "dir", opts.Dir, "remote", opts.Remote)

	var report Report
	if opts.Remote != "" {
		pulled, err := gitsource.Sync(ctx, opts.Remote, opts.Dir, log)
		if err != nil {
			return Report{}, err
		}
		report.Pulled = pulled
	}

	coll, err := collection.New(opts.Dir)
	if err != nil {
		return Report{}, err
	}

	live, err := liveCards(coll)
	if err != nil {
		return Report{}, err
	}
	report.Cards = len(live)

	keys, err := db.CardKeys(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, key := range keys {
		if _, ok := live[key]; ok {
			continue
		}
		log.Info("orphaned card, deleting history", "card", key)
		if err := db.DeleteCard(ctx, key); err != nil {
			return Report{}, err
		}
		report.Orphaned = append(report.Orphaned, key)
	}

	for key, note := range live {
		changed, err := contentChanged(ctx, db, coll, key, note)
		if err != nil {
			log.Warn("failed to compare card content", "card", key, "error", err)
			continue
		}
		if changed {
			report.Changed = append(report.Changed, key)
		}
	}
	sort.Strings(report.Changed)

	log.Info("sync complete",
		"pulled", report.Pulled,
		"cards", report.Cards,
		"orphaned_deleted", len(report.Orphaned),
		"changed", len(report.Changed),
	)
	return report, nil
}

func liveCards(coll *collection.Collection) (map[string]domain.Note, error) {
	decks, err := coll.Decks()
	if err != nil {
		return nil, err
	}
	live := make(map[string]domain.Note)
	for _, deck := range decks {
		cards, err := coll.Cards(deck)
		if err != nil {
			return nil, fmt.Errorf("failed to list cards in deck %s: %w", deck, err)
		}
		for _, card := range cards {
			live[card.Key()] = card.Note
		}
	}
	return live, nil
}

func contentChanged(ctx context.Context, db *storage.DB, coll *collection.Collection, key string, note domain.Note) (bool, error) {
	latest, err := db.Latest(ctx, key)
	if err != nil || latest == nil || latest.ContentHash == "" {
		return false, err
	}
	fields, err := coll.ReadNote(note)
	if errors.Is(err, collection.ErrNoteNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return knol.Hash(fields) != latest.ContentHash, nil
}
