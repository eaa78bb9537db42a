package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/render"
	"github.com/conorfennell/knoldeck/internal/sm2"
)

type appRunE func(cmd *cobra.Command, args []string, a *app) error

func withApp(configPath *string, run appRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, *configPath)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func newDecksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List decks",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, _ []string, a *app) error {
			decks, err := a.coll.Decks()
			if err != nil {
				return err
			}
			if len(decks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no decks")
				return nil
			}
			for _, d := range decks {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		}),
	}
}

func newDeckCmd(configPath *string) *cobra.Command {
	deck := &cobra.Command{Use: "deck", Short: "Deck commands"}
	deck.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty deck",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.coll.CreateDeck(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created deck %s\n", args[0])
			return nil
		}),
	})
	return deck
}

func newNotesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <deck>",
		Short: "List the notes of a deck",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			notes, err := a.coll.Notes(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, n := range notes {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", n.NoteID, n.Template)
			}
			return tw.Flush()
		}),
	}
}

func newNoteCmd(configPath *string) *cobra.Command {
	note := &cobra.Command{Use: "note", Short: "Note commands"}

	var template string
	var fieldArgs []string
	create := &cobra.Command{
		Use:   "create <deck> --field Front=... --field Back=...",
		Short: "Create a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			fields, err := parseFields(fieldArgs)
			if err != nil {
				return err
			}
			n, err := a.coll.CreateNote(args[0], template, fields)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n.NoteID)
			return nil
		}),
	}
	create.Flags().StringVar(&template, "template", domain.DefaultTemplate, "note template")
	create.Flags().StringArrayVar(&fieldArgs, "field", nil, "field as Name=value (repeatable)")

	var back bool
	show := &cobra.Command{
		Use:   "show <deck> <note>",
		Short: "Render a card's front, or its back with --back",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			n, err := a.coll.FindNote(args[0], args[1])
			if err != nil {
				return err
			}
			fields, err := a.coll.ReadNote(n)
			if err != nil {
				return err
			}
			side := render.Front
			if back {
				side = render.Back
			}
			html, err := side(fields)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), html)
			return nil
		}),
	}
	show.Flags().BoolVar(&back, "back", false, "render the answer side")

	note.AddCommand(create, show)
	return note
}

func newDueCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "due [deck]",
		Short: "List cards due for review",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			byDeck := map[string][]domain.DueCard{}
			if len(args) == 1 {
				due, err := a.reviews.Due(ctx, args[0])
				if err != nil {
					return err
				}
				byDeck[args[0]] = due
			} else {
				all, err := a.reviews.DueAll(ctx)
				if err != nil {
					return err
				}
				byDeck = all
			}

			decks := make([]string, 0, len(byDeck))
			for d := range byDeck {
				decks = append(decks, d)
			}
			sort.Strings(decks)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			total := 0
			for _, d := range decks {
				for _, c := range byDeck[d] {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d, c.Card.NoteID, c.Schedule.State, formatDue(c.Schedule.Due))
					total++
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d due\n", total)
			return nil
		}),
	}
}

func newReviewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "review <deck> <note> <Again|Hard|Good|Easy>",
		Short: "Score a card and schedule its next review",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			score, err := sm2.ParseScore(args[2])
			if err != nil {
				return err
			}
			entry, err := a.reviews.Review(cmd.Context(), args[0], args[1], score)
			if err != nil {
				return err
			}
			writeSchedule(cmd.OutOrStdout(), score.String(), entry.Schedule)
			return nil
		}),
	}
}

func newPreviewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <deck> <note>",
		Short: "Show the schedule each score would produce",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			preview, err := a.reviews.Preview(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, score := range sm2.Scores {
				writeSchedule(cmd.OutOrStdout(), score.String(), preview[score])
			}
			return nil
		}),
	}
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var verify bool
	history := &cobra.Command{
		Use:   "history <deck> <note>",
		Short: "Show the review log of a card",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			entries, err := a.reviews.History(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "never reviewed")
				return nil
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(out, "%s  ", e.ReviewedAt.Format(time.RFC3339))
				writeSchedule(out, e.Score.String(), e.Schedule)
			}
			if verify {
				if err := a.reviews.Verify(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "history verified")
			}
			return nil
		}),
	}
	history.Flags().BoolVar(&verify, "verify", false, "replay the log and check it reproduces the stored schedule")
	return history
}

func writeSchedule(w io.Writer, label string, s sm2.Schedule) {
	_, _ = fmt.Fprintf(w, "%-6s %-10s interval=%.2fd ease=%.2f steps=%d due=%s\n",
		label, s.State, s.Interval, s.Ease, s.Steps, formatDue(s.Due))
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "now"
	}
	return due.Local().Format(time.RFC3339)
}

func parseFields(args []string) (domain.Fields, error) {
	fields := domain.Fields{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want Name=value", arg)
		}
		fields[name] = value
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one --field is required")
	}
	return fields, nil
}
