package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jakobjanot/pg-rrule/agenda"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/spf13/cobra"
)

const displayLayout = "Mon 2006-01-02 15:04 MST"

var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List stored events",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), newEngine())
		if err != nil {
			return err
		}
		defer store.Close()
		return runEvents(cmd.Context(), cmd.OutOrStdout(), store)
	},
}

var AgendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Show what comes next for every stored event",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		from := time.Now().In(loc)
		if value, _ := cmd.Flags().GetString("from"); value != "" {
			if from, err = parseTime(value, loc); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
		}

		engine := newEngine()
		store, err := openStore(cmd.Context(), engine)
		if err != nil {
			return err
		}
		defer store.Close()
		return runAgenda(cmd.Context(), cmd.OutOrStdout(), store, engine, from, days, loc)
	},
}

func init() {
	AgendaCmd.Flags().Int("days", 7, "length of the schedule in days")
	AgendaCmd.Flags().String("from", "", "start of the schedule (default now)")
}

func runEvents(ctx context.Context, out io.Writer, store storage.Store) error {
	events, err := store.ListEvents(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTART\tRECURRENCE")
	for _, ev := range events {
		rule := ev.Recurrence
		if rule == "" {
			rule = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.ID, ev.Title, ev.Start.Format(displayLayout), rule)
	}
	return w.Flush()
}

func runAgenda(ctx context.Context, out io.Writer, store storage.Store, engine *rrule.Engine, from time.Time, days int, loc *time.Location) error {
	if days <= 0 {
		return fmt.Errorf("--days must be positive, got %d", days)
	}
	svc := agenda.New(store, engine, agenda.WithLogger(Logger()))

	next, err := svc.NextPerEvent(ctx, from)
	if err != nil {
		return err
	}
	to := from.AddDate(0, 0, days)
	schedule, err := svc.Schedule(ctx, from, to)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "EVENT\tNEXT")
	for _, n := range next {
		when := "-"
		if t, ok := n.Next.Get(); ok {
			when = t.In(loc).Format(displayLayout)
		}
		fmt.Fprintf(w, "%s\t%s\n", n.Title, when)
	}
	fmt.Fprintf(w, "\nSCHEDULE %s - %s\t\n", from.In(loc).Format("2006-01-02"), to.In(loc).Format("2006-01-02"))
	for _, o := range schedule {
		fmt.Fprintf(w, "%s\t%s\n", o.Start.In(loc).Format(displayLayout), o.Title)
	}
	return w.Flush()
}
