package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jakobjanot/pg-rrule/recurrence"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a reminder whenever a stored event occurs",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := Logger()
		loc, err := location()
		if err != nil {
			return err
		}
		lead, _ := cmd.Flags().GetDuration("lead")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := newEngine()
		store, err := openStore(ctx, engine)
		if err != nil {
			return err
		}
		defer store.Close()

		c := cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{}))
		out := cmd.OutOrStdout()
		n, err := scheduleReminders(ctx, c, store, engine, lead, func(ev storage.Event, at time.Time) {
			fmt.Fprintf(out, "%s  %s\n", at.In(loc).Format(displayLayout), ev.Title)
			log.Info("reminder", "event", ev.ID, "title", ev.Title, "at", at)
		})
		if err != nil {
			return err
		}
		log.Info("watching events", "scheduled", n)

		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	WatchCmd.Flags().Duration("lead", 0, "remind this long before each occurrence")
}

// scheduleReminders adds one cron entry per stored event. notify receives
// the occurrence the reminder is for. Events whose rule will not fire again
// are skipped.
func scheduleReminders(ctx context.Context, c *cron.Cron, store storage.Store, engine *rrule.Engine, lead time.Duration, notify func(storage.Event, time.Time)) (int, error) {
	events, err := store.ListEvents(ctx)
	if err != nil {
		return 0, err
	}

	x := recurrence.NewExpander(engine, recurrence.WithLogger(Logger()))
	n := 0
	for _, ev := range events {
		schedule, err := reminderSchedule(x, ev, lead)
		if err != nil {
			return n, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if schedule.Next(time.Now()).IsZero() {
			continue
		}
		c.Schedule(schedule, cron.FuncJob(func() {
			notify(ev, time.Now().Add(lead).Truncate(time.Second))
		}))
		n++
	}
	return n, nil
}

// reminderSchedule fires lead before every instance of ev, added dates
// included and cancelled ones left out.
func reminderSchedule(x *recurrence.Expander, ev storage.Event, lead time.Duration) (cron.Schedule, error) {
	schedule, err := x.Schedule(ev.Series())
	if err != nil {
		return nil, err
	}
	return leadSchedule{next: schedule, lead: lead}, nil
}

// leadSchedule shifts a schedule earlier by lead
type leadSchedule struct {
	next cron.Schedule
	lead time.Duration
}

func (s leadSchedule) Next(t time.Time) time.Time {
	at := s.next.Next(t.Add(s.lead))
	if at.IsZero() {
		return at
	}
	return at.Add(-s.lead)
}

// cronLogger sends cron's own messages to the process logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	Logger().Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	Logger().Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
